package models

import "time"

// TimeoutProfile is an immutable pair of timeout ceilings selected per task
// context. IdleTimeout bounds the time since the last progress event; the
// hard timeout is an absolute wall-clock ceiling regardless of progress.
type TimeoutProfile struct {
	Name        string        `yaml:"name" json:"name"`
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	HardTimeout time.Duration `yaml:"hard_timeout" json:"hard_timeout"`
}
