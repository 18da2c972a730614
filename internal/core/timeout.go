// Package core contains the decision logic of the orchestration system:
// timeout evaluation, restart/resume classification, completion judgment,
// configuration, and task ID generation. The evaluators are pure functions
// over task snapshots; an external driver polls them and acts on the
// verdicts.
package core

import (
	"fmt"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

// TimeoutType names which ceiling fired.
type TimeoutType string

const (
	TimeoutNone TimeoutType = "none"
	TimeoutIdle TimeoutType = "idle"
	TimeoutHard TimeoutType = "hard"
)

// Built-in timeout profiles. The hard ceiling is an absolute safety net
// against runaway or hung executors; idle bounds the silence between
// progress events.
var (
	ProfileStandard = models.TimeoutProfile{Name: "standard", IdleTimeout: 60 * time.Second, HardTimeout: 600 * time.Second}
	ProfileLong     = models.TimeoutProfile{Name: "long", IdleTimeout: 120 * time.Second, HardTimeout: 1800 * time.Second}
	ProfileExtended = models.TimeoutProfile{Name: "extended", IdleTimeout: 300 * time.Second, HardTimeout: 3600 * time.Second}
)

// TimeoutVerdict is the outcome of a CheckTimeout evaluation. Message is
// always non-empty when IsTimedOut is true: a timeout surfaces a
// human-actionable explanation, never a bare failure code.
type TimeoutVerdict struct {
	IsTimedOut                bool
	Type                      TimeoutType
	ShouldSetAwaitingResponse bool
	Message                   string
}

// RemainingTime reports how long until each ceiling fires, clamped at zero.
type RemainingTime struct {
	UntilIdleTimeout time.Duration
	UntilHardTimeout time.Duration
	NextTimeout      time.Duration
	NextTimeoutType  TimeoutType
}

// ProfileOptions selects a timeout profile for a task context.
type ProfileOptions struct {
	IsAutoDevLoop            bool
	HasLongRunningOperations bool
}

// CheckTimeout evaluates the timeout state of a RUNNING task at the given
// instant. The hard ceiling fires irrespective of recent progress and takes
// precedence when both conditions hold. Both timeout types route to
// AWAITING_RESPONSE, a human-recoverable state, never a bare failure.
func CheckTimeout(now, startTime, lastProgress time.Time, profile models.TimeoutProfile) TimeoutVerdict {
	elapsed := now.Sub(startTime)
	idle := now.Sub(lastProgress)

	if elapsed >= profile.HardTimeout {
		return TimeoutVerdict{
			IsTimedOut:                true,
			Type:                      TimeoutHard,
			ShouldSetAwaitingResponse: true,
			Message: fmt.Sprintf("Task exceeded the %s hard timeout of %s (running for %s). "+
				"The executor may be hung; reply to re-queue the task or cancel it.",
				profile.Name, profile.HardTimeout, elapsed.Round(time.Second)),
		}
	}
	if idle >= profile.IdleTimeout {
		return TimeoutVerdict{
			IsTimedOut:                true,
			Type:                      TimeoutIdle,
			ShouldSetAwaitingResponse: true,
			Message: fmt.Sprintf("No progress for %s (idle timeout %s on the %s profile). "+
				"The executor appears stuck; reply to re-queue the task or cancel it.",
				idle.Round(time.Second), profile.IdleTimeout, profile.Name),
		}
	}
	return TimeoutVerdict{Type: TimeoutNone}
}

// GetRemainingTime reports the time left before each ceiling fires, both
// clamped at zero, plus whichever fires next.
func GetRemainingTime(now, startTime, lastProgress time.Time, profile models.TimeoutProfile) RemainingTime {
	untilIdle := profile.IdleTimeout - now.Sub(lastProgress)
	if untilIdle < 0 {
		untilIdle = 0
	}
	untilHard := profile.HardTimeout - now.Sub(startTime)
	if untilHard < 0 {
		untilHard = 0
	}

	r := RemainingTime{
		UntilIdleTimeout: untilIdle,
		UntilHardTimeout: untilHard,
	}
	if untilHard < untilIdle {
		r.NextTimeout = untilHard
		r.NextTimeoutType = TimeoutHard
	} else {
		r.NextTimeout = untilIdle
		r.NextTimeoutType = TimeoutIdle
	}
	return r
}

// SelectTimeoutProfile picks the profile for a task context. Auto dev loops
// get the extended profile, long-running operations the long profile, and
// everything else the standard one.
func SelectTimeoutProfile(options ProfileOptions) models.TimeoutProfile {
	switch {
	case options.IsAutoDevLoop:
		return ProfileExtended
	case options.HasLongRunningOperations:
		return ProfileLong
	default:
		return ProfileStandard
	}
}

// ApplyTimeoutOverrides returns a copy of profile with non-zero
// configuration overrides applied for its name.
func ApplyTimeoutOverrides(profile models.TimeoutProfile, overrides models.TimeoutOverrides) models.TimeoutProfile {
	var idleMs, hardMs int
	switch profile.Name {
	case ProfileStandard.Name:
		idleMs, hardMs = overrides.StandardIdleMs, overrides.StandardHardMs
	case ProfileLong.Name:
		idleMs, hardMs = overrides.LongIdleMs, overrides.LongHardMs
	case ProfileExtended.Name:
		idleMs, hardMs = overrides.ExtendedIdleMs, overrides.ExtendedHardMs
	}
	if idleMs > 0 {
		profile.IdleTimeout = time.Duration(idleMs) * time.Millisecond
	}
	if hardMs > 0 {
		profile.HardTimeout = time.Duration(hardMs) * time.Millisecond
	}
	return profile
}
