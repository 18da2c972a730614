package core

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Property: as the observation instant advances, both remaining-time
// components only shrink, never below zero, and the next-timeout pick stays
// consistent with the smaller component.
func TestProperty_RemainingTimeMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		startOffset := rapid.Int64Range(0, int64(ProfileStandard.HardTimeout)*2).Draw(rt, "startOffset")
		progressOffset := rapid.Int64Range(0, startOffset).Draw(rt, "progressOffset")

		now := start.Add(time.Duration(startOffset))
		lastProgress := start.Add(time.Duration(startOffset - progressOffset))

		prev := GetRemainingTime(now, start, lastProgress, ProfileStandard)
		if prev.UntilIdleTimeout < 0 || prev.UntilHardTimeout < 0 {
			rt.Fatalf("negative remainder at %v: %+v", now, prev)
		}

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			advance := time.Duration(rapid.Int64Range(1, int64(2*time.Minute)).Draw(rt, "advance"))
			now = now.Add(advance)

			cur := GetRemainingTime(now, start, lastProgress, ProfileStandard)
			if cur.UntilIdleTimeout > prev.UntilIdleTimeout {
				rt.Fatalf("idle remainder grew from %v to %v after advancing %v", prev.UntilIdleTimeout, cur.UntilIdleTimeout, advance)
			}
			if cur.UntilHardTimeout > prev.UntilHardTimeout {
				rt.Fatalf("hard remainder grew from %v to %v after advancing %v", prev.UntilHardTimeout, cur.UntilHardTimeout, advance)
			}
			if cur.UntilIdleTimeout < 0 || cur.UntilHardTimeout < 0 {
				rt.Fatalf("negative remainder at %v: %+v", now, cur)
			}

			wantNext := cur.UntilIdleTimeout
			wantType := TimeoutIdle
			if cur.UntilHardTimeout < cur.UntilIdleTimeout {
				wantNext = cur.UntilHardTimeout
				wantType = TimeoutHard
			}
			if cur.NextTimeout != wantNext || cur.NextTimeoutType != wantType {
				rt.Fatalf("next timeout %v (%s), want %v (%s)", cur.NextTimeout, cur.NextTimeoutType, wantNext, wantType)
			}

			prev = cur
		}
	})
}
