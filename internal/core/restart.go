package core

import (
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

// RestartAction is the recovery recommendation for a persisted task after a
// supervisor restart.
type RestartAction string

const (
	// ActionNone: the task needs no intervention.
	ActionNone RestartAction = "none"
	// ActionRollbackReplay: re-execute the task from scratch.
	ActionRollbackReplay RestartAction = "rollback_replay"
	// ActionContinue: the task is waiting on a human and survives as-is.
	ActionContinue RestartAction = "continue"
	// ActionSoftResume: continue from verified partial output (opt-in).
	ActionSoftResume RestartAction = "soft_resume"
)

// Staleness reasons reported by DetectRestartCondition.
const (
	StaleReasonNoEvents         = "no_events"
	StaleReasonNoRecentProgress = "no_recent_progress"
)

// RestartCondition classifies the liveness of a RUNNING task. After a crash
// the executor cannot be queried, so the only available evidence is the
// staleness of its last recorded progress timestamp.
type RestartCondition struct {
	IsStale           bool
	Reason            string
	RecommendedAction RestartAction
}

// ResumePolicy configures resume classification. Soft resume is opt-in:
// full replay is preferred unless the operator explicitly trusts partial
// artifacts.
type ResumePolicy struct {
	AllowSoftResume bool
	StaleThreshold  time.Duration
}

// ResumeOptions enumerates the recovery paths available for one task.
type ResumeOptions struct {
	CanResume         bool
	CanRollbackReplay bool
	CanSoftResume     bool
	DefaultAction     RestartAction
}

// isStaleAt reports whether a RUNNING task has shown no progress within the
// given window as of now. A freshly claimed task is not stale until the
// window has elapsed since its claim, even with zero events.
func isStaleAt(task *models.Task, now time.Time, window time.Duration) (bool, string) {
	if task.Status != models.StatusRunning {
		return false, ""
	}
	last, hasEvents := task.LastProgress()
	if now.Sub(last) < window {
		return false, ""
	}
	if !hasEvents {
		return true, StaleReasonNoEvents
	}
	return true, StaleReasonNoRecentProgress
}

// DetectRestartCondition classifies a persisted RUNNING task's liveness at
// the given instant. Stale tasks are recommended for rollback-replay; the
// work is provisionally abandoned until a recent event proves otherwise.
func DetectRestartCondition(task *models.Task, now time.Time, idleWindow time.Duration) RestartCondition {
	stale, reason := isStaleAt(task, now, idleWindow)
	if !stale {
		return RestartCondition{RecommendedAction: ActionNone}
	}
	return RestartCondition{
		IsStale:           true,
		Reason:            reason,
		RecommendedAction: ActionRollbackReplay,
	}
}

// DetectRestartState maps a task snapshot to its recovery action:
//
//	RUNNING + stale          -> rollback_replay
//	RUNNING + recent         -> none
//	AWAITING_RESPONSE        -> continue
//	COMPLETE/ERROR/CANCELLED -> none
func DetectRestartState(task *models.Task, threshold time.Duration, now time.Time) RestartAction {
	switch task.Status {
	case models.StatusRunning:
		if stale, _ := isStaleAt(task, now, threshold); stale {
			return ActionRollbackReplay
		}
		return ActionNone
	case models.StatusAwaitingResponse:
		return ActionContinue
	default:
		return ActionNone
	}
}

// GetResumeOptions enumerates the recovery paths for a task. Soft resume
// requires the policy to allow it and verifiable partial artifacts: at
// least one progress event and non-empty output.
func GetResumeOptions(task *models.Task, now time.Time, policy ResumePolicy) ResumeOptions {
	opts := ResumeOptions{
		CanResume: !task.Status.IsTerminal(),
	}
	if stale, _ := isStaleAt(task, now, policy.StaleThreshold); stale {
		opts.CanRollbackReplay = true
	}
	opts.CanSoftResume = policy.AllowSoftResume && len(task.Events) > 0 && task.Output != ""

	if opts.CanSoftResume {
		opts.DefaultAction = ActionSoftResume
	} else {
		opts.DefaultAction = ActionRollbackReplay
	}
	return opts
}

// ShouldShowResumeUI reports whether a task warrants operator attention in
// an interactive resume picker: waiting on a reply, or running but stale.
// Actively progressing and terminal tasks are hidden.
func ShouldShowResumeUI(task *models.Task, now time.Time, staleThreshold time.Duration) bool {
	switch task.Status {
	case models.StatusAwaitingResponse:
		return true
	case models.StatusRunning:
		stale, _ := isStaleAt(task, now, staleThreshold)
		return stale
	default:
		return false
	}
}
