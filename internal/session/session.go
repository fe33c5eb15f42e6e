package session

import (
	"errors"
	"sync"

	"silvercal/internal/models"
)

// State of the review cycle. A session walks Idle → Capturing → Resolving →
// AwaitingConfirmation → Committing → Idle; cancel returns to Idle, any
// failure lands in Failed until acknowledged. Edit-start enters
// AwaitingConfirmation directly from Idle.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateResolving
	StateAwaitingConfirmation
	StateCommitting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateResolving:
		return "resolving"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateCommitting:
		return "committing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrDraftHeld rejects starting a new capture or edit while a draft is
	// still awaiting confirmation or being committed. The held draft is not
	// discarded.
	ErrDraftHeld = errors.New("a draft is already held for review")

	// ErrBadState rejects an operation the current state does not permit.
	ErrBadState = errors.New("operation not allowed in current state")
)

// Review holds the single in-flight draft of one user session and enforces
// the capture → resolve → confirm → commit sequencing. Blocking work (the
// model call, the calendar call) happens outside the lock between a Begin*
// and its Complete*; the generation counter makes sure a result that arrives
// after a cancel cannot clobber the session.
type Review struct {
	mu         sync.Mutex
	state      State
	draft      *models.DraftEvent
	day        models.DayView
	gen        uint64
	failedFrom State
	failure    string
}

// NewReview creates an idle review session with an empty day view.
func NewReview() *Review {
	return &Review{state: StateIdle}
}

// Snapshot is the render-ready view of a session.
type Snapshot struct {
	State State
	Draft *models.DraftEvent
	Day   models.DayView
	Error string
}

// Snapshot returns the current state, held draft and day view.
func (r *Review) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		State: r.state,
		Draft: r.draftCopy(),
		Day:   append(models.DayView(nil), r.day...),
		Error: r.failure,
	}
}

// StartCapture activates the capture phase. Only an idle session may start
// capturing; a held draft must be cancelled or committed first.
func (r *Review) StartCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draft != nil || r.state == StateCommitting {
		return ErrDraftHeld
	}
	if r.state != StateIdle {
		return ErrBadState
	}
	r.state = StateCapturing
	return nil
}

// StopCapture abandons an active capture without a transcript.
func (r *Review) StopCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateCapturing {
		return ErrBadState
	}
	r.state = StateIdle
	return nil
}

// BeginResolve moves the session into Resolving and returns the generation
// the eventual result must present. Typed input may resolve straight from
// Idle; voice input arrives at the end of a capture.
func (r *Review) BeginResolve() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draft != nil || r.state == StateCommitting {
		return 0, ErrDraftHeld
	}
	if r.state != StateIdle && r.state != StateCapturing {
		return 0, ErrBadState
	}
	r.gen++
	r.state = StateResolving
	return r.gen, nil
}

// CompleteResolve applies the outcome of a resolution. A result whose
// generation no longer matches (the session was cancelled meanwhile) is
// dropped; the return value reports whether it was applied.
func (r *Review) CompleteResolve(gen uint64, draft *models.DraftEvent, resolveErr error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen || r.state != StateResolving {
		return false
	}
	if resolveErr != nil {
		r.state = StateFailed
		r.failedFrom = StateResolving
		r.failure = resolveErr.Error()
		return true
	}
	d := *draft
	r.draft = &d
	r.state = StateAwaitingConfirmation
	r.failure = ""
	return true
}

// BeginEdit enters review directly with a draft built from an existing
// remote event.
func (r *Review) BeginEdit(draft models.DraftEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draft != nil || r.state == StateCommitting {
		return ErrDraftHeld
	}
	if r.state != StateIdle {
		return ErrBadState
	}
	r.draft = &draft
	r.state = StateAwaitingConfirmation
	r.failure = ""
	return nil
}

// Cancel discards the pending review and returns to Idle. An in-flight
// resolution is not interrupted; bumping the generation makes its late
// result a no-op.
func (r *Review) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateCapturing, StateResolving, StateAwaitingConfirmation:
		r.gen++
		r.draft = nil
		r.state = StateIdle
		r.failure = ""
		return nil
	default:
		return ErrBadState
	}
}

// BeginCommit moves a confirmed draft into Committing and hands back a copy
// for the calendar call.
func (r *Review) BeginCommit() (uint64, models.DraftEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateAwaitingConfirmation || r.draft == nil {
		return 0, models.DraftEvent{}, ErrBadState
	}
	r.gen++
	r.state = StateCommitting
	return r.gen, *r.draft, nil
}

// CompleteCommit applies the outcome of a commit. On success the draft is
// released and the freshly fetched day view installed; on failure the draft
// and the previous day view stay untouched so the user can retry. A nil day
// on success means the post-commit refresh failed; the previous view is kept
// rather than shown empty.
func (r *Review) CompleteCommit(gen uint64, day models.DayView, commitErr error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen || r.state != StateCommitting {
		return false
	}
	if commitErr != nil {
		r.state = StateFailed
		r.failedFrom = StateCommitting
		r.failure = commitErr.Error()
		return true
	}
	r.draft = nil
	if day != nil {
		r.day = day
	}
	r.state = StateIdle
	r.failure = ""
	return true
}

// Acknowledge dismisses a failure. A failed commit keeps its draft and
// returns to AwaitingConfirmation for retry; a failed resolution discards
// everything and returns to Idle.
func (r *Review) Acknowledge() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateFailed {
		return ErrBadState
	}
	r.failure = ""
	if r.failedFrom == StateCommitting && r.draft != nil {
		r.state = StateAwaitingConfirmation
		return nil
	}
	r.draft = nil
	r.state = StateIdle
	return nil
}

// SetDayView replaces the cached day view after an out-of-band refresh.
func (r *Review) SetDayView(day models.DayView) {
	r.mu.Lock()
	r.day = day
	r.mu.Unlock()
}

func (r *Review) draftCopy() *models.DraftEvent {
	if r.draft == nil {
		return nil
	}
	d := *r.draft
	return &d
}
