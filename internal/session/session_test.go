package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silvercal/internal/models"
)

func draft(title string) *models.DraftEvent {
	return &models.DraftEvent{Title: title, Date: "2024-05-02"}
}

func TestReview_HappyPath(t *testing.T) {
	t.Parallel()

	r := NewReview()
	require.NoError(t, r.StartCapture())
	assert.Equal(t, StateCapturing, r.Snapshot().State)

	gen, err := r.BeginResolve()
	require.NoError(t, err)
	assert.Equal(t, StateResolving, r.Snapshot().State)

	require.True(t, r.CompleteResolve(gen, draft("병원"), nil))
	assert.Equal(t, StateAwaitingConfirmation, r.Snapshot().State)

	cgen, d, err := r.BeginCommit()
	require.NoError(t, err)
	assert.Equal(t, "병원", d.Title)
	assert.Equal(t, StateCommitting, r.Snapshot().State)

	day := models.DayView{{ID: "ev1", Title: "병원"}}
	require.True(t, r.CompleteCommit(cgen, day, nil))

	snap := r.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Draft)
	assert.Len(t, snap.Day, 1)
}

func TestReview_SingleSlotRejectsNewCapture(t *testing.T) {
	t.Parallel()

	r := NewReview()
	gen, err := r.BeginResolve()
	require.NoError(t, err)
	require.True(t, r.CompleteResolve(gen, draft("병원"), nil))

	// A draft is awaiting confirmation; nothing new may start, and the held
	// draft must survive the rejection.
	assert.ErrorIs(t, r.StartCapture(), ErrDraftHeld)
	_, err = r.BeginResolve()
	assert.ErrorIs(t, err, ErrDraftHeld)
	assert.ErrorIs(t, r.BeginEdit(*draft("약국")), ErrDraftHeld)

	snap := r.Snapshot()
	require.NotNil(t, snap.Draft)
	assert.Equal(t, "병원", snap.Draft.Title)
}

func TestReview_CancelDropsLateResolveResult(t *testing.T) {
	t.Parallel()

	r := NewReview()
	gen, err := r.BeginResolve()
	require.NoError(t, err)

	require.NoError(t, r.Cancel())
	assert.Equal(t, StateIdle, r.Snapshot().State)

	// The in-flight resolution finishes after the cancel; it must not
	// resurrect the session.
	assert.False(t, r.CompleteResolve(gen, draft("늦은 결과"), nil))
	snap := r.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Draft)
}

func TestReview_ResolveFailure(t *testing.T) {
	t.Parallel()

	r := NewReview()
	gen, err := r.BeginResolve()
	require.NoError(t, err)

	require.True(t, r.CompleteResolve(gen, nil, errors.New("no coherent event")))
	snap := r.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Nil(t, snap.Draft)
	assert.NotEmpty(t, snap.Error)

	// Acknowledging a resolve failure discards and returns to idle.
	require.NoError(t, r.Acknowledge())
	assert.Equal(t, StateIdle, r.Snapshot().State)
}

func TestReview_CommitFailureRetainsDraftAndDayView(t *testing.T) {
	t.Parallel()

	r := NewReview()
	previous := models.DayView{{ID: "old", Title: "기존 일정"}}
	r.SetDayView(previous)

	gen, err := r.BeginResolve()
	require.NoError(t, err)
	require.True(t, r.CompleteResolve(gen, draft("병원"), nil))

	cgen, _, err := r.BeginCommit()
	require.NoError(t, err)
	require.True(t, r.CompleteCommit(cgen, nil, errors.New("remote failure")))

	snap := r.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	require.NotNil(t, snap.Draft)
	assert.Equal(t, "병원", snap.Draft.Title)
	require.Len(t, snap.Day, 1)
	assert.Equal(t, "old", snap.Day[0].ID)

	// Acknowledging a commit failure keeps the draft for retry.
	require.NoError(t, r.Acknowledge())
	snap = r.Snapshot()
	assert.Equal(t, StateAwaitingConfirmation, snap.State)
	require.NotNil(t, snap.Draft)

	// The retry can now succeed.
	cgen, _, err = r.BeginCommit()
	require.NoError(t, err)
	require.True(t, r.CompleteCommit(cgen, models.DayView{{ID: "new"}}, nil))
	assert.Equal(t, StateIdle, r.Snapshot().State)
}

func TestReview_SuccessfulCommitWithFailedRefreshKeepsOldView(t *testing.T) {
	t.Parallel()

	r := NewReview()
	r.SetDayView(models.DayView{{ID: "old"}})

	require.NoError(t, r.BeginEdit(*draft("수정")))
	cgen, _, err := r.BeginCommit()
	require.NoError(t, err)

	// Commit succeeded but the post-commit refresh did not produce a view.
	require.True(t, r.CompleteCommit(cgen, nil, nil))
	snap := r.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	require.Len(t, snap.Day, 1)
	assert.Equal(t, "old", snap.Day[0].ID)
}

func TestReview_EditEntry(t *testing.T) {
	t.Parallel()

	r := NewReview()
	d := models.DraftEvent{EventID: "ev1", Title: "치과", Date: "2024-05-02"}
	require.NoError(t, r.BeginEdit(d))

	snap := r.Snapshot()
	assert.Equal(t, StateAwaitingConfirmation, snap.State)
	require.NotNil(t, snap.Draft)
	assert.Equal(t, "ev1", snap.Draft.EventID)

	// Cancelling discards the draft.
	require.NoError(t, r.Cancel())
	assert.Nil(t, r.Snapshot().Draft)
}

func TestReview_StopCapture(t *testing.T) {
	t.Parallel()

	r := NewReview()
	require.NoError(t, r.StartCapture())
	require.NoError(t, r.StopCapture())
	assert.Equal(t, StateIdle, r.Snapshot().State)

	assert.ErrorIs(t, r.StopCapture(), ErrBadState)
}

func TestReview_BadStateTransitions(t *testing.T) {
	t.Parallel()

	r := NewReview()
	_, _, err := r.BeginCommit()
	assert.ErrorIs(t, err, ErrBadState)
	assert.ErrorIs(t, r.Cancel(), ErrBadState)
	assert.ErrorIs(t, r.Acknowledge(), ErrBadState)
}

func TestRegistry_IsolatesSessions(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	a := g.For("user-a")
	b := g.For("user-b")
	require.NotSame(t, a, b)

	require.NoError(t, a.StartCapture())
	assert.Equal(t, StateCapturing, a.Snapshot().State)
	assert.Equal(t, StateIdle, b.Snapshot().State)

	assert.Same(t, a, g.For("user-a"))
	g.Drop("user-a")
	assert.NotSame(t, a, g.For("user-a"))
}
