package google

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"silvercal/internal/models"
)

func testClient(t *testing.T) *CalendarClient {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), loc)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	c := testClient(t)

	cases := []struct {
		code int
		want error
	}{
		{401, ErrUnauthorized},
		{403, ErrForbidden},
		{404, ErrNotFound},
		{410, ErrNotFound},
	}
	for _, tc := range cases {
		err := c.classify("list events", &googleapi.Error{Code: tc.code, Message: "nope"})
		assert.ErrorIs(t, err, tc.want, "code %d", tc.code)
	}

	// Other status codes and plain errors stay generic.
	err := c.classify("list events", &googleapi.Error{Code: 500})
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = c.classify("list events", errors.New("connection reset"))
	assert.Contains(t, err.Error(), "failed to list events")
}

func TestToGoogleEvent(t *testing.T) {
	t.Parallel()

	c := testClient(t)
	start := time.Date(2024, 5, 2, 15, 0, 0, 0, c.loc)
	ev := c.toGoogleEvent(models.EventRequest{
		Title:       "병원",
		Location:    "서울대병원",
		Description: "메모",
		Start:       start,
		End:         start.Add(time.Hour),
	})

	assert.Equal(t, "병원", ev.Summary)
	assert.Equal(t, "서울대병원", ev.Location)
	assert.Equal(t, "메모", ev.Description)
	assert.Equal(t, "Asia/Seoul", ev.Start.TimeZone)
	assert.Equal(t, "2024-05-02T15:00:00+09:00", ev.Start.DateTime)
	assert.Equal(t, "2024-05-02T16:00:00+09:00", ev.End.DateTime)
}

func TestToRemoteEvent_Timed(t *testing.T) {
	t.Parallel()

	c := testClient(t)
	ev, err := c.toRemoteEvent(&calendar.Event{
		Id:      "ev1",
		Summary: "병원",
		Start:   &calendar.EventDateTime{DateTime: "2024-05-02T06:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2024-05-02T07:00:00Z"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ev1", ev.ID)
	assert.False(t, ev.AllDay)
	// Stored in the fixed zone: 06:00 UTC is 15:00 KST.
	assert.Equal(t, 15, ev.Start.Hour())
	assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
}

func TestToRemoteEvent_AllDay(t *testing.T) {
	t.Parallel()

	c := testClient(t)
	ev, err := c.toRemoteEvent(&calendar.Event{
		Id:      "ev2",
		Summary: "어버이날",
		Start:   &calendar.EventDateTime{Date: "2024-05-08"},
		End:     &calendar.EventDateTime{Date: "2024-05-09"},
	})
	require.NoError(t, err)

	assert.True(t, ev.AllDay)
	assert.Equal(t, 0, ev.Start.Hour())
	assert.Equal(t, "2024-05-08", ev.Start.Format("2006-01-02"))
}

func TestSortAscending(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	view := models.DayView{
		{ID: "c", Start: base.Add(15 * time.Hour)},
		{ID: "a", Start: base},
		{ID: "b", Start: base.Add(9 * time.Hour)},
		{ID: "b2", Start: base.Add(9 * time.Hour)},
	}
	sortAscending(view)

	for i := 1; i < len(view); i++ {
		assert.False(t, view[i].Start.Before(view[i-1].Start))
	}
	// Stable for equal starts.
	assert.Equal(t, "b", view[1].ID)
	assert.Equal(t, "b2", view[2].ID)
}

func TestToRemoteEvent_MissingStart(t *testing.T) {
	t.Parallel()

	c := testClient(t)

	_, err := c.toRemoteEvent(&calendar.Event{Id: "ev3"})
	assert.Error(t, err)

	_, err = c.toRemoteEvent(&calendar.Event{Id: "ev4", Start: &calendar.EventDateTime{}})
	assert.Error(t, err)
}
