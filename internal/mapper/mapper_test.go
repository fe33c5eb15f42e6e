package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silvercal/internal/models"
)

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

func strptr(s string) *string { return &s }

func TestToRemote_WithTime(t *testing.T) {
	t.Parallel()

	m := New(seoul(t))
	req, err := m.ToRemote(models.DraftEvent{
		Title:    "병원",
		Date:     "2024-05-02",
		Time:     strptr("15:00"),
		Location: strptr("서울대병원"),
	})
	require.NoError(t, err)

	assert.Equal(t, "병원", req.Title)
	assert.Equal(t, "서울대병원", req.Location)
	assert.Equal(t, 2024, req.Start.Year())
	assert.Equal(t, time.May, req.Start.Month())
	assert.Equal(t, 2, req.Start.Day())
	assert.Equal(t, 15, req.Start.Hour())
	assert.Equal(t, 0, req.Start.Minute())
	assert.Equal(t, "Asia/Seoul", req.Start.Location().String())
}

func TestToRemote_MissingTimeDefaultsToNine(t *testing.T) {
	t.Parallel()

	m := New(seoul(t))
	req, err := m.ToRemote(models.DraftEvent{
		Title: "친구 만나기",
		Date:  "2024-05-03",
	})
	require.NoError(t, err)

	assert.Equal(t, 9, req.Start.Hour())
	assert.Equal(t, 0, req.Start.Minute())
	assert.Equal(t, "", req.Location)
}

func TestToRemote_DurationIsExactlyOneHour(t *testing.T) {
	t.Parallel()

	m := New(seoul(t))
	drafts := []models.DraftEvent{
		{Title: "a", Date: "2024-05-02", Time: strptr("15:00")},
		{Title: "b", Date: "2024-05-02"},
		{Title: "c", Date: "2024-12-31", Time: strptr("23:30")},
	}
	for _, d := range drafts {
		req, err := m.ToRemote(d)
		require.NoError(t, err)
		assert.Equal(t, 3600*time.Second, req.End.Sub(req.Start))
	}
}

func TestToRemote_WatermarkOnlyOnCreate(t *testing.T) {
	t.Parallel()

	m := New(seoul(t))

	created, err := m.ToRemote(models.DraftEvent{Title: "a", Date: "2024-05-02"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Description)

	updated, err := m.ToRemote(models.DraftEvent{EventID: "ev1", Title: "a", Date: "2024-05-02"})
	require.NoError(t, err)
	assert.Empty(t, updated.Description)
}

func TestToRemote_InvalidInput(t *testing.T) {
	t.Parallel()

	m := New(seoul(t))

	_, err := m.ToRemote(models.DraftEvent{Title: "a", Date: "내일"})
	assert.Error(t, err)

	_, err = m.ToRemote(models.DraftEvent{Title: "a", Date: "2024-05-02", Time: strptr("3pm")})
	assert.Error(t, err)
}

func TestRoundTrip_TimePresent(t *testing.T) {
	t.Parallel()

	m := New(seoul(t))
	original := models.DraftEvent{
		Title: "치과",
		Date:  "2024-05-02",
		Time:  strptr("15:00"),
	}

	req, err := m.ToRemote(original)
	require.NoError(t, err)

	back := m.FromRemote(models.RemoteEvent{
		ID:    "ev1",
		Title: req.Title,
		Start: req.Start,
		End:   req.End,
	})

	assert.Equal(t, original.Date, back.Date)
	require.NotNil(t, back.Time)
	assert.Equal(t, *original.Time, *back.Time)
	assert.Equal(t, "ev1", back.EventID)
}

func TestFromRemote_AllDayHasNoTime(t *testing.T) {
	t.Parallel()

	loc := seoul(t)
	m := New(loc)

	back := m.FromRemote(models.RemoteEvent{
		ID:     "ev2",
		Title:  "어버이날",
		Start:  time.Date(2024, 5, 8, 0, 0, 0, 0, loc),
		End:    time.Date(2024, 5, 9, 0, 0, 0, 0, loc),
		AllDay: true,
	})

	assert.Equal(t, "2024-05-08", back.Date)
	assert.Nil(t, back.Time)
}

func TestFromRemote_ConvertsForeignZone(t *testing.T) {
	t.Parallel()

	m := New(seoul(t))

	// 06:00 UTC is 15:00 in Seoul.
	back := m.FromRemote(models.RemoteEvent{
		ID:    "ev3",
		Title: "call",
		Start: time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 5, 2, 7, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "2024-05-02", back.Date)
	require.NotNil(t, back.Time)
	assert.Equal(t, "15:00", *back.Time)
}
