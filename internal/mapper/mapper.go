package mapper

import (
	"fmt"
	"time"

	"silvercal/internal/models"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// defaultStartHour is applied when an utterance carries a date but no
	// clock time.
	defaultStartHour = 9

	// eventDuration is fixed; the service never asks the user for an end time.
	eventDuration = time.Hour

	// watermark is attached to events created through this service.
	watermark = "실버 캘린더에서 등록된 일정입니다."
)

// Mapper converts between draft events and the provider-neutral event payload.
// All wall-clock interpretation happens in a single fixed timezone.
type Mapper struct {
	loc *time.Location
}

// New creates a Mapper bound to the given timezone.
func New(loc *time.Location) *Mapper {
	return &Mapper{loc: loc}
}

// Location returns the timezone the mapper interprets wall-clock values in.
func (m *Mapper) Location() *time.Location {
	return m.loc
}

// ToRemote converts a confirmed draft into the payload sent to the calendar
// store. A draft without a time starts at 09:00; the end is always exactly
// one hour after the start.
func (m *Mapper) ToRemote(d models.DraftEvent) (models.EventRequest, error) {
	day, err := time.ParseInLocation(dateLayout, d.Date, m.loc)
	if err != nil {
		return models.EventRequest{}, fmt.Errorf("invalid draft date %q: %w", d.Date, err)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), defaultStartHour, 0, 0, 0, m.loc)
	if d.Time != nil {
		clock, err := time.Parse(timeLayout, *d.Time)
		if err != nil {
			return models.EventRequest{}, fmt.Errorf("invalid draft time %q: %w", *d.Time, err)
		}
		start = time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, m.loc)
	}

	req := models.EventRequest{
		Title: d.Title,
		Start: start,
		End:   start.Add(eventDuration),
	}
	if d.Location != nil {
		req.Location = *d.Location
	}
	if !d.IsUpdate() {
		req.Description = watermark
	}
	return req, nil
}

// FromRemote converts a remote event into a draft for editing. The draft keeps
// the remote id so that committing it patches the existing event. All-day
// events map to a draft without a time.
func (m *Mapper) FromRemote(e models.RemoteEvent) models.DraftEvent {
	start := e.Start.In(m.loc)
	d := models.DraftEvent{
		EventID: e.ID,
		Title:   e.Title,
		Date:    start.Format(dateLayout),
	}
	if !e.AllDay {
		clock := start.Format(timeLayout)
		d.Time = &clock
	}
	if e.Location != "" {
		loc := e.Location
		d.Location = &loc
	}
	return d
}
