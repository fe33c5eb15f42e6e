package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"silvercal/internal/models"
)

// Encode writes a day view as an iCalendar document, giving the day's events
// a renderer other calendar apps can import.
func Encode(w io.Writer, day models.DayView) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//silvercal//EN")

	for _, event := range day {
		cal.Children = append(cal.Children, toVEvent(event))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode day view as iCalendar: %w", err)
	}
	return nil
}

// toVEvent converts a remote event to a VEVENT component.
func toVEvent(event models.RemoteEvent) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)

	uid := event.ID
	if uid == "" {
		uid = uuid.New().String()
	}
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.End)

	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	return ve
}
