package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"silvercal/internal/models"
)

// The service always targets the user's primary calendar.
const calendarID = "primary"

// Classified failures from the calendar store. Unauthorized and Forbidden are
// kept distinct so the boundary can ask the user to re-authenticate or to
// grant the calendar scope; everything else stays a generic remote failure.
var (
	ErrUnauthorized = errors.New("calendar credential rejected")
	ErrForbidden    = errors.New("calendar access not granted")
	ErrNotFound     = errors.New("calendar event not found")
)

// CalendarClient performs create, list, update and delete against the Google
// Calendar API on behalf of a single user. Each call carries that user's
// access token; no result is cached and no call is retried.
type CalendarClient struct {
	logger *slog.Logger
	loc    *time.Location
	tzName string
}

// NewClient creates a calendar client interpreting day windows and wall-clock
// values in the given fixed timezone.
func NewClient(logger *slog.Logger, loc *time.Location) *CalendarClient {
	return &CalendarClient{logger: logger, loc: loc, tzName: loc.String()}
}

// service builds a per-call calendar service authenticated with the session's
// access token.
func (c *CalendarClient) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

// Create inserts a new event into the primary calendar.
func (c *CalendarClient) Create(ctx context.Context, accessToken string, req models.EventRequest) (*models.RemoteEvent, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	created, err := svc.Events.Insert(calendarID, c.toGoogleEvent(req)).Context(ctx).Do()
	if err != nil {
		return nil, c.classify("insert event", err)
	}

	c.logger.Info("Created calendar event", "id", created.Id, "title", created.Summary)
	return c.toRemoteEvent(created)
}

// ListForDay fetches the events of one calendar day, using the inclusive
// [00:00:00, 23:59:59] window of that day in the fixed timezone. Recurring
// events come back singly expanded and the result is ascending by start time.
func (c *CalendarClient) ListForDay(ctx context.Context, accessToken string, day time.Time) (models.DayView, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	day = day.In(c.loc)
	tmin := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.loc)
	tmax := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, c.loc)

	resp, err := svc.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin.Format(time.RFC3339)).
		TimeMax(tmax.Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, c.classify("list events", err)
	}

	view := make(models.DayView, 0, len(resp.Items))
	for _, item := range resp.Items {
		ev, err := c.toRemoteEvent(item)
		if err != nil {
			c.logger.Warn("Skipping event with unusable start", "id", item.Id, "error", err)
			continue
		}
		view = append(view, *ev)
	}

	sortAscending(view)

	c.logger.Debug("Fetched day view", "day", tmin.Format("2006-01-02"), "count", len(view))
	return view, nil
}

// Update patches an existing event in the primary calendar.
func (c *CalendarClient) Update(ctx context.Context, accessToken, id string, req models.EventRequest) (*models.RemoteEvent, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	patch := c.toGoogleEvent(req)
	updated, err := svc.Events.Patch(calendarID, id, patch).Context(ctx).Do()
	if err != nil {
		return nil, c.classify("patch event", err)
	}

	c.logger.Info("Updated calendar event", "id", updated.Id, "title", updated.Summary)
	return c.toRemoteEvent(updated)
}

// Delete removes an event from the primary calendar.
func (c *CalendarClient) Delete(ctx context.Context, accessToken, id string) error {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(calendarID, id).Context(ctx).Do(); err != nil {
		return c.classify("delete event", err)
	}

	c.logger.Info("Deleted calendar event", "id", id)
	return nil
}

// toGoogleEvent converts the provider-neutral payload to the API's shape.
func (c *CalendarClient) toGoogleEvent(req models.EventRequest) *calendar.Event {
	ev := &calendar.Event{
		Summary:  req.Title,
		Location: req.Location,
		Start: &calendar.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: c.tzName,
		},
		End: &calendar.EventDateTime{
			DateTime: req.End.Format(time.RFC3339),
			TimeZone: c.tzName,
		},
	}
	if req.Description != "" {
		ev.Description = req.Description
	}
	return ev
}

// toRemoteEvent converts a Google Calendar event to the internal model.
// All-day events carry a date instead of a dateTime; they map to midnight in
// the fixed timezone with AllDay set.
func (c *CalendarClient) toRemoteEvent(item *calendar.Event) (*models.RemoteEvent, error) {
	if item.Start == nil {
		return nil, fmt.Errorf("event %s has no start", item.Id)
	}

	ev := &models.RemoteEvent{
		ID:       item.Id,
		Title:    item.Summary,
		Location: item.Location,
	}

	switch {
	case item.Start.DateTime != "":
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return nil, fmt.Errorf("event %s has malformed start: %w", item.Id, err)
		}
		ev.Start = start.In(c.loc)
		if item.End != nil && item.End.DateTime != "" {
			if end, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
				ev.End = end.In(c.loc)
			}
		}
	case item.Start.Date != "":
		start, err := time.ParseInLocation("2006-01-02", item.Start.Date, c.loc)
		if err != nil {
			return nil, fmt.Errorf("event %s has malformed all-day start: %w", item.Id, err)
		}
		ev.Start = start
		ev.End = start.AddDate(0, 0, 1)
		ev.AllDay = true
	default:
		return nil, fmt.Errorf("event %s has neither dateTime nor date start", item.Id)
	}

	return ev, nil
}

// sortAscending keeps the day view non-decreasing by start time. The API
// orders timed events, but all-day items are interleaved by date only.
func sortAscending(view models.DayView) {
	sort.SliceStable(view, func(i, j int) bool { return view[i].Start.Before(view[j].Start) })
}

// classify maps API failures onto the gateway's error taxonomy.
func (c *CalendarClient) classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401:
			return fmt.Errorf("%w: %s", ErrUnauthorized, gerr.Message)
		case 403:
			return fmt.Errorf("%w: %s", ErrForbidden, gerr.Message)
		case 404, 410:
			return fmt.Errorf("%w: %s", ErrNotFound, gerr.Message)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
