package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"silvercal/internal/models"
)

// ErrParse marks an utterance the language model could not turn into a
// coherent event. Callers treat it as "please repeat", not a fatal error.
var ErrParse = errors.New("utterance could not be resolved into an event")

const systemPromptFormat = `당신은 시니어를 돕는 일정 도우미입니다.
입력된 텍스트에서 [날짜, 시간, 할 일, 장소]를 추출하여 JSON 형식으로 응답하세요.
상대적인 시간(내일, 이번주 토요일 등)은 현재 시간(%s)을 기준으로 절대 날짜로 변환하세요.
시간이 없으면 null로 표시하세요.
응답 형식: { "date": "YYYY-MM-DD", "time": "HH:mm" 또는 null, "title": "할일", "location": "장소" 또는 null }`

// Completer is the single call the resolver needs from the language model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Resolver turns a free-form utterance plus a reference instant into a draft
// event. The language understanding itself is delegated; the resolver owns the
// prompt contract and validates the model's output before letting it through.
type Resolver struct {
	completer Completer
	logger    *slog.Logger
	loc       *time.Location
}

// New creates a Resolver using the given completion backend and timezone.
func New(completer Completer, logger *slog.Logger, loc *time.Location) *Resolver {
	return &Resolver{completer: completer, logger: logger, loc: loc}
}

// Resolve normalizes an utterance into a draft event. Relative expressions are
// resolved against ref; the returned draft always carries an absolute date.
// A response that is not valid JSON or violates the contract yields ErrParse;
// no partial draft is ever returned and the call is never retried.
func (r *Resolver) Resolve(ctx context.Context, utterance string, ref time.Time) (*models.DraftEvent, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, fmt.Errorf("%w: empty utterance", ErrParse)
	}

	system := fmt.Sprintf(systemPromptFormat, ref.In(r.loc).Format(time.RFC3339))
	content, err := r.completer.Complete(ctx, system, utterance)
	if err != nil {
		return nil, fmt.Errorf("language model call failed: %w", err)
	}

	var payload struct {
		Date     string  `json:"date"`
		Time     *string `json:"time"`
		Title    string  `json:"title"`
		Location *string `json:"location"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		r.logger.Warn("Model returned non-JSON content", "error", err)
		return nil, fmt.Errorf("%w: malformed model response", ErrParse)
	}

	if strings.TrimSpace(payload.Title) == "" {
		return nil, fmt.Errorf("%w: missing title", ErrParse)
	}
	if _, err := time.ParseInLocation("2006-01-02", payload.Date, r.loc); err != nil {
		r.logger.Warn("Model returned unusable date", "date", payload.Date)
		return nil, fmt.Errorf("%w: invalid date %q", ErrParse, payload.Date)
	}
	if payload.Time != nil {
		if _, err := time.Parse("15:04", *payload.Time); err != nil {
			r.logger.Warn("Model returned unusable time", "time", *payload.Time)
			return nil, fmt.Errorf("%w: invalid time %q", ErrParse, *payload.Time)
		}
	}

	draft := &models.DraftEvent{
		Title:    strings.TrimSpace(payload.Title),
		Date:     payload.Date,
		Time:     payload.Time,
		Location: payload.Location,
	}

	r.logger.Debug("Resolved utterance", "date", draft.Date, "hasTime", draft.Time != nil)
	return draft, nil
}
