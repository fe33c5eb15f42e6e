package server

import (
	"bytes"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"silvercal/internal/auth"
	"silvercal/internal/google"
	"silvercal/internal/ics"
	"silvercal/internal/models"
	"silvercal/internal/resolver"
	"silvercal/internal/session"
)

// User-facing messages, kept in Korean as the service targets one spoken
// language.
const (
	msgNotAuthenticated  = "로그인이 필요합니다."
	msgSessionExpired    = "로그인이 풀렸어요. 다시 로그인해 주세요."
	msgNeedCalendarGrant = "구글 캘린더 사용 허락이 필요해요. 로그아웃 후 다시 로그인할 때 '캘린더 관리'를 꼭 눌러주세요!"
	msgParseFailed       = "일정을 이해하지 못했어요."
	msgSaveFailed        = "일정을 저장하는 중에 문제가 생겼어요. 잠시 후 다시 시도해 주세요."
	msgFetchFailed       = "일정을 불러오지 못했습니다."
	msgUpdateFailed      = "일정을 수정하지 못했습니다."
	msgDeleteFailed      = "일정을 삭제하지 못했습니다."
	msgEventNotFound     = "일정을 찾을 수 없어요."
	msgDraftHeld         = "이미 확인을 기다리는 일정이 있어요. 먼저 완료하거나 취소해 주세요."
)

const oauthStateCookie = "oauth_state"

// --- auth ---

func (s *Server) handleLogin(c *fiber.Ctx) error {
	state := uuid.New().String()
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		HTTPOnly: true,
		MaxAge:   300,
	})
	return c.Redirect(s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

func (s *Server) handleCallback(c *fiber.Ctx) error {
	if c.Query("state") == "" || c.Query("state") != c.Cookies(oauthStateCookie) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msgNotAuthenticated})
	}

	token, err := auth.Exchange(c.UserContext(), s.oauth, c.Query("code"))
	if err != nil {
		s.logger.Error("OAuth code exchange failed", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msgNotAuthenticated})
	}

	name, err := auth.DisplayName(c.UserContext(), s.oauth, token)
	if err != nil {
		s.logger.Warn("Could not fetch display name", "error", err)
	}

	sess := s.sessions.Create(name, token)
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		HTTPOnly: true,
	})

	s.logger.Info("User signed in", "name", name)
	return c.Redirect("/")
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	if id := c.Cookies(sessionCookie); id != "" {
		s.sessions.Delete(id)
		s.reviews.Drop(id)
	}
	c.ClearCookie(sessionCookie)
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"name": s.currentSession(c).Name})
}

// --- normalization ---

func (s *Server) handleParseSchedule(c *fiber.Ctx) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgParseFailed})
	}

	rev := s.review(c)
	gen, err := rev.BeginResolve()
	if err != nil {
		return s.sessionError(c, err)
	}

	draft, resolveErr := s.resolver.Resolve(c.UserContext(), body.Text, s.now())
	applied := rev.CompleteResolve(gen, draft, resolveErr)

	if resolveErr != nil {
		if errors.Is(resolveErr, resolver.ErrParse) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgParseFailed})
		}
		s.logger.Error("Resolution failed", "error", resolveErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgParseFailed})
	}
	if !applied {
		// The user cancelled while the model call was in flight; the result
		// is dropped and the session stays wherever it moved on to.
		return c.JSON(fiber.Map{"state": rev.Snapshot().State.String()})
	}

	return c.JSON(draft)
}

// --- capture bracketing ---

func (s *Server) handleCaptureStart(c *fiber.Ctx) error {
	rev := s.review(c)
	if err := rev.StartCapture(); err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(fiber.Map{"state": rev.Snapshot().State.String()})
}

func (s *Server) handleCaptureStop(c *fiber.Ctx) error {
	rev := s.review(c)
	if err := rev.StopCapture(); err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(fiber.Map{"state": rev.Snapshot().State.String()})
}

// --- review cycle ---

func (s *Server) handleReviewSnapshot(c *fiber.Ctx) error {
	snap := s.review(c).Snapshot()
	return c.JSON(snapshotJSON(snap))
}

func (s *Server) handleReviewConfirm(c *fiber.Ctx) error {
	sess := s.currentSession(c)
	rev := s.review(c)

	gen, draft, err := rev.BeginCommit()
	if err != nil {
		return s.sessionError(c, err)
	}

	req, err := s.mapper.ToRemote(draft)
	if err != nil {
		rev.CompleteCommit(gen, nil, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgSaveFailed})
	}

	var remote *models.RemoteEvent
	var commitErr error
	if draft.IsUpdate() {
		remote, commitErr = s.gateway.Update(c.UserContext(), sess.AccessToken(), draft.EventID, req)
	} else {
		remote, commitErr = s.gateway.Create(c.UserContext(), sess.AccessToken(), req)
	}
	if commitErr != nil {
		rev.CompleteCommit(gen, nil, commitErr)
		return s.calendarError(c, commitErr, msgSaveFailed)
	}

	day, listErr := s.gateway.ListForDay(c.UserContext(), sess.AccessToken(), s.now())
	if listErr != nil {
		// The write went through; keep the stale view instead of failing the
		// whole commit.
		s.logger.Warn("Post-commit refresh failed", "error", listErr)
		day = nil
	}
	rev.CompleteCommit(gen, day, nil)

	snap := rev.Snapshot()
	return c.JSON(fiber.Map{"success": true, "result": remote, "events": snap.Day})
}

func (s *Server) handleReviewCancel(c *fiber.Ctx) error {
	rev := s.review(c)
	if err := rev.Cancel(); err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(fiber.Map{"state": rev.Snapshot().State.String()})
}

func (s *Server) handleReviewAcknowledge(c *fiber.Ctx) error {
	rev := s.review(c)
	if err := rev.Acknowledge(); err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(snapshotJSON(rev.Snapshot()))
}

// --- calendar passthroughs ---

func (s *Server) handleGetEvents(c *fiber.Ctx) error {
	sess := s.currentSession(c)

	day, err := s.requestedDay(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgFetchFailed})
	}

	view, err := s.gateway.ListForDay(c.UserContext(), sess.AccessToken(), day)
	if err != nil {
		return s.calendarError(c, err, msgFetchFailed)
	}

	s.review(c).SetDayView(view)
	return c.JSON(view)
}

func (s *Server) handleExportICS(c *fiber.Ctx) error {
	sess := s.currentSession(c)

	day, err := s.requestedDay(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgFetchFailed})
	}

	view, err := s.gateway.ListForDay(c.UserContext(), sess.AccessToken(), day)
	if err != nil {
		return s.calendarError(c, err, msgFetchFailed)
	}

	var buf bytes.Buffer
	if err := ics.Encode(&buf, view); err != nil {
		s.logger.Error("ICS export failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgFetchFailed})
	}

	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="events.ics"`)
	return c.Send(buf.Bytes())
}

func (s *Server) handleAddEvent(c *fiber.Ctx) error {
	sess := s.currentSession(c)

	var draft models.DraftEvent
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgSaveFailed})
	}
	draft.EventID = ""

	req, err := s.mapper.ToRemote(draft)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgSaveFailed})
	}

	remote, err := s.gateway.Create(c.UserContext(), sess.AccessToken(), req)
	if err != nil {
		return s.calendarError(c, err, msgSaveFailed)
	}
	return c.JSON(fiber.Map{"success": true, "result": remote})
}

func (s *Server) handleUpdateEvent(c *fiber.Ctx) error {
	sess := s.currentSession(c)

	var draft models.DraftEvent
	if err := c.BodyParser(&draft); err != nil || draft.EventID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgUpdateFailed})
	}

	req, err := s.mapper.ToRemote(draft)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgUpdateFailed})
	}

	remote, err := s.gateway.Update(c.UserContext(), sess.AccessToken(), draft.EventID, req)
	if err != nil {
		return s.calendarError(c, err, msgUpdateFailed)
	}
	return c.JSON(fiber.Map{"success": true, "result": remote})
}

func (s *Server) handleDeleteEvent(c *fiber.Ctx) error {
	sess := s.currentSession(c)

	var body struct {
		EventID string `json:"eventId"`
	}
	if err := c.BodyParser(&body); err != nil || body.EventID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgDeleteFailed})
	}

	if err := s.gateway.Delete(c.UserContext(), sess.AccessToken(), body.EventID); err != nil {
		return s.calendarError(c, err, msgDeleteFailed)
	}
	return c.JSON(fiber.Map{"success": true})
}

// handleStartEdit turns one of the day's events into a draft held for review.
func (s *Server) handleStartEdit(c *fiber.Ctx) error {
	rev := s.review(c)
	id := c.Params("id")

	var found *models.RemoteEvent
	for _, ev := range rev.Snapshot().Day {
		if ev.ID == id {
			e := ev
			found = &e
			break
		}
	}
	if found == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msgEventNotFound})
	}

	draft := s.mapper.FromRemote(*found)
	if err := rev.BeginEdit(draft); err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(draft)
}

// --- helpers ---

// requestedDay parses the optional ?date=YYYY-MM-DD query, defaulting to
// today in the fixed timezone.
func (s *Server) requestedDay(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return s.now().In(s.mapper.Location()), nil
	}
	return time.ParseInLocation("2006-01-02", raw, s.mapper.Location())
}

// calendarError maps gateway failures onto response codes and messages. An
// expired credential and a missing calendar grant are called out so the user
// can fix them; everything else gets the operation's generic message.
func (s *Server) calendarError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, google.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msgSessionExpired})
	case errors.Is(err, google.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": msgNeedCalendarGrant})
	default:
		s.logger.Error("Calendar call failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}

// sessionError maps review state machine rejections.
func (s *Server) sessionError(c *fiber.Ctx, err error) error {
	if errors.Is(err, session.ErrDraftHeld) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msgDraftHeld})
	}
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
}

func snapshotJSON(snap session.Snapshot) fiber.Map {
	return fiber.Map{
		"state":  snap.State.String(),
		"draft":  snap.Draft,
		"events": snap.Day,
		"error":  snap.Error,
	}
}
