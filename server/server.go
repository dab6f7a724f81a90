// Package server exposes the conversation engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/pattarawat/docassist/agent/agents/orchestrator"
	nodex "github.com/pattarawat/docassist/agent/nodes/orchestrator"
	statex "github.com/pattarawat/docassist/agent/state"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

type Server struct {
	echo *echo.Echo
	orch *orchestratorx.Orchestrator
	cfg  Config
}

func New(cfg Config, orch *orchestratorx.Orchestrator) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{echo: e, orch: orch, cfg: cfg}

	v1 := e.Group("/v1")
	v1.POST("/sessions", s.createSession)
	v1.GET("/sessions", s.listSessions)
	v1.POST("/sessions/:session_id/messages", s.sendMessage)
	v1.GET("/sessions/:session_id/audit", s.auditTrail)
	v1.DELETE("/sessions/:session_id", s.closeSession)
	v1.GET("/documents", s.listDocuments)
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	return s
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.orch.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

type createSessionRequest struct {
	UserID          string `json:"user_id"`
	ResumeSessionID string `json:"resume_session_id,omitempty"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Phase     string `json:"phase"`
	TurnCount int    `json:"turn_count"`
	Summary   string `json:"summary,omitempty"`
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.UserID) == "" && req.ResumeSessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	handle, err := s.orch.StartSession(c.Request().Context(), strings.TrimSpace(req.UserID), strings.TrimSpace(req.ResumeSessionID))
	if err != nil {
		return mapError(err)
	}

	session := handle.Session()
	return c.JSON(http.StatusCreated, sessionResponse{
		SessionID: handle.ID(),
		UserID:    handle.UserID(),
		Phase:     handle.Phase().String(),
		TurnCount: len(session.Turns),
		Summary:   session.Context.Summary,
	})
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	Text      string   `json:"text"`
	Intent    string   `json:"intent"`
	Sources   []string `json:"sources,omitempty"`
	ToolsUsed []string `json:"tools_used,omitempty"`
}

func (s *Server) sendMessage(c echo.Context) error {
	sessionID := c.Param("session_id")

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	handle, err := s.orch.Session(c.Request().Context(), sessionID)
	if err != nil {
		return mapError(err)
	}

	reply, err := s.orch.SendMessage(c.Request().Context(), handle, req.Text)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, sendMessageResponse{
		Text:      reply.Text,
		Intent:    string(reply.Intent),
		Sources:   reply.Sources,
		ToolsUsed: reply.ToolsUsed,
	})
}

func (s *Server) listSessions(c echo.Context) error {
	userID := strings.TrimSpace(c.QueryParam("user_id"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	summaries, err := s.orch.ListSessions(c.Request().Context(), userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": summaries})
}

func (s *Server) auditTrail(c echo.Context) error {
	invs, err := s.orch.AuditTrail(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"invocations": invs})
}

func (s *Server) closeSession(c echo.Context) error {
	s.orch.Close(c.Param("session_id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listDocuments(c echo.Context) error {
	ids, err := s.orch.ListDocuments(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": ids})
}

// mapError translates engine errors into HTTP statuses. A persistence failure
// is reported as unsaved so the client knows it may resend the same message.
func mapError(err error) error {
	switch {
	case errors.Is(err, nodex.ErrInvalidMessage), errors.Is(err, statex.ErrInvalidUser):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, statex.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, orchestratorx.ErrTurnInFlight):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, orchestratorx.ErrSessionClosed):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, nodex.ErrNotSaved):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "the exchange was not saved, please resend the message")
	default:
		log.Error().Err(err).Msg("turn failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
