// Package server provides the HTTP surface around the chat engine. It is
// thin plumbing: guardrails, sessions and generation live in their own
// packages.
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zyfalo/sereno/internal/chat"
	"github.com/zyfalo/sereno/internal/history"
	"github.com/zyfalo/sereno/internal/logger"
)

const version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	engine  *chat.Engine
	archive *history.Archive
}

// NewHandler creates a new handler around the chat engine. archive may be
// nil; the transcript endpoint then reports the archive as disabled.
func NewHandler(engine *chat.Engine, archive *history.Archive) *Handler {
	return &Handler{engine: engine, archive: archive}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/chat/message", h.SendMessage)
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id/history", h.GetHistory)
	e.GET("/v1/transcripts/:session_id", h.GetTranscript)

	e.POST("/v1/voice/transcribe", h.Transcribe)
	e.POST("/v1/voice/synthesize", h.Synthesize)

	e.GET("/health", h.Health)
	e.GET("/metrics", h.Metrics)
}

// ChatRequest is the body of POST /v1/chat/message.
type ChatRequest struct {
	SessionID string         `json:"session_id,omitempty"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ChatResponse is the reply to a chat message.
type ChatResponse struct {
	SessionID         string `json:"session_id"`
	Response          string `json:"response"`
	RiskLevel         string `json:"risk_level"`
	IsCrisis          bool   `json:"is_crisis"`
	EmergencyResponse string `json:"emergency_response,omitempty"`
}

// SendMessage runs one conversation turn.
// POST /v1/chat/message
func (h *Handler) SendMessage(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	result, err := h.engine.Process(c.Request().Context(), req.SessionID, req.Message, req.Metadata)
	if err != nil {
		logger.L.Error("chat turn failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to process message"})
	}

	return c.JSON(http.StatusOK, ChatResponse{
		SessionID:         result.SessionID,
		Response:          result.Reply,
		RiskLevel:         result.RiskLevel.String(),
		IsCrisis:          result.IsCrisis,
		EmergencyResponse: result.EmergencyResponse,
	})
}

// CreateSession starts a fresh session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	id := h.engine.Store().Create()
	return c.JSON(http.StatusOK, map[string]string{"session_id": id})
}

// GetHistory returns the turn log of a session.
// GET /v1/sessions/:session_id/history
func (h *Handler) GetHistory(c echo.Context) error {
	sessionID := c.Param("session_id")
	history := h.engine.Store().History(sessionID, 0)
	if len(history) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   history,
	})
}

// GetTranscript returns the archived turns of a session. Unlike GetHistory,
// this reads the durable transcript archive, so it still answers after the
// live session has expired.
// GET /v1/transcripts/:session_id
func (h *Handler) GetTranscript(c echo.Context) error {
	if h.archive == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "transcript archive disabled"})
	}

	sessionID := c.Param("session_id")
	entries := h.archive.List(sessionID)
	if len(entries) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no archived transcript"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      entries,
	})
}

// Transcribe is a placeholder until an ASR backend is wired in.
// POST /v1/voice/transcribe
func (h *Handler) Transcribe(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]string{"error": "transcription not implemented"})
}

// Synthesize is a placeholder until a TTS backend is wired in.
// POST /v1/voice/synthesize
func (h *Handler) Synthesize(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]string{"error": "synthesis not implemented"})
}

// Health returns process health.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": version,
	})
}

// Metrics returns basic counters, no PII.
// GET /metrics
func (h *Handler) Metrics(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"active_sessions": h.engine.Store().Len(),
	})
}
