package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
	"github.com/satriahrh/vaani/internal/auth"
	"github.com/satriahrh/vaani/internal/websocket"
	"github.com/satriahrh/vaani/usecase"
)

const (
	sessionIDKey = "session_id"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Dependencies are the services the routes are served from
type Dependencies struct {
	Pipeline          *usecase.TranslationPipeline
	Hub               *websocket.Hub
	Tokens            *auth.TokenIssuer
	AudioStore        repositories.AudioStore
	MetricsHandler    http.Handler
	MaxRecordingBytes int
	Logger            *zap.Logger
}

type handler struct {
	Dependencies
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	h := &handler{Dependencies: deps}

	e.GET("/health", h.health)
	if deps.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(deps.MetricsHandler))
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.GET("/languages", h.languages)
	v1.POST("/sessions", h.createSession)
	v1.GET("/audio/:id", h.audio)

	authed := v1.Group("", h.requireSession)
	authed.POST("/translate", h.translate)
	authed.GET("/history", h.history)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.connectWebSocket)
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"service":        "vaani",
		"active_clients": h.Hub.ActiveClients(),
	})
}

func (h *handler) languages(c echo.Context) error {
	catalog := h.Pipeline.Catalog()
	return c.JSON(http.StatusOK, LanguagesResponse{
		Source:    catalog.Source(),
		Default:   h.Pipeline.DefaultLanguage(),
		Languages: catalog.Languages(),
	})
}

func (h *handler) createSession(c echo.Context) error {
	token, err := h.Tokens.IssueSessionToken()
	if err != nil {
		h.Logger.Error("Failed to generate session token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate session token",
		})
	}

	h.Logger.Info("Session created", zap.String("session_id", token.SessionID))

	return c.JSON(http.StatusCreated, SessionResponse{
		Token:     token.Token,
		SessionID: token.SessionID,
		ExpiresAt: token.ExpiresAt,
	})
}

// translate runs the whole pipeline on an uploaded recording
func (h *handler) translate(c echo.Context) error {
	sessionID := c.Get(sessionIDKey).(string)

	file, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_audio",
			Message: "Multipart field 'audio' is required",
		})
	}
	if h.MaxRecordingBytes > 0 && file.Size > int64(h.MaxRecordingBytes) {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "recording_too_large",
			Message: "The recording is too long. Please record a shorter message.",
		})
	}

	src, err := file.Open()
	if err != nil {
		h.Logger.Error("Failed to open uploaded audio", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: "Could not read the uploaded audio",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		h.Logger.Error("Failed to read uploaded audio", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: "Could not read the uploaded audio",
		})
	}

	audio := entities.AudioBlob{Data: data, MIMEType: file.Header.Get(echo.HeaderContentType)}
	result, err := h.Pipeline.Translate(c.Request().Context(), sessionID, audio, c.FormValue("language"))
	if err != nil {
		status := http.StatusUnprocessableEntity
		if usecase.KindOf(err) == usecase.KindInvalidInput {
			status = http.StatusBadRequest
		}
		h.Logger.Info("Translation failed",
			zap.String("session_id", sessionID),
			zap.String("kind", string(usecase.KindOf(err))),
			zap.Error(err))
		return c.JSON(status, result)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *handler) audio(c echo.Context) error {
	audio, err := h.AudioStore.Open(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repositories.ErrAudioNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "audio_not_found",
			Message: "Audio has expired or never existed",
		})
	}
	if err != nil {
		h.Logger.Error("Failed to open audio", zap.String("id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "audio_unavailable",
			Message: "Failed to load audio",
		})
	}

	contentType := audio.MIMEType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, contentType, audio.Data)
}

func (h *handler) history(c echo.Context) error {
	sessionID := c.Get(sessionIDKey).(string)

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be between 1 and " + strconv.Itoa(maxHistoryLimit),
			})
		}
		limit = n
	}

	records, err := h.Pipeline.History(c.Request().Context(), sessionID, limit)
	if err != nil {
		h.Logger.Error("Failed to list history", zap.String("session_id", sessionID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "history_unavailable",
			Message: "Failed to load history",
		})
	}

	return c.JSON(http.StatusOK, HistoryResponse{SessionID: sessionID, Records: records})
}

// connectWebSocket handles WebSocket connections with JWT authentication.
// Browsers cannot set headers on WebSocket requests, so ?token= is accepted too.
func (h *handler) connectWebSocket(c echo.Context) error {
	token := bearerToken(c.Request())
	if token == "" {
		token = c.QueryParam("token")
	}

	claims, failure := h.validate(token)
	if failure != nil {
		h.Logger.Warn("WebSocket connection rejected", zap.String("reason", failure.Error))
		return c.JSON(http.StatusUnauthorized, failure)
	}

	h.Logger.Info("WebSocket connection authenticated", zap.String("session_id", claims.SessionID))

	return websocket.HandleWebSocket(h.Hub, c, claims.SessionID, h.Logger)
}

// requireSession accepts only requests carrying a valid session token
func (h *handler) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, failure := h.validate(bearerToken(c.Request()))
		if failure != nil {
			return c.JSON(http.StatusUnauthorized, failure)
		}
		c.Set(sessionIDKey, claims.SessionID)
		return next(c)
	}
}

func (h *handler) validate(token string) (*auth.SessionClaims, *ErrorResponse) {
	if token == "" {
		return nil, &ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		}
	}

	claims, err := h.Tokens.ValidateToken(token)
	if err != nil {
		h.Logger.Debug("Token rejected", zap.Error(err))
		return nil, &ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		}
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
