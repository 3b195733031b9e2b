// Package v1 provides the HTTP handlers for the trainchat API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/trainchat/internal/auth"
	"github.com/xiaot623/trainchat/internal/config"
	"github.com/xiaot623/trainchat/internal/store"
	"github.com/xiaot623/trainchat/internal/upstream"
)

// Handler handles HTTP requests.
type Handler struct {
	store    store.Store
	tokens   *auth.TokenService
	upstream upstream.Replier
	config   *config.Config
}

// NewHandler creates a new handler.
func NewHandler(st store.Store, tokens *auth.TokenService, up upstream.Replier, cfg *config.Config) *Handler {
	return &Handler{
		store:    st,
		tokens:   tokens,
		upstream: up,
		config:   cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Public API
	e.POST("/api/auth/login", h.Login)
	e.POST("/api/auth/logout", h.Logout)
	e.GET("/api/status", h.Status)
	e.GET("/health", h.Health)

	// Protected API
	protected := e.Group("/api", auth.RequireAuth(h.tokens, h.store))
	protected.GET("/auth/me", h.Me)
	protected.POST("/chat", h.Chat)
	protected.GET("/sessions", h.ListSessions)
	protected.POST("/sessions", h.CreateSession)
	protected.GET("/sessions/:session_id", h.GetSession)
	protected.PATCH("/sessions/:session_id", h.UpdateSessionTitle)
	protected.DELETE("/sessions/:session_id", h.DeleteSession)
}

// response is the success envelope of the JSON endpoints.
type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// errorResponse is the failure envelope of the JSON endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
