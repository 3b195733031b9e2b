// Package http provides the HTTP server implementation for trainchat.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/trainchat/internal/auth"
	"github.com/xiaot623/trainchat/internal/config"
	"github.com/xiaot623/trainchat/internal/store"
	v1 "github.com/xiaot623/trainchat/internal/transport/http/v1"
	"github.com/xiaot623/trainchat/internal/upstream"
)

// NewServer creates and configures the trainchat HTTP server.
func NewServer(st store.Store, tokens *auth.TokenService, up upstream.Replier, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	handler := v1.NewHandler(st, tokens, up, cfg)
	handler.RegisterRoutes(e)

	return e
}
