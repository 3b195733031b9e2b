package v1

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/trainchat/internal/auth"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// loginRequest is the body of POST /api/auth/login.
type loginRequest struct {
	Email string `json:"email"`
}

// Login signs a user in by email, creating the account on first use.
// POST /api/auth/login
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "请求体格式错误"})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "邮箱地址是必需的"})
	}
	if !emailPattern.MatchString(email) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "请输入有效的邮箱地址"})
	}

	ctx := c.Request().Context()
	user, created, err := h.store.FindOrCreateUser(ctx, email, nameFromEmail(email))
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("login failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "服务器内部错误，请稍后重试"})
	}

	token, err := h.tokens.CreateToken(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.UserID).Msg("failed to issue token")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "服务器内部错误，请稍后重试"})
	}

	message := "登录成功"
	if created {
		message = "注册成功"
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: message,
		Data: map[string]interface{}{
			"user":      user,
			"token":     token,
			"expiresIn": h.tokens.TTL().String(),
		},
	})
}

// Me returns the authenticated user's profile.
// GET /api/auth/me
func (h *Handler) Me(c echo.Context) error {
	user := auth.CurrentUser(c)
	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "获取用户信息成功",
		Data:    map[string]interface{}{"user": user},
	})
}

// Logout acknowledges a sign-out. Tokens are stateless; the client discards
// its copy.
// POST /api/auth/logout
func (h *Handler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "退出登录成功",
	})
}

// Status reports whether the upstream AI provider is configured.
// GET /api/status
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"difyConfigured": h.config.ProviderConfigured(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"version":        "0.1.0",
	})
}

// nameFromEmail derives a display name from the mailbox part of an email
// address, capitalizing the first letter.
func nameFromEmail(email string) string {
	mailbox := strings.SplitN(email, "@", 2)[0]
	if mailbox == "" {
		return email
	}
	return strings.ToUpper(mailbox[:1]) + mailbox[1:]
}
