package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/trainchat/internal/auth"
	"github.com/xiaot623/trainchat/internal/store"
)

// ListSessions returns the caller's conversations, newest activity first.
// GET /api/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	sessions, err := h.store.ListOwned(ctx, user.UserID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.UserID).Msg("failed to list sessions")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "获取会话列表失败"})
	}
	if sessions == nil {
		sessions = []store.ConversationSummary{}
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "获取会话列表成功",
		Data: map[string]interface{}{
			"sessions": sessions,
			"total":    len(sessions),
		},
	})
}

// createSessionRequest is the body of POST /api/sessions.
type createSessionRequest struct {
	Title string `json:"title"`
}

// CreateSession creates an empty conversation with an explicit title.
// POST /api/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)

	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "请求体格式错误"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "会话标题不能为空"})
	}

	conv, err := h.store.CreateEmpty(ctx, user.UserID, req.Title)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.UserID).Msg("failed to create session")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "创建会话失败"})
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "创建会话成功",
		Data:    map[string]interface{}{"session": conv},
	})
}

// GetSession returns one owned conversation including its transcript.
// GET /api/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)

	sessionID := c.Param("session_id")
	if !validSessionID(sessionID) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "会话ID格式无效"})
	}

	conv, err := h.store.GetOwnedWithMessages(ctx, sessionID, user.UserID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to get session")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "获取会话详情失败"})
	}
	if conv == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "会话不存在或无权访问"})
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "获取会话详情成功",
		Data: map[string]interface{}{
			"session":      conv,
			"messageCount": len(conv.Messages),
		},
	})
}

// updateSessionRequest is the body of PATCH /api/sessions/:session_id.
type updateSessionRequest struct {
	Title string `json:"title"`
}

// UpdateSessionTitle renames an owned conversation.
// PATCH /api/sessions/:session_id
func (h *Handler) UpdateSessionTitle(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)

	sessionID := c.Param("session_id")
	if !validSessionID(sessionID) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "会话ID格式无效"})
	}

	var req updateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "请求体格式错误"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "会话标题不能为空"})
	}

	updated, err := h.store.UpdateTitle(ctx, sessionID, user.UserID, req.Title)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to update session title")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "更新会话标题失败"})
	}
	if !updated {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "会话不存在或无权访问"})
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "更新会话标题成功",
	})
}

// DeleteSession deletes an owned conversation. Deletion is immediate and
// irreversible.
// DELETE /api/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)

	sessionID := c.Param("session_id")
	if !validSessionID(sessionID) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "会话ID格式无效"})
	}

	deleted, err := h.store.DeleteOwned(ctx, sessionID, user.UserID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to delete session")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "删除会话失败"})
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "会话不存在或无权访问"})
	}

	return c.JSON(http.StatusOK, response{
		Success: true,
		Message: "删除会话成功",
	})
}

// validSessionID reports whether an id is structurally valid.
func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
