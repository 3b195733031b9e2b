package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/trainchat/internal/auth"
	"github.com/xiaot623/trainchat/internal/domain"
)

// apologyMessage replaces the reply when the upstream fails mid-stream.
// It goes out as an ordinary content frame so the client stream stays
// well-formed.
const apologyMessage = "抱歉，处理您的请求时出现了错误。"

// persistTimeout bounds the post-stream persistence write. It runs on a
// fresh context because the request context may already be cancelled by a
// client disconnect.
const persistTimeout = 5 * time.Second

// Chat is the streaming chat relay: it resolves the conversation, drives
// the upstream producer, forwards fragments as server-sent events, and
// records the exchange once the stream ends.
//
// Errors before the first frame are JSON responses. After streaming starts
// the stream always ends with a terminal [DONE] frame, whatever happens
// in between.
//
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "请求体格式错误"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "消息内容不能为空"})
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "streaming not supported"})
	}

	// Resolve or create the conversation and record the user message
	// before any streaming begins.
	conv, err := h.resolveConversation(ctx, user.UserID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.UserID).Msg("failed to resolve conversation")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "服务器内部错误，请稍后重试"})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	writeFrame := func(frame interface{}) error {
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response().Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	// The conversation id frame always precedes any content frame so the
	// client can adopt the id for subsequent turns.
	clientGone := writeFrame(domain.SessionFrame{Type: domain.FrameTypeSession, SessionID: conv.ConversationID}) != nil

	var reply strings.Builder
	if !clientGone {
		clientGone = h.streamReply(ctx, writeFrame, user.UserID, req.Message, &reply)
	}

	// Persist the assistant reply exactly once, after the stream is over.
	// On client disconnect whatever accumulated is still committed so a
	// cut-off reply shows up in the history. Failures here are logged and
	// swallowed: the client stream is already terminal.
	if text := strings.TrimSpace(reply.String()); text != "" {
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if _, err := h.store.AppendMessage(pctx, conv.ConversationID, domain.RoleAssistant, reply.String()); err != nil {
			log.Error().Err(err).Str("session_id", conv.ConversationID).Msg("failed to persist assistant reply")
		}
	}

	if !clientGone {
		fmt.Fprint(c.Response().Writer, "data: [DONE]\n\n")
		flusher.Flush()
	}
	return nil
}

// streamReply drives the upstream producer, forwarding each fragment to the
// client and accumulating the full reply. An upstream failure is absorbed
// into a single apology frame. Returns true when the client went away and
// no terminal frame should be attempted.
func (h *Handler) streamReply(ctx context.Context, writeFrame func(interface{}) error, userID, message string, reply *strings.Builder) bool {
	stream, err := h.upstream.StreamReply(ctx, message, userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to open upstream stream")
		writeFrame(domain.ContentFrame{Type: domain.FrameTypeContent, Content: apologyMessage})
		return false
	}
	defer stream.Close()

	for {
		fragment, err := stream.Next(ctx)
		if err == io.EOF {
			return false
		}
		if err != nil {
			if ctx.Err() != nil {
				// Client disconnected; stop pulling and keep what we have.
				return true
			}
			log.Error().Err(err).Msg("upstream stream failed")
			writeFrame(domain.ContentFrame{Type: domain.FrameTypeContent, Content: apologyMessage})
			return false
		}

		reply.WriteString(fragment)
		if err := writeFrame(domain.ContentFrame{Type: domain.FrameTypeContent, Content: fragment}); err != nil {
			return true
		}
	}
}

// resolveConversation applies the find-or-create policy: a structurally
// valid id owned by the caller continues that conversation; anything else
// (no id, malformed id, unknown or foreign id) silently starts a fresh one.
// The incoming user message is appended before returning.
func (h *Handler) resolveConversation(ctx context.Context, ownerID string, req domain.ChatRequest) (*domain.Conversation, error) {
	if req.SessionID != "" && validSessionID(req.SessionID) {
		conv, err := h.store.FindOwned(ctx, req.SessionID, ownerID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			if _, err := h.store.AppendMessage(ctx, conv.ConversationID, domain.RoleUser, req.Message); err != nil {
				return nil, err
			}
			return conv, nil
		}
	}

	return h.store.CreateForOwner(ctx, ownerID, req.Message)
}
