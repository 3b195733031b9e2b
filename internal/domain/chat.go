package domain

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// Stream frame types sent to the browser. Older clients only know the bare
// {"content": ...} shape, so Type is additive: a frame without it is still
// treated as content by the client parser.
const (
	FrameTypeSession = "session"
	FrameTypeContent = "content"
)

// SessionFrame is the first frame of every chat stream. It carries the
// resolved conversation id so the client can adopt it for subsequent turns.
type SessionFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// ContentFrame carries one fragment of the assistant reply.
type ContentFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// DifyChatRequest is the body sent to the Dify /chat-messages endpoint.
type DifyChatRequest struct {
	Inputs           map[string]interface{} `json:"inputs"`
	Query            string                 `json:"query"`
	ResponseMode     string                 `json:"response_mode"`
	ConversationID   string                 `json:"conversation_id,omitempty"`
	User             string                 `json:"user"`
	AutoGenerateName bool                   `json:"auto_generate_name"`
}

// DifyStreamEvent is one decoded "data: {json}" line from the Dify stream.
// Only the fields the relay consumes are mapped.
type DifyStreamEvent struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversation_id,omitempty"`
	Answer         string `json:"answer,omitempty"`
}
