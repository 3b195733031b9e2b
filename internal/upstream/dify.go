package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/xiaot623/trainchat/internal/domain"
)

// DifyClient streams chat replies from the Dify chat-messages API.
type DifyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewDifyClient creates a Dify-backed replier. No overall request timeout is
// set: streams stay open as long as the upstream keeps producing.
func NewDifyClient(baseURL, apiKey string) *DifyClient {
	return &DifyClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// StreamReply opens a streaming chat request and returns the fragment
// stream. A transport failure or non-success status yields ErrUpstream.
func (c *DifyClient) StreamReply(ctx context.Context, userText, userID string) (Stream, error) {
	body, err := json.Marshal(domain.DifyChatRequest{
		Inputs:           map[string]interface{}{},
		Query:            userText,
		ResponseMode:     "streaming",
		User:             userID,
		AutoGenerateName: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat-messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return &difyStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

// difyStream pulls fragments out of a line-oriented "data: {json}" event
// stream. A partial trailing line across network reads stays buffered in the
// reader and is only parsed once the newline arrives.
type difyStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

// Next returns the next non-empty reply fragment, io.EOF after the terminal
// "data: [DONE]" line, or ErrUpstream if the stream breaks mid-way.
func (s *difyStream) Next(ctx context.Context) (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.done = true
			if err == io.EOF {
				// Upstream closed without a [DONE] marker; treat a clean EOF
				// as normal completion.
				return "", io.EOF
			}
			return "", fmt.Errorf("%w: read stream: %v", ErrUpstream, err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var event domain.DifyStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			log.Warn().Err(err).Str("data", data).Msg("skipping malformed upstream event")
			continue
		}

		// Incremental and replacement content both carry the fragment in
		// the answer field; every other event type is ignored.
		switch event.Event {
		case "message", "message_replace":
			if event.Answer != "" {
				return event.Answer, nil
			}
		}
	}
}

// Close abandons the stream and releases the connection.
func (s *difyStream) Close() error {
	s.done = true
	return s.body.Close()
}
