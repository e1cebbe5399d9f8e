package node

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/relsen/agentgraph/workflow"
)

// DiscordWebhookServer receives interaction webhooks on a single HTTP
// endpoint and buffers the most recent message content per channel, for
// DiscordTriggerExecutor to consume. No pack repo ships a Discord SDK,
// so this is built directly on net/http rather than against a
// third-party client.
type DiscordWebhookServer struct {
	mu       sync.Mutex
	messages map[string]string // channel_id -> latest content
}

// NewDiscordWebhookServer returns an empty server ready to be mounted
// at a path via Handler.
func NewDiscordWebhookServer() *DiscordWebhookServer {
	return &DiscordWebhookServer{messages: make(map[string]string)}
}

type discordPayload struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// Handler decodes an incoming webhook POST body and records its content
// against the channel it arrived on.
func (s *DiscordWebhookServer) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload discordPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.messages[payload.ChannelID] = payload.Content
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

// Take returns and clears the most recently received message for
// channelID.
func (s *DiscordWebhookServer) Take(channelID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[channelID]
	if ok {
		delete(s.messages, channelID)
	}
	return msg, ok
}

// DiscordTriggerExecutor forwards the next buffered webhook message for
// its configured channel as node output.
type DiscordTriggerExecutor struct {
	Node      *workflow.Node
	Server    *DiscordWebhookServer
	ChannelID string
}

func (e *DiscordTriggerExecutor) Execute(ctx context.Context, req Request) Result {
	if e.Server == nil {
		return Result{OK: false, Err: "discord-trigger: webhook server not configured"}
	}
	msg, ok := e.Server.Take(e.ChannelID)
	if !ok {
		return Result{OK: true, Output: ""}
	}
	return Result{OK: true, Output: msg}
}
