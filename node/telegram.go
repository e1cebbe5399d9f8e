package node

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/relsen/agentgraph/workflow"
)

// TelegramTriggerExecutor polls a bot's update queue for the next text
// message and forwards it as the node's output, so a workflow can begin
// with an inbound chat message instead of a static input. It is a thin
// entry point, not a chat session manager: ordering and delivery
// guarantees are whatever the Telegram Bot API itself provides.
type TelegramTriggerExecutor struct {
	Node   *workflow.Node
	Bot    *tgbotapi.BotAPI
	Offset int
}

// NewTelegramBot constructs a client from a bot token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

func (e *TelegramTriggerExecutor) Execute(ctx context.Context, req Request) Result {
	if e.Bot == nil {
		return Result{OK: false, Err: "telegram-trigger: bot not configured"}
	}
	cfg := tgbotapi.NewUpdate(e.Offset)
	cfg.Timeout = 0
	updates, err := e.Bot.GetUpdates(cfg)
	if err != nil {
		return Result{OK: false, Err: fmt.Sprintf("telegram-trigger: %v", err)}
	}
	for _, u := range updates {
		e.Offset = u.UpdateID + 1
		if u.Message != nil && u.Message.Text != "" {
			return Result{OK: true, Output: u.Message.Text}
		}
	}
	return Result{OK: true, Output: ""}
}
