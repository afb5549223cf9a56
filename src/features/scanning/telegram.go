package scanning

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for library scans
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the scanning feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand starts a scan. "/scan force" rereads every file.
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	force := strings.TrimSpace(args) == "force"
	var text string
	jobID, err := h.service.StartScan(force)
	if err != nil {
		text = fmt.Sprintf("❌ Could not start scan: %v", err)
	} else {
		text = fmt.Sprintf("🔎 Library scan started (`%s`)", jobID[:min(8, len(jobID))])
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = bot.Send(msg)
	return err
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"scan": "Scan the library: /scan [force]",
	}
}
