package concerts

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles the /concerts command
type TelegramHandler struct {
	service *Service
}

func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand lists concerts of the next 90 days, or starts a refresh
// with "/concerts refresh".
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	text, err := h.reply(strings.TrimSpace(args))
	if err != nil {
		text = fmt.Sprintf("❌ %v", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, sendErr := bot.Send(msg); sendErr != nil {
		return sendErr
	}
	return err
}

func (h *TelegramHandler) reply(args string) (string, error) {
	if args == "refresh" {
		jobID, err := h.service.StartRefresh()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("🎫 Concert refresh started (`%s`)", jobID[:min(8, len(jobID))]), nil
	}

	concerts, err := h.service.Upcoming(context.Background(), "", 90)
	if err != nil {
		return "", err
	}
	if len(concerts) == 0 {
		return "🎫 No concerts in the next 90 days", nil
	}
	var b strings.Builder
	b.WriteString("🎫 *Upcoming concerts*\n\n")
	for i, c := range concerts {
		if i == 20 {
			fmt.Fprintf(&b, "\n_%d more_", len(concerts)-i)
			break
		}
		fmt.Fprintf(&b, "`%s` *%s* %s, %s\n", c.StartsAt.Format("Jan 02"), c.ArtistName, c.Venue, c.City)
	}
	return b.String(), nil
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"concerts": "Concerts of followed artists: /concerts [refresh]",
	}
}
