package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/contre95/musicdex/src/music"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the library feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the library feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes library-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	var text string
	var err error
	switch command {
	case "stats":
		text, err = h.stats()
	case "search":
		text, err = h.search(args)
	case "top":
		text, err = h.top()
	default:
		text = "❌ Unknown library command. Use /stats, /search <query> or /top"
	}
	if err != nil {
		text = fmt.Sprintf("❌ %v", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, sendErr := bot.Send(msg); sendErr != nil {
		return sendErr
	}
	return err
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"stats":  "Show library statistics",
		"search": "Search songs: /search a:artist y:1990-1999 r:>=8",
		"top":    "Most played artists of the last 30 days",
	}
}

func (h *TelegramHandler) stats() (string, error) {
	st, err := h.service.GetStats(context.Background())
	if err != nil {
		return "", fmt.Errorf("failed to get library stats: %w", err)
	}
	return fmt.Sprintf("📊 *Library Statistics*\n\n"+
		"🎵 Songs: `%d`\n---\n"+
		"👤 Artists: `%d`\n---\n"+
		"💿 Albums: `%d`\n---\n"+
		"📻 Scrobbles: `%d`", st.Songs, st.Artists, st.Albums, st.Scrobbles), nil
}

func (h *TelegramHandler) search(args string) (string, error) {
	if strings.TrimSpace(args) == "" {
		return "Usage: /search <query>", nil
	}
	result, err := h.service.Search(context.Background(), args, 10, 0)
	if err != nil {
		return "", err
	}
	if result.Total == 0 {
		return fmt.Sprintf("🔍 No songs match `%s`", result.Query), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *%d songs* match `%s`\n\n", result.Total, result.Query)
	for _, song := range result.Songs {
		fmt.Fprintf(&b, "• %s - %s", music.ArtistNames(song.Artists), song.Title)
		if song.Rating > 0 {
			fmt.Fprintf(&b, " (%d/%d)", song.Rating, music.MaxRating)
		}
		b.WriteString("\n")
	}
	if result.Total > len(result.Songs) {
		fmt.Fprintf(&b, "\n_%d more not shown_", result.Total-len(result.Songs))
	}
	return b.String(), nil
}

func (h *TelegramHandler) top() (string, error) {
	top, err := h.service.TopArtists(context.Background(), 30, 10)
	if err != nil {
		return "", fmt.Errorf("failed to get top artists: %w", err)
	}
	if len(top) == 0 {
		return "📻 No scrobbles in the last 30 days", nil
	}
	var b strings.Builder
	b.WriteString("📻 *Top artists, last 30 days*\n\n")
	for i, a := range top {
		fmt.Fprintf(&b, "%d. %s `%d`\n", i+1, a.Artist, a.Plays)
	}
	return b.String(), nil
}
