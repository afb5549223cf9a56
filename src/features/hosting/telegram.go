package hosting

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/contre95/musicdex/src/features/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramCommandHandler interface that each feature implements
type TelegramCommandHandler interface {
	HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error
	GetCommands() map[string]string // command -> description
}

// TelegramBot handles Telegram bot operations
type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	config   *config.Manager
	commands map[string]TelegramCommandHandler
	updates  tgbotapi.UpdatesChannel
	stopChan chan struct{}
}

// NewTelegramBot connects to Telegram and registers the given feature handlers.
func NewTelegramBot(cfg *config.Manager, handlers ...TelegramCommandHandler) (*TelegramBot, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram bot is disabled in configuration")
	}
	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	slog.Info("Telegram bot initialized", "username", bot.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	t := &TelegramBot{
		bot:      bot,
		config:   cfg,
		updates:  bot.GetUpdatesChan(updateConfig),
		stopChan: make(chan struct{}),
	}
	for _, h := range handlers {
		t.RegisterHandler(h)
	}
	t.publishCommands()
	return t, nil
}

// RegisterHandler routes every command the handler declares to it.
func (t *TelegramBot) RegisterHandler(handler TelegramCommandHandler) {
	if t.commands == nil {
		t.commands = make(map[string]TelegramCommandHandler)
	}
	for command := range handler.GetCommands() {
		if _, taken := t.commands[command]; taken {
			slog.Warn("Telegram command registered twice", "command", command)
		}
		t.commands[command] = handler
		slog.Debug("Registered Telegram command", "command", command)
	}
}

// publishCommands sets the command list shown by Telegram clients.
func (t *TelegramBot) publishCommands() {
	var cmds []tgbotapi.BotCommand
	for _, name := range t.commandNames() {
		cmds = append(cmds, tgbotapi.BotCommand{
			Command:     name,
			Description: t.commands[name].GetCommands()[name],
		})
	}
	if _, err := t.bot.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		slog.Warn("Failed to publish Telegram commands", "error", err)
	}
}

func (t *TelegramBot) commandNames() []string {
	names := make([]string, 0, len(t.commands))
	for name := range t.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins listening for Telegram updates
func (t *TelegramBot) Start() {
	slog.Info("Starting Telegram bot listener")

	for {
		select {
		case update, ok := <-t.updates:
			if !ok {
				return
			}
			if update.Message != nil {
				go t.handleMessage(update.Message)
			}
		case <-t.stopChan:
			slog.Info("Stopping Telegram bot listener")
			t.bot.StopReceivingUpdates()
			return
		}
	}
}

// Stop gracefully stops the bot
func (t *TelegramBot) Stop() {
	close(t.stopChan)
}

// isAllowed reports whether the sender is listed in telegram.allowedUsers.
// Entries are usernames, with or without the leading @, or numeric user IDs.
// Display names are never trusted since anyone can set them.
func isAllowed(allowed []string, from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	id := strconv.FormatInt(from.ID, 10)
	return slices.ContainsFunc(allowed, func(u string) bool {
		u = strings.TrimSpace(u)
		if from.ID != 0 && u == id {
			return true
		}
		// Telegram usernames are unique regardless of case.
		name := strings.TrimPrefix(u, "@")
		return from.UserName != "" && name != "" && strings.EqualFold(name, from.UserName)
	})
}

func (t *TelegramBot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if !isAllowed(t.config.Get().Telegram.AllowedUsers, message.From) {
		slog.Warn("Unauthorized Telegram user", "chat_id", chatID)
		t.sendMessage(chatID, "Unknown user, please add your user to the config")
		return
	}
	if !message.IsCommand() {
		t.sendMessage(chatID, "🤖 Send /help to see available commands")
		return
	}
	t.handleCommand(chatID, message.Command(), message.CommandArguments())
}

func (t *TelegramBot) handleCommand(chatID int64, command, args string) {
	slog.Debug("Processing command", "command", command, "args", args, "chat_id", chatID)

	if command == "help" || command == "start" {
		t.sendMessage(chatID, t.helpText())
		return
	}

	handler, ok := t.commands[command]
	if !ok {
		t.sendMessage(chatID, "❌ Unknown command. Send /help to see available commands.")
		return
	}
	if err := handler.HandleCommand(t.bot, chatID, command, args); err != nil {
		slog.Error("Failed to handle command", "command", command, "error", err)
	}
}

func (t *TelegramBot) helpText() string {
	var b strings.Builder
	b.WriteString("*🎶 musicdex*\n\n")
	for _, name := range t.commandNames() {
		fmt.Fprintf(&b, "/%s - %s\n", name, escapeMarkdown(t.commands[name].GetCommands()[name]))
	}
	return b.String()
}

// escapeMarkdown escapes the characters legacy Markdown treats as markup.
func escapeMarkdown(text string) string {
	return strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[").Replace(text)
}

// sendMessage sends a message to the specified chat
func (t *TelegramBot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}
