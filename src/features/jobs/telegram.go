package jobs

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for the jobs feature
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the jobs feature
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes jobs-related Telegram commands
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	var text string
	switch command {
	case "jobs":
		text = h.listJobs()
	case "run":
		text = h.runJob(strings.TrimSpace(args))
	case "cancel":
		text = h.cancelJob(strings.TrimSpace(args))
	default:
		text = "❌ Unknown jobs command. Use /jobs"
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}

// GetCommands returns the available commands for this handler
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"jobs":   "Show active jobs",
		"run":    "Start a job: /run <type> [force]",
		"cancel": "Cancel a job: /cancel <job id>",
	}
}

func (h *TelegramHandler) listJobs() string {
	var b strings.Builder
	for _, job := range h.service.GetJobs() {
		if job.Finished() {
			continue
		}
		fmt.Fprintf(&b, "%s `%s` %s: %s (%d%%)\n", jobStatusEmoji(job.Status), job.ID[:8], job.Name, job.Message, job.Progress)
	}
	if b.Len() == 0 {
		return "📋 *No active jobs*"
	}
	return "📋 *Active Jobs*\n\n" + b.String()
}

func (h *TelegramHandler) runJob(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "Usage: /run <type> [force]\nTypes: " + strings.Join(h.service.JobTypes(), ", ")
	}
	metadata := map[string]any{"force": len(fields) > 1 && fields[1] == "force"}
	id, err := h.service.StartJob(fields[0], fields[0], metadata)
	if err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("🚀 Started `%s` (`%s`)", fields[0], id[:8])
}

// cancelJob accepts a full job ID or the 8-character prefix shown by /jobs.
func (h *TelegramHandler) cancelJob(prefix string) string {
	if prefix == "" {
		return "Usage: /cancel <job id>"
	}
	for _, job := range h.service.GetJobs() {
		if strings.HasPrefix(job.ID, prefix) && !job.Finished() {
			if err := h.service.CancelJob(job.ID); err != nil {
				return "❌ " + err.Error()
			}
			return fmt.Sprintf("🚫 Cancelled `%s`", job.Name)
		}
	}
	return "❌ No active job with that ID"
}

func jobStatusEmoji(status JobStatus) string {
	switch status {
	case JobStatusPending:
		return "⏳"
	case JobStatusRunning:
		return "🔄"
	case JobStatusCompleted:
		return "✅"
	case JobStatusFailed:
		return "❌"
	case JobStatusCancelled:
		return "🚫"
	default:
		return "❓"
	}
}
