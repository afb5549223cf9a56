package hosting

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func testApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(LogAllRequestsMiddleware())
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("OK") })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/bad", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadRequest, "nope") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("kaput") })
	return app
}

func TestServerRoutes(t *testing.T) {
	app := testApp()

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/health", fiber.StatusOK, "OK"},
		{"/metrics", fiber.StatusOK, "go_goroutines"},
		{"/bad", fiber.StatusBadRequest, `{"error":"nope"}`},
		{"/boom", fiber.StatusInternalServerError, `{"error":"kaput"}`},
		{"/missing", fiber.StatusNotFound, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			if err != nil {
				t.Fatal(err)
			}
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body %q does not contain %q", body, tt.contains)
			}
		})
	}
}

func TestIsAllowed(t *testing.T) {
	allowed := []string{"@alice", "424242"}

	tests := []struct {
		name string
		user *tgbotapi.User
		want bool
	}{
		{"username with at", &tgbotapi.User{ID: 1, UserName: "alice"}, true},
		{"case insensitive username", &tgbotapi.User{ID: 1, UserName: "ALICE"}, true},
		{"numeric id", &tgbotapi.User{ID: 424242, FirstName: "Bob"}, true},
		{"display name matching a username", &tgbotapi.User{ID: 999, FirstName: "ALICE"}, false},
		{"full name spoof", &tgbotapi.User{ID: 999, FirstName: "alice", LastName: ""}, false},
		{"unknown", &tgbotapi.User{ID: 2, UserName: "mallory"}, false},
		{"no sender", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAllowed(allowed, tt.user); got != tt.want {
				t.Errorf("isAllowed() = %v, want %v", got, tt.want)
			}
		})
	}

	if isAllowed(nil, &tgbotapi.User{UserName: "alice"}) {
		t.Error("an empty allow list must deny everyone")
	}
}

type stubHandler map[string]string

func (s stubHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command, args string) error {
	return nil
}

func (s stubHandler) GetCommands() map[string]string { return s }

func TestRegisterHandler_HelpLists(t *testing.T) {
	bot := &TelegramBot{}
	bot.RegisterHandler(stubHandler{"scan": "Scan the library: /scan [force]"})
	bot.RegisterHandler(stubHandler{"concerts": "Upcoming concerts", "top": "Top_artists"})

	names := bot.commandNames()
	if strings.Join(names, ",") != "concerts,scan,top" {
		t.Errorf("commandNames() = %v", names)
	}
	help := bot.helpText()
	if !strings.Contains(help, "/scan - Scan the library") {
		t.Errorf("help missing scan:\n%s", help)
	}
	if !strings.Contains(help, `Top\_artists`) {
		t.Errorf("help should escape markdown:\n%s", help)
	}
}
