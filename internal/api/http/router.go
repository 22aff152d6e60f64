package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-report-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-report-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Reports        *handlers.ReportsHandler
	Chats          *handlers.ChatsHandler
	ChatSocket     *handlers.ChatSocketHandler
	Assistant      *handlers.AssistantHandler
	AuthMiddleware *auth.AuthMiddleware
	UploadBaseURL  string
	UploadDir      string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.UploadBaseURL != "" && cfg.UploadDir != "" {
		app.Static(cfg.UploadBaseURL, cfg.UploadDir)
	}

	api := app.Group("/api")

	users := api.Group("/users")
	users.Post("/signup", cfg.Users.SignUp)
	users.Post("/login", cfg.Users.Login)
	users.Post("/password-reset/request", cfg.Users.RequestPasswordReset)
	users.Post("/password-reset/confirm", cfg.Users.ConfirmPasswordReset)
	users.Post("/email-verified", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Users.MarkEmailVerified)

	account := users.Group("", cfg.AuthMiddleware.Handle, auth.RequireUser())
	account.Get("/me", cfg.Users.Me)
	account.Post("/change-password", cfg.Users.ChangePassword)
	account.Delete("/delete-account", cfg.Users.DeleteAccount)

	reports := api.Group("/reports")
	reports.Post("/", cfg.AuthMiddleware.Optional, cfg.Reports.Submit)
	// "/all" must register before the track-number wildcard.
	reports.Get("/all", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Reports.ListAll)
	reports.Get("/:trackNumber", cfg.Reports.Get)
	reports.Get("/:trackNumber/history", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Reports.History)
	reports.Put("/:trackNumber/status", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Reports.UpdateStatus)

	api.Post("/assistant/chat", cfg.Assistant.Chat)

	chats := api.Group("/chats", cfg.AuthMiddleware.Handle, auth.RequireUser())
	chats.Get("/", auth.RequireAdmin(), cfg.Chats.List)
	chats.Post("/:chatID/open", auth.RequireAdmin(), cfg.Chats.Open)
	chats.Get("/:chatID/messages", cfg.Chats.GetMessages)
	chats.Post("/:chatID/messages", cfg.Chats.SendMessage)
	chats.Post("/:chatID/read", cfg.Chats.MarkRead)

	ws := app.Group("/ws", cfg.ChatSocket.Upgrade)
	ws.Get("/chats", cfg.ChatSocket.Conversations())
	ws.Get("/chats/:chatID/messages", cfg.ChatSocket.Messages())
}
