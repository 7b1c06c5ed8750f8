package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"tauritavern/internal/events"
)

// Handlers bundles every request handler for route registration.
type Handlers struct {
	Characters  *CharacterHandler
	Chats       *ChatHandler
	Groups      *GroupHandler
	Presets     *PresetHandler
	Themes      *DocumentHandler
	MovingUI    *DocumentHandler
	QuickReply  *DocumentHandler
	Worlds      *WorldInfoHandler
	Backgrounds *BackgroundHandler
	Avatars     *AvatarHandler
	Secrets     *SecretHandler
	Settings    *SettingsHandler
	Tokenizer   *TokenizerHandler
	Completions *CompletionHandler
	Extensions  *ExtensionHandler
	Sync        *SyncHandler
	Emitter     *events.Emitter
}

// Register wires every route onto the app.
func (h *Handlers) Register(app *fiber.App) {
	api := app.Group("/api")

	characters := api.Group("/characters")
	characters.Get("/", h.Characters.List)
	characters.Post("/", h.Characters.Create)
	characters.Post("/import", h.Characters.Import)
	characters.Get("/:stem", h.Characters.Get)
	characters.Put("/:stem", h.Characters.Update)
	characters.Delete("/:stem", h.Characters.Delete)
	characters.Post("/:stem/rename", h.Characters.Rename)
	characters.Post("/:stem/export", h.Characters.Export)
	characters.Post("/:stem/avatar", h.Characters.UpdateAvatar)
	characters.Get("/:stem/chats", h.Characters.Chats)

	chats := api.Group("/chats")
	chats.Get("/", h.Chats.ListAll)
	chats.Post("/", h.Chats.Create)
	chats.Get("/search", h.Chats.Search)
	chats.Post("/import", h.Chats.Import)
	chats.Post("/clear-cache", h.Chats.ClearCache)
	chats.Get("/group/:id", h.Chats.GetGroupChat)
	chats.Put("/group/:id", h.Chats.SaveGroupChat)
	chats.Delete("/group/:id", h.Chats.DeleteGroupChat)
	chats.Get("/:character", h.Chats.ListForCharacter)
	chats.Get("/:character/:file", h.Chats.Get)
	chats.Put("/:character/:file", h.Chats.SavePayload)
	chats.Delete("/:character/:file", h.Chats.Delete)
	chats.Post("/:character/:file/messages", h.Chats.AddMessage)
	chats.Post("/:character/:file/rename", h.Chats.Rename)
	chats.Post("/:character/:file/export", h.Chats.Export)
	chats.Post("/:character/:file/backup", h.Chats.Backup)

	groups := api.Group("/groups")
	groups.Get("/", h.Groups.List)
	groups.Post("/", h.Groups.Create)
	groups.Get("/:id", h.Groups.Get)
	groups.Put("/:id", h.Groups.Update)
	groups.Delete("/:id", h.Groups.Delete)

	presets := api.Group("/presets/:type")
	presets.Get("/", h.Presets.List)
	presets.Post("/", h.Presets.Save)
	presets.Get("/:name", h.Presets.Get)
	presets.Delete("/:name", h.Presets.Delete)

	registerDocuments := func(prefix string, handler *DocumentHandler) {
		group := api.Group(prefix)
		group.Get("/", handler.List)
		group.Get("/:name", handler.Get)
		group.Put("/:name", handler.Save)
		group.Delete("/:name", handler.Delete)
	}
	registerDocuments("/themes", h.Themes)
	registerDocuments("/moving-ui", h.MovingUI)
	registerDocuments("/quick-replies", h.QuickReply)

	worlds := api.Group("/worlds")
	worlds.Get("/", h.Worlds.List)
	worlds.Post("/import", h.Worlds.Import)
	worlds.Get("/:name", h.Worlds.Get)
	worlds.Put("/:name", h.Worlds.Save)
	worlds.Delete("/:name", h.Worlds.Delete)

	backgrounds := api.Group("/backgrounds")
	backgrounds.Get("/", h.Backgrounds.List)
	backgrounds.Post("/", h.Backgrounds.Upload)
	backgrounds.Post("/:name/rename", h.Backgrounds.Rename)
	backgrounds.Delete("/:name", h.Backgrounds.Delete)

	avatars := api.Group("/avatars")
	avatars.Get("/", h.Avatars.List)
	avatars.Post("/", h.Avatars.Upload)
	avatars.Delete("/:name", h.Avatars.Delete)

	secrets := api.Group("/secrets")
	secrets.Get("/state", h.Secrets.State)
	secrets.Post("/", h.Secrets.Write)
	secrets.Get("/view", h.Secrets.ViewAll)
	secrets.Get("/:key", h.Secrets.Find)
	secrets.Delete("/:key", h.Secrets.Delete)

	settings := api.Group("/settings")
	settings.Get("/", h.Settings.Get)
	settings.Put("/", h.Settings.Update)
	settings.Get("/aggregate", h.Settings.Aggregate)
	settings.Post("/user", h.Settings.SaveUserSettings)
	settings.Post("/snapshots", h.Settings.CreateSnapshot)
	settings.Get("/snapshots", h.Settings.Snapshots)
	settings.Get("/snapshots/:name", h.Settings.LoadSnapshot)
	settings.Post("/snapshots/:name/restore", h.Settings.RestoreSnapshot)

	tokenizers := api.Group("/tokenizers")
	tokenizers.Post("/encode", h.Tokenizer.Encode)
	tokenizers.Post("/decode", h.Tokenizer.Decode)
	tokenizers.Post("/count", h.Tokenizer.Count)
	tokenizers.Post("/logit-bias", h.Tokenizer.LogitBias)

	completions := api.Group("/backends/chat-completions")
	completions.Post("/status", h.Completions.Status)
	completions.Post("/generate", h.Completions.Generate)

	extensions := api.Group("/extensions")
	extensions.Get("/", h.Extensions.List)
	extensions.Post("/install", h.Extensions.Install)
	extensions.Post("/:name/update", h.Extensions.Update)
	extensions.Post("/:name/move", h.Extensions.Move)
	extensions.Get("/:name/version", h.Extensions.Version)
	extensions.Delete("/:name", h.Extensions.Delete)

	sync := api.Group("/sync")
	sync.Post("/start", h.Sync.Start)
	sync.Post("/stop", h.Sync.Stop)
	sync.Get("/status", h.Sync.Status)
	sync.Get("/qr", h.Sync.QR)

	// UI event stream.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(func(conn *websocket.Conn) {
		h.Emitter.Serve(conn)
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
