package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"tauritavern/internal/config"
	"tauritavern/internal/events"
	"tauritavern/internal/handlers"
	"tauritavern/internal/logging"
	"tauritavern/internal/persistence"
	"tauritavern/internal/providers"
	"tauritavern/internal/repositories"
	"tauritavern/internal/scheduler"
	"tauritavern/internal/services"
	"tauritavern/internal/syncserver"
	"tauritavern/internal/tokenizer"
	"tauritavern/internal/watch"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev).
	logging.Init()

	log.Println("🚀 Starting TauriTavern data server...")

	// Load .env file (ignore error if file doesn't exist).
	if err := godotenv.Load(); err == nil {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Host: %s, Port: %s, Data: %s)", cfg.Host, cfg.Port, cfg.DataRoot)

	emitter := events.NewEmitter()

	// Data directory bootstrap.
	data := persistence.NewDataDirectory(cfg.DataRoot)
	if err := data.Initialize(); err != nil {
		emitter.Emit(events.AppError, err.Error())
		log.Fatalf("❌ Failed to initialize data directory: %v", err)
	}

	content := services.NewContentService(data.DefaultUser)
	if err := content.Initialize(); err != nil {
		log.Printf("⚠️  Failed to install default content: %v", err)
	}

	// Shared outbound HTTP client (providers + GitHub).
	httpClient := providers.NewHTTPClient()

	// Repositories.
	chatRepo := repositories.NewChatRepository(
		data.Chats(), data.GroupChats(), data.Backups(),
		repositories.WithMaxTotalBackups(cfg.MaxTotalBackups),
	)
	characterRepo := repositories.NewCharacterRepository(data.Characters(), data.Chats(), data.Thumbnails("avatar"))
	groupRepo := repositories.NewGroupRepository(data.Groups())
	presetRepo := repositories.NewPresetRepository(data)
	themeStore := repositories.NewNamedDocumentStore(data.Themes(), "theme")
	movingUIStore := repositories.NewNamedDocumentStore(data.MovingUI(), "movingUI preset")
	quickReplyStore := repositories.NewNamedDocumentStore(data.QuickReplies(), "quick reply set")
	worldRepo := repositories.NewWorldInfoRepository(data.Worlds())
	backgroundRepo := repositories.NewBackgroundRepository(data.Backgrounds())
	avatarRepo := repositories.NewAvatarRepository(data.Avatars())
	secretRepo := repositories.NewSecretRepository(data.SecretsFile())
	settingsRepo := repositories.NewSettingsRepository(data.DefaultUser)
	extensionRepo := repositories.NewExtensionRepository(
		data.Extensions(), data.Extensions()+"-global", httpClient,
	)

	// Services.
	chatService := services.NewChatService(chatRepo, characterRepo, emitter)
	characterService := services.NewCharacterService(characterRepo, chatRepo, emitter)
	groupService := services.NewGroupService(groupRepo, chatRepo, emitter)
	presetService := services.NewPresetService(presetRepo, emitter)
	themeService := services.NewDocumentService(themeStore, "theme", emitter)
	movingUIService := services.NewDocumentService(movingUIStore, "moving-ui", emitter)
	quickReplyService := services.NewDocumentService(quickReplyStore, "quick-reply", emitter)
	worldService := services.NewWorldInfoService(worldRepo, emitter)
	backgroundService := services.NewBackgroundService(backgroundRepo, emitter)
	avatarService := services.NewAvatarService(avatarRepo, emitter)
	secretService := services.NewSecretService(secretRepo, cfg.AllowKeysExposure)
	settingsService := services.NewSettingsService(settingsRepo, presetRepo, themeStore, movingUIStore, quickReplyStore, worldRepo, emitter)
	extensionService := services.NewExtensionService(extensionRepo, emitter)
	completionService := services.NewChatCompletionService(providers.NewClient(httpClient), secretRepo)
	tokenService := tokenizer.NewService()

	syncServer := syncserver.New(cfg.DataRoot, cfg.SyncPort)

	// External edits to the user settings document surface as events.
	if watcher, err := watch.NewSettingsWatcher(settingsRepo.UserSettingsFile(), emitter); err == nil {
		go watcher.Run()
		defer watcher.Close()
	} else {
		log.Printf("⚠️  Settings watcher unavailable: %v", err)
	}

	jobs := scheduler.New(extensionService, settingsService)
	if err := jobs.Start(); err != nil {
		log.Printf("⚠️  Failed to start scheduler: %v", err)
	}
	defer jobs.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "TauriTavern",
		BodyLimit:             100 * 1024 * 1024,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("tauritavern")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	h := &handlers.Handlers{
		Characters:  handlers.NewCharacterHandler(characterService),
		Chats:       handlers.NewChatHandler(chatService),
		Groups:      handlers.NewGroupHandler(groupService),
		Presets:     handlers.NewPresetHandler(presetService),
		Themes:      handlers.NewDocumentHandler(themeService),
		MovingUI:    handlers.NewDocumentHandler(movingUIService),
		QuickReply:  handlers.NewDocumentHandler(quickReplyService),
		Worlds:      handlers.NewWorldInfoHandler(worldService),
		Backgrounds: handlers.NewBackgroundHandler(backgroundService),
		Avatars:     handlers.NewAvatarHandler(avatarService),
		Secrets:     handlers.NewSecretHandler(secretService),
		Settings:    handlers.NewSettingsHandler(settingsService),
		Tokenizer:   handlers.NewTokenizerHandler(tokenService),
		Completions: handlers.NewCompletionHandler(completionService),
		Extensions:  handlers.NewExtensionHandler(extensionService),
		Sync:        handlers.NewSyncHandler(syncServer),
		Emitter:     emitter,
	}
	h.Register(app)

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("🛑 Shutting down...")
		syncServer.Stop()
		_ = app.Shutdown()
	}()

	emitter.Emit(events.AppReady, nil)
	address := cfg.Host + ":" + cfg.Port
	log.Printf("✅ TauriTavern data server listening on %s", address)
	if err := app.Listen(address); err != nil {
		emitter.Emit(events.AppError, err.Error())
		log.Fatalf("❌ Server stopped: %v", err)
	}
}
