package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"tauritavern/internal/models"
	"tauritavern/internal/providers"
	"tauritavern/internal/services"
	"tauritavern/internal/syncserver"
	"tauritavern/internal/tokenizer"
)

// SecretHandler handles secret requests.
type SecretHandler struct {
	secrets *services.SecretService
}

// NewSecretHandler creates a new secret handler.
func NewSecretHandler(secrets *services.SecretService) *SecretHandler {
	return &SecretHandler{secrets: secrets}
}

// State reports {key → is-set}.
func (h *SecretHandler) State(c *fiber.Ctx) error {
	return c.JSON(h.secrets.State())
}

// Write stores one secret.
func (h *SecretHandler) Write(c *fiber.Ctx) error {
	var body struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.BodyParser(&body); err != nil || body.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing key"})
	}
	if err := h.secrets.Write(body.Key, body.Value); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes one secret.
func (h *SecretHandler) Delete(c *fiber.Ctx) error {
	if err := h.secrets.Delete(c.Params("key")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Find returns one secret value, subject to the exposure gate.
func (h *SecretHandler) Find(c *fiber.Ctx) error {
	value, err := h.secrets.Find(c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"value": value})
}

// ViewAll returns the whole secret map, only with exposure enabled.
func (h *SecretHandler) ViewAll(c *fiber.Ctx) error {
	secrets, err := h.secrets.ViewAll()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(secrets)
}

// SettingsHandler handles settings requests.
type SettingsHandler struct {
	settings *services.SettingsService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get returns the app settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settings.Get()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}

// Update persists the app settings.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var settings models.AppSettings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid settings payload"})
	}
	updated, err := h.settings.Update(settings)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// Aggregate returns the frontend's one-call settings bundle.
func (h *SettingsHandler) Aggregate(c *fiber.Ctx) error {
	response, err := h.settings.Aggregate()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(response)
}

// SaveUserSettings persists the free-form frontend settings document.
func (h *SettingsHandler) SaveUserSettings(c *fiber.Ctx) error {
	if err := h.settings.SaveUserSettings(models.UserSettings{Data: append([]byte(nil), c.Body()...)}); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateSnapshot stores a timestamped settings snapshot.
func (h *SettingsHandler) CreateSnapshot(c *fiber.Ctx) error {
	if err := h.settings.CreateSnapshot(); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

// Snapshots lists stored snapshots.
func (h *SettingsHandler) Snapshots(c *fiber.Ctx) error {
	snapshots, err := h.settings.Snapshots()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"snapshots": snapshots, "count": len(snapshots)})
}

// LoadSnapshot reads one snapshot document.
func (h *SettingsHandler) LoadSnapshot(c *fiber.Ctx) error {
	settings, err := h.settings.LoadSnapshot(c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	raw, err := json.Marshal(settings)
	if err != nil {
		return respondError(c, err)
	}
	return c.Send(raw)
}

// RestoreSnapshot replaces the live user settings.
func (h *SettingsHandler) RestoreSnapshot(c *fiber.Ctx) error {
	if err := h.settings.RestoreSnapshot(c.Params("name")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TokenizerHandler handles tokenization requests.
type TokenizerHandler struct {
	tokens *tokenizer.Service
}

// NewTokenizerHandler creates a new tokenizer handler.
func NewTokenizerHandler(tokens *tokenizer.Service) *TokenizerHandler {
	return &TokenizerHandler{tokens: tokens}
}

// Encode tokenizes text.
func (h *TokenizerHandler) Encode(c *fiber.Ctx) error {
	var body struct {
		Model string `json:"model"`
		Text  string `json:"text"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid encode payload"})
	}
	ids, err := h.tokens.Encode(body.Model, body.Text)
	if err != nil {
		return respondError(c, err)
	}
	chunks, err := h.tokens.Chunks(body.Model, ids)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ids": ids, "chunks": chunks, "count": len(ids)})
}

// Decode converts token ids back to text.
func (h *TokenizerHandler) Decode(c *fiber.Ctx) error {
	var body struct {
		Model string `json:"model"`
		IDs   []int  `json:"ids"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid decode payload"})
	}
	text, err := h.tokens.Decode(body.Model, body.IDs)
	if err != nil {
		return respondError(c, err)
	}
	chunks, err := h.tokens.Chunks(body.Model, body.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"text": text, "chunks": chunks})
}

// Count estimates prompt tokens for chat messages.
func (h *TokenizerHandler) Count(c *fiber.Ctx) error {
	var body struct {
		Model    string                       `json:"model"`
		Messages []map[string]json.RawMessage `json:"messages"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid count payload"})
	}
	count, err := h.tokens.CountMessages(body.Model, body.Messages)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"token_count": count})
}

// LogitBias builds a token-id bias map.
func (h *TokenizerHandler) LogitBias(c *fiber.Ctx) error {
	var body struct {
		Model   string                     `json:"model"`
		Entries []tokenizer.LogitBiasEntry `json:"entries"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid logit bias payload"})
	}
	bias, err := h.tokens.BuildLogitBias(body.Model, body.Entries)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bias)
}

// CompletionHandler handles provider proxy requests.
type CompletionHandler struct {
	completions *services.ChatCompletionService
}

// NewCompletionHandler creates a new completion handler.
func NewCompletionHandler(completions *services.ChatCompletionService) *CompletionHandler {
	return &CompletionHandler{completions: completions}
}

// Status lists models for a provider.
func (h *CompletionHandler) Status(c *fiber.Ctx) error {
	var body struct {
		ChatCompletionSource string `json:"chat_completion_source"`
		ReverseProxy         string `json:"reverse_proxy"`
		ProxyPassword        string `json:"proxy_password"`
		CustomURL            string `json:"custom_url"`
		CustomIncludeHeaders string `json:"custom_include_headers"`
		BypassStatusCheck    bool   `json:"bypass_status_check"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status payload"})
	}
	result, err := h.completions.Status(body.ChatCompletionSource, providers.RequestOverrides{
		ReverseProxy:         body.ReverseProxy,
		ProxyPassword:        body.ProxyPassword,
		CustomURL:            body.CustomURL,
		CustomIncludeHeaders: body.CustomIncludeHeaders,
	}, body.BypassStatusCheck)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Generate dispatches one chat completion.
func (h *CompletionHandler) Generate(c *fiber.Ctx) error {
	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid completion payload"})
	}
	result, err := h.completions.Generate(payload)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ExtensionHandler handles extension requests.
type ExtensionHandler struct {
	extensions *services.ExtensionService
}

// NewExtensionHandler creates a new extension handler.
func NewExtensionHandler(extensions *services.ExtensionService) *ExtensionHandler {
	return &ExtensionHandler{extensions: extensions}
}

// List returns local and global extensions.
func (h *ExtensionHandler) List(c *fiber.Ctx) error {
	extensions, err := h.extensions.GetAll()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"extensions": extensions, "count": len(extensions)})
}

// Install snapshots a GitHub repository.
func (h *ExtensionHandler) Install(c *fiber.Ctx) error {
	var body struct {
		URL    string `json:"url"`
		Global bool   `json:"global"`
		Branch string `json:"branch"`
	}
	if err := c.BodyParser(&body); err != nil || body.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing url"})
	}
	result, err := h.extensions.Install(body.URL, body.Global, body.Branch)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Update refreshes one extension.
func (h *ExtensionHandler) Update(c *fiber.Ctx) error {
	result, err := h.extensions.Update(c.Params("name"), c.QueryBool("global", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Delete removes one extension.
func (h *ExtensionHandler) Delete(c *fiber.Ctx) error {
	if err := h.extensions.Delete(c.Params("name"), c.QueryBool("global", false)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Move relocates an extension between roots.
func (h *ExtensionHandler) Move(c *fiber.Ctx) error {
	var body struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
	}
	if err := c.BodyParser(&body); err != nil || body.Source == "" || body.Destination == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing source or destination"})
	}
	if err := h.extensions.Move(c.Params("name"), body.Source, body.Destination); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Version reports the installed revision.
func (h *ExtensionHandler) Version(c *fiber.Ctx) error {
	version, err := h.extensions.Version(c.Params("name"), c.QueryBool("global", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(version)
}

// SyncHandler exposes LAN sync controls on the command server.
type SyncHandler struct {
	server *syncserver.Server
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(server *syncserver.Server) *SyncHandler {
	return &SyncHandler{server: server}
}

// Start brings the sync listener up.
func (h *SyncHandler) Start(c *fiber.Ctx) error {
	address, err := h.server.Start()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"address": address})
}

// Stop shuts the sync listener down.
func (h *SyncHandler) Stop(c *fiber.Ctx) error {
	h.server.Stop()
	return c.SendStatus(fiber.StatusNoContent)
}

// Status reports the listener state.
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.server.Status())
}

// QR renders the pairing QR code as a data URL.
func (h *SyncHandler) QR(c *fiber.Ctx) error {
	dataURL, err := h.server.PairingQR()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"qr": dataURL})
}
