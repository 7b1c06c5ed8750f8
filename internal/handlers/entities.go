package handlers

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
	"tauritavern/internal/services"
)

// GroupHandler handles group roster requests.
type GroupHandler struct {
	groups *services.GroupService
}

// NewGroupHandler creates a new group handler.
func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// List returns all groups.
func (h *GroupHandler) List(c *fiber.Ctx) error {
	groups, err := h.groups.GetAll()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"groups": groups, "count": len(groups)})
}

// Get returns one group.
func (h *GroupHandler) Get(c *fiber.Ctx) error {
	group, err := h.groups.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(group)
}

// Create persists a new group.
func (h *GroupHandler) Create(c *fiber.Ctx) error {
	var body struct {
		Name      string   `json:"name"`
		Members   []string `json:"members"`
		AvatarURL string   `json:"avatar_url"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing name"})
	}
	group, err := h.groups.Create(body.Name, body.Members, body.AvatarURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// Update overlays optional fields onto a group.
func (h *GroupHandler) Update(c *fiber.Ctx) error {
	var update services.GroupUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group payload"})
	}
	group, err := h.groups.Update(c.Params("id"), update)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(group)
}

// Delete removes a group. ?delete_chats=true also removes transcripts.
func (h *GroupHandler) Delete(c *fiber.Ctx) error {
	if err := h.groups.Delete(c.Params("id"), c.QueryBool("delete_chats", false)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PresetHandler handles preset requests.
type PresetHandler struct {
	presets *services.PresetService
}

// NewPresetHandler creates a new preset handler.
func NewPresetHandler(presets *services.PresetService) *PresetHandler {
	return &PresetHandler{presets: presets}
}

func presetTypeFromParam(c *fiber.Ctx) (models.PresetType, bool) {
	return models.ParsePresetType(c.Params("type"))
}

// List returns presets of one type.
func (h *PresetHandler) List(c *fiber.Ctx) error {
	presetType, ok := presetTypeFromParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown preset type"})
	}
	presets, err := h.presets.GetAll(presetType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"presets": presets, "count": len(presets)})
}

// Get returns one preset.
func (h *PresetHandler) Get(c *fiber.Ctx) error {
	presetType, ok := presetTypeFromParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown preset type"})
	}
	preset, err := h.presets.Get(presetType, c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(preset)
}

// Save writes one preset.
func (h *PresetHandler) Save(c *fiber.Ctx) error {
	presetType, ok := presetTypeFromParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown preset type"})
	}
	var body struct {
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing name"})
	}
	preset := &models.Preset{Name: body.Name, Type: presetType, Data: body.Data}
	if err := h.presets.Save(preset); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(preset)
}

// Delete removes one preset.
func (h *PresetHandler) Delete(c *fiber.Ctx) error {
	presetType, ok := presetTypeFromParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown preset type"})
	}
	if err := h.presets.Delete(presetType, c.Params("name")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DocumentHandler handles one named-JSON store (themes, movingUI, quick
// replies).
type DocumentHandler struct {
	documents *services.DocumentService
}

// NewDocumentHandler creates a handler over one document service.
func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// List returns stored document names.
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	names, err := h.documents.Names()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"names": names, "count": len(names)})
}

// Get returns one document body.
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	data, err := h.documents.Get(c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// Save writes one document.
func (h *DocumentHandler) Save(c *fiber.Ctx) error {
	if err := h.documents.Save(c.Params("name"), c.Body()); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes one document.
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	if err := h.documents.Delete(c.Params("name")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// WorldInfoHandler handles lorebook requests.
type WorldInfoHandler struct {
	worlds *services.WorldInfoService
}

// NewWorldInfoHandler creates a new world-info handler.
func NewWorldInfoHandler(worlds *services.WorldInfoService) *WorldInfoHandler {
	return &WorldInfoHandler{worlds: worlds}
}

// List returns stored lorebook names.
func (h *WorldInfoHandler) List(c *fiber.Ctx) error {
	names, err := h.worlds.Names()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"world_names": names, "count": len(names)})
}

// Get returns one lorebook.
func (h *WorldInfoHandler) Get(c *fiber.Ctx) error {
	data, err := h.worlds.Get(c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// Save validates and writes one lorebook.
func (h *WorldInfoHandler) Save(c *fiber.Ctx) error {
	if err := h.worlds.Save(c.Params("name"), c.Body()); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes one lorebook.
func (h *WorldInfoHandler) Delete(c *fiber.Ctx) error {
	if err := h.worlds.Delete(c.Params("name")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Import installs a lorebook from JSON, PNG naidata or converted text.
func (h *WorldInfoHandler) Import(c *fiber.Ctx) error {
	var body struct {
		Name      string `json:"name"`
		FilePath  string `json:"file_path"`
		Converted string `json:"converted"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing name"})
	}
	if err := h.worlds.Import(body.Name, body.FilePath, body.Converted); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

// BackgroundHandler handles background requests.
type BackgroundHandler struct {
	backgrounds *services.BackgroundService
}

// NewBackgroundHandler creates a new background handler.
func NewBackgroundHandler(backgrounds *services.BackgroundService) *BackgroundHandler {
	return &BackgroundHandler{backgrounds: backgrounds}
}

// List returns all backgrounds.
func (h *BackgroundHandler) List(c *fiber.Ctx) error {
	backgrounds, err := h.backgrounds.GetAll()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"backgrounds": backgrounds, "count": len(backgrounds)})
}

// Upload stores a background from base64 data.
func (h *BackgroundHandler) Upload(c *fiber.Ctx) error {
	var body struct {
		FileName string `json:"file_name"`
		Data     string `json:"data"`
	}
	if err := c.BodyParser(&body); err != nil || body.FileName == "" || body.Data == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing file_name or data"})
	}
	data, err := base64.StdEncoding.DecodeString(body.Data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Data is not valid base64"})
	}
	background, err := h.backgrounds.Upload(body.FileName, data)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(background)
}

// Rename moves a background.
func (h *BackgroundHandler) Rename(c *fiber.Ctx) error {
	var body struct {
		NewName string `json:"new_name"`
	}
	if err := c.BodyParser(&body); err != nil || body.NewName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing new_name"})
	}
	if err := h.backgrounds.Rename(c.Params("name"), body.NewName); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes a background.
func (h *BackgroundHandler) Delete(c *fiber.Ctx) error {
	if err := h.backgrounds.Delete(c.Params("name")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AvatarHandler handles user persona avatar requests.
type AvatarHandler struct {
	avatars *services.AvatarService
}

// NewAvatarHandler creates a new avatar handler.
func NewAvatarHandler(avatars *services.AvatarService) *AvatarHandler {
	return &AvatarHandler{avatars: avatars}
}

// List returns all avatars.
func (h *AvatarHandler) List(c *fiber.Ctx) error {
	avatars, err := h.avatars.GetAll()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"avatars": avatars, "count": len(avatars)})
}

// Upload stores an avatar from base64 data.
func (h *AvatarHandler) Upload(c *fiber.Ctx) error {
	var body struct {
		FileName string                   `json:"file_name"`
		Data     string                   `json:"data"`
		Crop     *repositories.AvatarCrop `json:"crop"`
	}
	if err := c.BodyParser(&body); err != nil || body.FileName == "" || body.Data == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing file_name or data"})
	}
	data, err := base64.StdEncoding.DecodeString(body.Data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Data is not valid base64"})
	}
	avatar, err := h.avatars.Upload(body.FileName, data, body.Crop)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(avatar)
}

// Delete removes an avatar.
func (h *AvatarHandler) Delete(c *fiber.Ctx) error {
	if err := h.avatars.Delete(c.Params("name")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
