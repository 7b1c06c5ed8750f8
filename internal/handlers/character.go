package handlers

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
	"tauritavern/internal/services"
)

// CharacterHandler handles character-related requests.
type CharacterHandler struct {
	characters *services.CharacterService
}

// NewCharacterHandler creates a new character handler.
func NewCharacterHandler(characters *services.CharacterService) *CharacterHandler {
	return &CharacterHandler{characters: characters}
}

// List returns all characters. ?shallow=true decodes listing fields only.
func (h *CharacterHandler) List(c *fiber.Ctx) error {
	characters, err := h.characters.GetAll(c.QueryBool("shallow", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"characters": characters, "count": len(characters)})
}

// Get returns one character by stem.
func (h *CharacterHandler) Get(c *fiber.Ctx) error {
	character, err := h.characters.Get(c.Params("stem"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(character)
}

type characterBody struct {
	Name                    string                     `json:"name"`
	Description             string                     `json:"description"`
	Personality             string                     `json:"personality"`
	Scenario                string                     `json:"scenario"`
	FirstMes                string                     `json:"first_mes"`
	MesExample              string                     `json:"mes_example"`
	CreatorNotes            string                     `json:"creator_notes"`
	Creator                 string                     `json:"creator"`
	CharacterVersion        string                     `json:"character_version"`
	Tags                    []string                   `json:"tags"`
	Fav                     *bool                      `json:"fav"`
	Talkativeness           *float64                   `json:"talkativeness"`
	AlternateGreetings      []string                   `json:"alternate_greetings"`
	SystemPrompt            string                     `json:"system_prompt"`
	PostHistoryInstructions string                     `json:"post_history_instructions"`
	Extensions              map[string]json.RawMessage `json:"extensions"`
}

func (b *characterBody) apply(character *models.Character) {
	character.Name = b.Name
	character.Description = b.Description
	character.Personality = b.Personality
	character.Scenario = b.Scenario
	character.FirstMes = b.FirstMes
	character.MesExample = b.MesExample
	character.CreatorNotes = b.CreatorNotes
	character.Creator = b.Creator
	character.CharacterVersion = b.CharacterVersion
	if b.Tags != nil {
		character.Tags = b.Tags
	}
	if b.Fav != nil {
		character.Fav = *b.Fav
	}
	if b.Talkativeness != nil {
		character.Talkativeness = *b.Talkativeness
	}
	if b.AlternateGreetings != nil {
		character.AlternateGreetings = b.AlternateGreetings
	}
	character.SystemPrompt = b.SystemPrompt
	character.PostHistoryInstructions = b.PostHistoryInstructions
	if b.Extensions != nil {
		character.Extensions = b.Extensions
	}
}

// Create persists a new character card.
func (h *CharacterHandler) Create(c *fiber.Ctx) error {
	var body characterBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid character payload"})
	}
	character := &models.Character{Talkativeness: 0.5}
	body.apply(character)
	created, err := h.characters.Create(character)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// Update edits an existing card.
func (h *CharacterHandler) Update(c *fiber.Ctx) error {
	var body characterBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid character payload"})
	}
	character, err := h.characters.Update(c.Params("stem"), body.apply)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(character)
}

// Rename moves a character to a new name.
func (h *CharacterHandler) Rename(c *fiber.Ctx) error {
	var body struct {
		NewName string `json:"new_name"`
	}
	if err := c.BodyParser(&body); err != nil || body.NewName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing new_name"})
	}
	character, err := h.characters.Rename(c.Params("stem"), body.NewName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(character)
}

// Delete removes a character. ?delete_chats=true cascades into transcripts.
func (h *CharacterHandler) Delete(c *fiber.Ctx) error {
	if err := h.characters.Delete(c.Params("stem"), c.QueryBool("delete_chats", false)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Import installs a card from a PNG or JSON file path.
func (h *CharacterHandler) Import(c *fiber.Ctx) error {
	var body struct {
		FilePath         string `json:"file_path"`
		PreserveFileName bool   `json:"preserve_file_name"`
	}
	if err := c.BodyParser(&body); err != nil || body.FilePath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing file_path"})
	}
	character, err := h.characters.Import(body.FilePath, body.PreserveFileName)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(character)
}

// Export copies the stored PNG to a target path.
func (h *CharacterHandler) Export(c *fiber.Ctx) error {
	var body struct {
		TargetPath string `json:"target_path"`
	}
	if err := c.BodyParser(&body); err != nil || body.TargetPath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing target_path"})
	}
	if err := h.characters.Export(c.Params("stem"), body.TargetPath); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateAvatar replaces the character image from base64 data.
func (h *CharacterHandler) UpdateAvatar(c *fiber.Ctx) error {
	var body struct {
		Image string                   `json:"image"`
		Crop  *repositories.AvatarCrop `json:"crop"`
	}
	if err := c.BodyParser(&body); err != nil || body.Image == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing image"})
	}
	image, err := base64.StdEncoding.DecodeString(body.Image)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Image is not valid base64"})
	}
	if err := h.characters.UpdateAvatar(c.Params("stem"), image, body.Crop); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Chats summarizes the character's chat files.
func (h *CharacterHandler) Chats(c *fiber.Ctx) error {
	infos, err := h.characters.GetChats(c.Params("stem"), c.QueryBool("simple", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"chats": infos, "count": len(infos)})
}
