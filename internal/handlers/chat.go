package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"tauritavern/internal/models"
	"tauritavern/internal/repositories"
	"tauritavern/internal/services"
)

// ChatHandler handles chat transcript requests.
type ChatHandler struct {
	chats *services.ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chats *services.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// chatResponse is the wire shape of one transcript.
type chatResponse struct {
	UserName      string               `json:"user_name"`
	CharacterName string               `json:"character_name"`
	CreateDate    string               `json:"create_date"`
	ChatMetadata  models.ChatMetadata  `json:"chat_metadata"`
	Messages      []models.ChatMessage `json:"messages"`
	FileName      string               `json:"file_name"`
	MessageCount  int                  `json:"message_count"`
}

func toChatResponse(chat *models.Chat) chatResponse {
	return chatResponse{
		UserName:      chat.UserName,
		CharacterName: chat.CharacterName,
		CreateDate:    chat.CreateDate,
		ChatMetadata:  chat.Metadata,
		Messages:      chat.Messages,
		FileName:      chat.FileName,
		MessageCount:  len(chat.Messages),
	}
}

func toChatResponses(chats []*models.Chat) []chatResponse {
	responses := make([]chatResponse, len(chats))
	for i, chat := range chats {
		responses[i] = toChatResponse(chat)
	}
	return responses
}

// Create starts a new chat.
func (h *ChatHandler) Create(c *fiber.Ctx) error {
	var body struct {
		UserName      string `json:"user_name"`
		CharacterName string `json:"character_name"`
		FirstMessage  string `json:"first_message"`
	}
	if err := c.BodyParser(&body); err != nil || body.CharacterName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing character_name"})
	}
	if body.UserName == "" {
		body.UserName = "User"
	}
	chat, err := h.chats.CreateChat(body.UserName, body.CharacterName, body.FirstMessage)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toChatResponse(chat))
}

// Get loads one chat.
func (h *ChatHandler) Get(c *fiber.Ctx) error {
	chat, err := h.chats.GetChat(c.Params("character"), c.Params("file"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toChatResponse(chat))
}

// ListForCharacter lists a character's chats.
func (h *ChatHandler) ListForCharacter(c *fiber.Ctx) error {
	chats, err := h.chats.GetCharacterChats(c.Params("character"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"chats": toChatResponses(chats), "count": len(chats)})
}

// ListAll lists every chat.
func (h *ChatHandler) ListAll(c *fiber.Ctx) error {
	chats, err := h.chats.GetAllChats()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"chats": toChatResponses(chats), "count": len(chats)})
}

// AddMessage appends a message to a chat.
func (h *ChatHandler) AddMessage(c *fiber.Ctx) error {
	var body struct {
		Content string               `json:"content"`
		IsUser  bool                 `json:"is_user"`
		Extra   *models.MessageExtra `json:"extra"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message payload"})
	}
	chat, err := h.chats.AddMessage(c.Params("character"), c.Params("file"), body.Content, body.IsUser, body.Extra)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toChatResponse(chat))
}

// SavePayload persists a raw JSONL payload; the integrity guard applies
// unless force is set.
func (h *ChatHandler) SavePayload(c *fiber.Ctx) error {
	var body struct {
		Payload []json.RawMessage `json:"payload"`
		Force   bool              `json:"force"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.Payload) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing payload"})
	}
	if err := h.chats.SaveChatPayload(c.Params("character"), c.Params("file"), body.Payload, body.Force); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Rename renames a chat file.
func (h *ChatHandler) Rename(c *fiber.Ctx) error {
	var body struct {
		NewFileName string `json:"new_file_name"`
	}
	if err := c.BodyParser(&body); err != nil || body.NewFileName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing new_file_name"})
	}
	if err := h.chats.RenameChat(c.Params("character"), c.Params("file"), body.NewFileName); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes a chat file.
func (h *ChatHandler) Delete(c *fiber.Ctx) error {
	if err := h.chats.DeleteChat(c.Params("character"), c.Params("file")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Search performs a substring search over message bodies.
func (h *ChatHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing q"})
	}
	results, err := h.chats.SearchChats(query, c.Query("character"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"results": results, "count": len(results)})
}

// Import converts a foreign transcript.
func (h *ChatHandler) Import(c *fiber.Ctx) error {
	var body struct {
		CharacterName string `json:"character_name"`
		FilePath      string `json:"file_path"`
		Format        string `json:"format"`
	}
	if err := c.BodyParser(&body); err != nil || body.CharacterName == "" || body.FilePath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing character_name or file_path"})
	}
	chat, err := h.chats.ImportChat(body.CharacterName, body.FilePath, repositories.ChatImportFormat(body.Format))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toChatResponse(chat))
}

// Export writes the chat to a target path as JSONL or plain text.
func (h *ChatHandler) Export(c *fiber.Ctx) error {
	var body struct {
		TargetPath string `json:"target_path"`
		Format     string `json:"format"`
	}
	if err := c.BodyParser(&body); err != nil || body.TargetPath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing target_path"})
	}
	if err := h.chats.ExportChat(c.Params("character"), c.Params("file"), body.TargetPath, repositories.ChatExportFormat(body.Format)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Backup copies the chat into the rolling backup pool.
func (h *ChatHandler) Backup(c *fiber.Ctx) error {
	if err := h.chats.BackupChat(c.Params("character"), c.Params("file")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearCache drains the chat cache.
func (h *ChatHandler) ClearCache(c *fiber.Ctx) error {
	h.chats.ClearCache()
	return c.SendStatus(fiber.StatusNoContent)
}

// GetGroupChat loads a group transcript.
func (h *ChatHandler) GetGroupChat(c *fiber.Ctx) error {
	chat, err := h.chats.GetGroupChat(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toChatResponse(chat))
}

// SaveGroupChat persists a raw group transcript payload.
func (h *ChatHandler) SaveGroupChat(c *fiber.Ctx) error {
	var body struct {
		Payload []json.RawMessage `json:"payload"`
		Force   bool              `json:"force"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.Payload) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing payload"})
	}
	if err := h.chats.SaveGroupChat(c.Params("id"), body.Payload, body.Force); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteGroupChat removes a group transcript.
func (h *ChatHandler) DeleteGroupChat(c *fiber.Ctx) error {
	if err := h.chats.DeleteGroupChat(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
