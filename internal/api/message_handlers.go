package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
	"schoolhub-backend/internal/rewards"
)

var (
	messageRepo *database.MessageRepo
	firstTime   *rewards.Hook
	uploadDir   string
)

// maxVoiceUploadBytes caps a single voice recording (10 MiB)
const maxVoiceUploadBytes = 10 << 20

// InitMessageHandlers initializes messaging state
func InitMessageHandlers(dir string) {
	messageRepo = database.NewMessageRepo()
	firstTime = rewards.NewHook()
	uploadDir = dir
}

// listMessagesHandler handles GET /api/messages
func listMessagesHandler(c echo.Context) error {
	user := getUserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	messages, err := messageRepo.ListForUser(user.ID, 50)
	if err != nil {
		c.Logger().Error("list messages error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list messages",
		})
	}

	return c.JSON(http.StatusOK, messages)
}

// sendMessageHandler handles POST /api/messages
func sendMessageHandler(c echo.Context) error {
	user := getUserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}
	if req.RecipientID == 0 || req.Body == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "recipient_id and body are required",
		})
	}

	if _, err := userRepo.GetByID(req.RecipientID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "recipient not found",
			})
		}
		c.Logger().Error("get recipient error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to send message",
		})
	}

	msg := &models.Message{
		SenderID:    user.ID,
		RecipientID: req.RecipientID,
		Kind:        models.MessageText,
		Body:        req.Body,
	}

	if err := messageRepo.Create(msg); err != nil {
		c.Logger().Error("create message error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to send message",
		})
	}

	// First outbound message earns the communication reward.
	firstTime.FireFirstMessage(user.ID)

	Audit.LogFromContext(c, models.ActionMessageSend, msg.ID, map[string]interface{}{
		"recipient_id": req.RecipientID,
		"kind":         models.MessageText,
	})

	return c.JSON(http.StatusCreated, msg)
}

// sendVoiceMessageHandler handles POST /api/messages/voice
//
// Multipart upload: "recipient_id" form field plus a "voice" file. The
// recording is stored on disk under a generated name; only the path
// goes to the database.
func sendVoiceMessageHandler(c echo.Context) error {
	user := getUserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	recipientID, err := parseID(c.FormValue("recipient_id"))
	if err != nil || recipientID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "recipient_id is required",
		})
	}

	if _, err := userRepo.GetByID(recipientID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "recipient not found",
			})
		}
		c.Logger().Error("get recipient error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to send message",
		})
	}

	fileHeader, err := c.FormFile("voice")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "voice file is required",
		})
	}
	if fileHeader.Size > maxVoiceUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": "voice file too large",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.Logger().Error("open upload error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to store voice message",
		})
	}
	defer src.Close()

	if err := os.MkdirAll(uploadDir, 0750); err != nil {
		c.Logger().Error("create upload dir error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to store voice message",
		})
	}

	storedName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	storedPath := filepath.Join(uploadDir, storedName)

	dst, err := os.Create(storedPath)
	if err != nil {
		c.Logger().Error("create upload file error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to store voice message",
		})
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(storedPath)
		c.Logger().Error("write upload error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to store voice message",
		})
	}

	msg := &models.Message{
		SenderID:    user.ID,
		RecipientID: recipientID,
		Kind:        models.MessageVoice,
		FilePath:    storedPath,
	}

	if err := messageRepo.Create(msg); err != nil {
		os.Remove(storedPath)
		c.Logger().Error("create message error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to send message",
		})
	}

	firstTime.FireFirstMessage(user.ID)

	Audit.LogFromContext(c, models.ActionMessageSend, msg.ID, map[string]interface{}{
		"recipient_id": recipientID,
		"kind":         models.MessageVoice,
	})

	return c.JSON(http.StatusCreated, msg)
}

// getVoiceMessageHandler handles GET /api/messages/voice/:id
func getVoiceMessageHandler(c echo.Context) error {
	user := getUserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	msg, err := messageRepo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrMessageNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "message not found",
			})
		}
		c.Logger().Error("get message error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to get message",
		})
	}

	// Only the two parties may fetch the recording
	if msg.SenderID != user.ID && msg.RecipientID != user.ID {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "not a participant of this message",
		})
	}
	if msg.Kind != models.MessageVoice || msg.FilePath == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "not a voice message",
		})
	}

	if msg.RecipientID == user.ID {
		messageRepo.MarkRead(msg.ID, user.ID)
	}

	return c.File(msg.FilePath)
}

// markMessageReadHandler handles POST /api/messages/:id/read
func markMessageReadHandler(c echo.Context) error {
	user := getUserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	if err := messageRepo.MarkRead(c.Param("id"), user.ID); err != nil {
		c.Logger().Error("mark read error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to mark message read",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "marked read",
	})
}
