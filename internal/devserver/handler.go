// Package devserver is an in-memory stub of the team-chat API contract, for
// local development and soak-testing the sync client. Not a production
// server: no persistence, trivial auth, deliberately simple throttling.
package devserver

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"deskline.app/chatsync/internal/model"
)

const maxUploadBytes = 10 << 20

type ChatHandler struct {
	store     *memStore
	jwtSecret string
}

func NewChatHandler(jwtSecret string) *ChatHandler {
	return &ChatHandler{store: newMemStore(), jwtSecret: jwtSecret}
}

func (h *ChatHandler) MintToken(c *gin.Context) {
	var req mintTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, userID, err := mintToken(h.store, h.jwtSecret, req)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "minting dev token failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mint token"})
		return
	}
	c.JSON(http.StatusCreated, mintTokenResponse{Token: token, UserID: userID})
}

func (h *ChatHandler) Employees(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"employees": h.store.employeeList()})
}

func (h *ChatHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.store.setStatus(currentUser(c).ID, req.IsOnline, req.Status) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) Conversations(c *gin.Context) {
	convs := h.store.conversationsFor(currentUser(c).ID)
	if convs == nil {
		convs = []model.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (h *ChatHandler) Messages(c *gin.Context) {
	msgs, err := h.store.messagesFor(currentUser(c).ID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.store.appendMessage(currentUser(c), req.RecipientID, req.Content, model.MessageTypeText, "", "")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *ChatHandler) SendFileMessage(c *gin.Context) {
	var req sendFileMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.store.appendMessage(currentUser(c), req.RecipientID, req.AttachmentName, req.MessageType, req.AttachmentURL, req.AttachmentName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *ChatHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading file failed"})
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	uploadID := h.store.saveUpload(header.Filename, header.Header.Get("Content-Type"), data)
	c.JSON(http.StatusCreated, gin.H{
		"url":      fmt.Sprintf("/uploads/%s", uploadID),
		"filename": header.Filename,
	})
}

func (h *ChatHandler) ServeUpload(c *gin.Context) {
	u, ok := h.store.getUpload(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
		return
	}
	contentType := u.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", u.filename))
	c.Data(http.StatusOK, contentType, u.data)
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"unreadCount": h.store.unreadTotal(currentUser(c).ID)})
}
