package devserver

import "deskline.app/chatsync/internal/model"

type sendMessageRequest struct {
	RecipientID string            `json:"recipientId" binding:"required"`
	Content     string            `json:"content" binding:"required"`
	MessageType model.MessageType `json:"messageType" binding:"required,oneof=text"`
}

type sendFileMessageRequest struct {
	RecipientID    string            `json:"recipientId" binding:"required"`
	AttachmentURL  string            `json:"attachmentUrl" binding:"required"`
	AttachmentName string            `json:"attachmentName" binding:"required"`
	MessageType    model.MessageType `json:"messageType" binding:"required,oneof=file image"`
}

type statusRequest struct {
	IsOnline *bool   `json:"isOnline,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type mintTokenRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=255"`
	Email      string `json:"email" binding:"required,email,max=255"`
	Role       string `json:"role" binding:"required,oneof=customer staff admin"`
	Department string `json:"department,omitempty"`
}

type mintTokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
