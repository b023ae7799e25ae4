package api

import (
	"context"
	"fmt"
	"net/http"

	"deskline.app/chatsync/internal/model"
)

// Wire envelopes of the chat API contract.
type (
	employeesResponse struct {
		Employees []model.Employee `json:"employees"`
	}
	conversationsResponse struct {
		Conversations []model.Conversation `json:"conversations"`
	}
	messagesResponse struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	messageResponse struct {
		Message model.ChatMessage `json:"message"`
	}
	unreadCountResponse struct {
		UnreadCount int `json:"unreadCount"`
	}

	sendMessageRequest struct {
		RecipientID string            `json:"recipientId"`
		Content     string            `json:"content"`
		MessageType model.MessageType `json:"messageType"`
	}
	sendFileMessageRequest struct {
		RecipientID    string            `json:"recipientId"`
		AttachmentURL  string            `json:"attachmentUrl"`
		AttachmentName string            `json:"attachmentName"`
		MessageType    model.MessageType `json:"messageType"`
	}
)

// UploadResult is the response of the multipart upload endpoint.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

func (c *Client) Employees(ctx context.Context) ([]model.Employee, error) {
	var resp employeesResponse
	if err := c.call(ctx, http.MethodGet, "/employees", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Employees, nil
}

func (c *Client) UpdateStatus(ctx context.Context, update model.StatusUpdate) error {
	return c.call(ctx, http.MethodPatch, "/status", update, nil)
}

func (c *Client) Conversations(ctx context.Context) ([]model.Conversation, error) {
	var resp conversationsResponse
	if err := c.call(ctx, http.MethodGet, "/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (c *Client) Messages(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	var resp messagesResponse
	path := fmt.Sprintf("/conversations/%s/messages", conversationID)
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) SendMessage(ctx context.Context, recipientID, content string) (*model.ChatMessage, error) {
	req := sendMessageRequest{
		RecipientID: recipientID,
		Content:     content,
		MessageType: model.MessageTypeText,
	}
	var resp messageResponse
	if err := c.call(ctx, http.MethodPost, "/messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

func (c *Client) SendFileMessage(ctx context.Context, recipientID, attachmentURL, attachmentName string, messageType model.MessageType) (*model.ChatMessage, error) {
	req := sendFileMessageRequest{
		RecipientID:    recipientID,
		AttachmentURL:  attachmentURL,
		AttachmentName: attachmentName,
		MessageType:    messageType,
	}
	var resp messageResponse
	if err := c.call(ctx, http.MethodPost, "/messages/file", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp unreadCountResponse
	if err := c.call(ctx, http.MethodGet, "/unread-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}
