// Package client is the Go client for the messaging core: a REST client for
// the durable operations, a realtime listener for push events, and the
// optimistic send pipeline that reconciles the two.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"ripple-social/internal/models"
	"ripple-social/internal/utils"

	"github.com/google/uuid"
)

// API talks to the REST surface. The HTTP client timeout doubles as the
// send-request timeout: a timed-out send takes the same failure path as a
// rejected one.
type API struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendMessage posts a message to the counterpart's conversation.
func (a *API) SendMessage(ctx context.Context, counterpart uuid.UUID, content string, attachment *models.Attachment) (*models.ResolvedMessage, error) {
	body, err := json.Marshal(SendRequest{Content: content, Attachment: attachment})
	if err != nil {
		return nil, err
	}

	var message models.ResolvedMessage
	err = a.do(ctx, http.MethodPost, fmt.Sprintf("/conversations/%s/messages", counterpart),
		"application/json", bytes.NewReader(body), http.StatusCreated, &message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// SendMedia posts a message with an uploaded file as multipart form data.
func (a *API) SendMedia(ctx context.Context, counterpart uuid.UUID, content string, data []byte, mimeType string) (*models.ResolvedMessage, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("content", content); err != nil {
		return nil, err
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="media"; filename="upload"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var message models.ResolvedMessage
	err = a.do(ctx, http.MethodPost, fmt.Sprintf("/conversations/%s/messages", counterpart),
		writer.FormDataContentType(), &buf, http.StatusCreated, &message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Messages pulls the pair history, ascending by creation time.
func (a *API) Messages(ctx context.Context, counterpart uuid.UUID) ([]*models.ResolvedMessage, error) {
	var history []*models.ResolvedMessage
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("/conversations/%s/messages", counterpart),
		"", nil, http.StatusOK, &history)
	return history, err
}

// Conversations pulls the conversation list, most recent first.
func (a *API) Conversations(ctx context.Context) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := a.do(ctx, http.MethodGet, "/conversations", "", nil, http.StatusOK, &conversations)
	return conversations, err
}

// MarkRead marks every unread message from the counterpart as read.
func (a *API) MarkRead(ctx context.Context, counterpart uuid.UUID) error {
	return a.do(ctx, http.MethodPut, fmt.Sprintf("/conversations/%s/read", counterpart),
		"", nil, http.StatusOK, nil)
}

// SendRequest mirrors the server's JSON send body.
type SendRequest struct {
	Content    string             `json:"content"`
	Attachment *models.Attachment `json:"attachment,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *API) do(ctx context.Context, method, path, contentType string, body io.Reader, wantStatus int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var remote apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&remote); decodeErr == nil && remote.Code != "" {
			return utils.NewAppError(remote.Code, remote.Message, nil)
		}
		return fmt.Errorf("unexpected status %d from %s %s", resp.StatusCode, method, path)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
