package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"ripple-social/internal/engine/actors"
	"ripple-social/internal/middleware"
	"ripple-social/internal/models"
	"ripple-social/internal/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxUploadBytes bounds multipart attachment uploads.
const maxUploadBytes = 32 << 20

// SendMessageRequest is the JSON body for a plain-text (or pre-uploaded
// attachment) send. Multipart requests carry `content` and a `media` file
// instead.
type SendMessageRequest struct {
	Content    string             `json:"content"`
	Attachment *models.Attachment `json:"attachment,omitempty"`
}

// HandleSendMessage handles POST /conversations/{counterpartId}/messages.
func (s *Server) HandleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.countRequest("send")

		senderID, counterpartID, appErr := s.participants(r)
		if appErr != nil {
			s.respondAppError(w, appErr)
			return
		}

		content, attachment, appErr := s.parseSendBody(r)
		if appErr != nil {
			s.respondAppError(w, appErr)
			return
		}

		msg := &actors.SendMessageMsg{
			SenderID:   senderID,
			ReceiverID: counterpartID,
			Content:    content,
			Attachment: attachment,
		}
		result, appErr := s.request(s.Engine.GetMessageActor(), msg)
		if appErr != nil {
			s.respondAppError(w, appErr)
			return
		}

		s.respondJSON(w, http.StatusCreated, result)
	}
}

// parseSendBody accepts either a JSON body or a multipart form with an
// uploaded media file, mirroring how clients send attachments.
func (s *Server) parseSendBody(r *http.Request) (string, *models.Attachment, *utils.AppError) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return s.parseMultipartSend(r)
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", nil, utils.NewValidationError("invalid request body")
	}
	return req.Content, req.Attachment, nil
}

func (s *Server) parseMultipartSend(r *http.Request) (string, *models.Attachment, *utils.AppError) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, utils.NewValidationError("invalid multipart body")
	}
	content := r.FormValue("content")

	file, header, err := r.FormFile("media")
	if err == http.ErrMissingFile {
		return content, nil, nil
	}
	if err != nil {
		return "", nil, utils.NewValidationError("invalid media upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, utils.NewAppError(utils.ErrDatabase, "failed to read media upload", err)
	}

	attachment, err := s.Media.Store(r.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		return "", nil, asAppError(err)
	}
	return content, attachment, nil
}

// HandleGetMessages handles GET /conversations/{counterpartId}/messages.
func (s *Server) HandleGetMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.countRequest("history")

		userID, counterpartID, appErr := s.participants(r)
		if appErr != nil {
			s.respondAppError(w, appErr)
			return
		}

		result, appErr := s.request(s.Engine.GetMessageActor(), &actors.GetHistoryMsg{
			UserA: userID,
			UserB: counterpartID,
		})
		if appErr != nil {
			s.respondAppError(w, appErr)
			return
		}

		s.respondJSON(w, http.StatusOK, result)
	}
}

// HandleGetConversations handles GET /conversations.
func (s *Server) HandleGetConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.countRequest("conversations")

		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			s.respondAppError(w, utils.NewAppError(utils.ErrUnauthorized, "missing identity", nil))
			return
		}

		result, appErr := s.request(s.Engine.GetConversationActor(), &actors.ListConversationsMsg{
			UserID: userID,
		})
		if appErr != nil {
			s.respondAppError(w, appErr)
			return
		}

		s.respondJSON(w, http.StatusOK, result)
	}
}

// HandleMarkRead handles PUT /conversations/{counterpartId}/read.
func (s *Server) HandleMarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.countRequest("mark_read")

		readerID, counterpartID, appErr := s.participants(r)
		if appErr != nil {
			s.respondAppError(w, appErr)
			return
		}

		result, appErr := s.request(s.Engine.GetMessageActor(), &actors.MarkReadMsg{
			ReaderID:      readerID,
			CounterpartID: counterpartID,
		})
		if appErr != nil {
			s.respondAppError(w, appErr)
			return
		}

		s.respondJSON(w, http.StatusOK, result)
	}
}

// HandleHealth reports store, hub and presence liveness.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, appErr := s.request(s.Engine.GetMessageActor(), &actors.GetCountsMsg{})
		if appErr != nil {
			s.respondAppError(w, appErr)
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"messages":    result,
			"connections": s.Hub.ClientCount(),
			"online":      len(s.Presence.Online()),
		})
	}
}

// participants extracts the acting user from the auth context and the
// counterpart from the path.
func (s *Server) participants(r *http.Request) (uuid.UUID, uuid.UUID, *utils.AppError) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, utils.NewAppError(utils.ErrUnauthorized, "missing identity", nil)
	}

	counterpartID, err := uuid.Parse(mux.Vars(r)["counterpartId"])
	if err != nil {
		return uuid.Nil, uuid.Nil, utils.NewValidationError("invalid counterpart id")
	}
	return userID, counterpartID, nil
}

func asAppError(err error) *utils.AppError {
	if appErr, ok := err.(*utils.AppError); ok {
		return appErr
	}
	return utils.NewAppError(utils.ErrDatabase, "internal error", err)
}
