package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gopherai-chat/internal/app"
	"gopherai-chat/internal/transport/http/middleware"
	"gopherai-chat/internal/transport/http/response"
)

type SessionHandler struct {
	sessionService *app.SessionService
	maxUploadBytes int64
}

type SendMessageRequest struct {
	Text string `json:"text"`
	// Msg is the field name older clients send.
	Msg string `json:"msg"`
}

type sessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewSessionHandler(sessionService *app.SessionService, maxUploadBytes int64) *SessionHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &SessionHandler{
		sessionService: sessionService,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	uid, ok := subjectID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.CreateSession(c.Request.Context(), uid)
	if err != nil {
		writeServiceError(c, err, "create session")
		return
	}

	response.OK(c, gin.H{
		"id":        session.ID,
		"title":     session.Title,
		"turns":     []interface{}{},
		"createdAt": session.CreatedAt,
	})
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	uid, ok := subjectID(c)
	if !ok {
		return
	}

	sessions, err := h.sessionService.ListSessions(c.Request.Context(), uid)
	if err != nil {
		writeServiceError(c, err, "list sessions")
		return
	}

	out := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionSummary{ID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt})
	}
	response.OK(c, out)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	uid, ok := subjectID(c)
	if !ok {
		return
	}

	turns, err := h.sessionService.GetSession(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "get session")
		return
	}
	response.OK(c, turns)
}

type sessionEvent struct {
	Type      string    `json:"type"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *SessionHandler) ListEvents(c *gin.Context) {
	uid, ok := subjectID(c)
	if !ok {
		return
	}

	events, err := h.sessionService.ListEvents(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "list session events")
		return
	}
	out := make([]sessionEvent, 0, len(events))
	for _, e := range events {
		out = append(out, sessionEvent{Type: e.Type, Detail: e.Detail, CreatedAt: e.CreatedAt})
	}
	response.OK(c, out)
}

func (h *SessionHandler) SendMessage(c *gin.Context) {
	uid, ok := subjectID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	text := req.Text
	if strings.TrimSpace(text) == "" {
		text = req.Msg
	}

	reply, err := h.sessionService.SendMessage(c.Request.Context(), uid, c.Param("id"), text)
	if err != nil {
		writeServiceError(c, err, "send message")
		return
	}
	response.OK(c, reply)
}

func (h *SessionHandler) UploadDocument(c *gin.Context) {
	uid, ok := subjectID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "file is too large")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "multipart field \"file\" is required")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFile, "only PDF files are supported")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "file is too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "file is too large")
		return
	}

	result, err := h.sessionService.UploadDocument(c.Request.Context(), uid, c.Param("id"), fileHeader.Filename, data)
	if err != nil {
		writeServiceError(c, err, "upload document")
		return
	}
	response.OK(c, gin.H{
		"message": "file uploaded & processed",
		"chars":   result.Chars,
	})
}

func (h *SessionHandler) DeleteSession(c *gin.Context) {
	uid, ok := subjectID(c)
	if !ok {
		return
	}

	sessionID := c.Param("id")
	if err := h.sessionService.DeleteSession(c.Request.Context(), uid, sessionID); err != nil {
		writeServiceError(c, err, "delete session")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": sessionID})
}

// subjectID writes a 401 and reports false when the auth middleware did not
// run for this route.
func subjectID(c *gin.Context) (string, bool) {
	subject, ok := middleware.SubjectFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing subject")
		return "", false
	}
	return subject.ID, true
}
