package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-chat/internal/app"
	"gopherai-chat/internal/transport/http/response"
)

// writeServiceError maps service errors to the response envelope. Upstream
// and storage details are logged, never returned.
func writeServiceError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeMessageEmpty, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
	case errors.Is(err, app.ErrConcurrentUpdate):
		response.Error(c, http.StatusConflict, response.CodeConflict, "session was updated by another request, retry")
	case errors.Is(err, app.ErrGenerationFailed):
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, "the model could not answer, try again")
	case errors.Is(err, app.ErrExtractionFailed):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeUnprocessable, "could not read text from the uploaded document")
	default:
		slog.ErrorContext(c.Request.Context(), action+" failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, action+" failed")
	}
}
