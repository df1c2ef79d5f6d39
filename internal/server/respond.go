package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmatch/campusmatch/internal/apperr"
)

// RespondError renders a service error as a JSON body with the mapped
// status code. Rate-limit errors carry their remaining-quota metadata;
// internal errors are not echoed to the client.
func RespondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)

	body := gin.H{"error": err.Error()}
	if e, ok := apperr.As(err); ok && e.Kind == apperr.KindRateLimit {
		body["remaining"] = e.Remaining
		body["reset_at"] = e.ResetAt.UTC()
	}
	if status == http.StatusInternalServerError {
		body = gin.H{"error": "internal error"}
	}

	c.JSON(status, body)
}
