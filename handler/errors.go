package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"live-class/errs"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError writes the domain error verbatim. Unexpected errors are logged
// and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	message := err.Error()
	if !errs.IsDomain(err) {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: errs.Kind(err), Message: message})
}
