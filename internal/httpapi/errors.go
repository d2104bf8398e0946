package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	amerrors "github.com/moabualruz/ricegrep/internal/errors"
)

// errorPayload is the wire shape every error response uses: {"error": "...", "kind": "..."}.
type errorPayload struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeHandlerError maps an admission rejection to its HTTP status: 401 for
// a failed authentication, 429 for rate limiting, 500 otherwise.
func writeHandlerError(c *gin.Context, err error) {
	var ae *amerrors.AmanError
	if errors.As(err, &ae) {
		switch ae.Code {
		case amerrors.ErrCodeAuthRequired, amerrors.ErrCodeAuthInvalid:
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorPayload{Error: ae.Message, Kind: "authentication"})
			return
		case amerrors.ErrCodeRateLimited:
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorPayload{Error: ae.Message, Kind: "rate_limit"})
			return
		}
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorPayload{Error: err.Error(), Kind: "internal"})
}

// writeValidationError reports a malformed request body as 400.
func writeValidationError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorPayload{Error: message, Kind: "validation"})
}

// writeQueryError reports a failure while executing a valid request
// (search/benchmark execution error) as 502, matching the original
// gateway's distinction between a bad request and a downstream failure.
func writeQueryError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadGateway, errorPayload{Error: message, Kind: "query"})
}
