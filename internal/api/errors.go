package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blumetech/alertablu-dash/internal/upstream"
)

// errorBody is the stable error envelope for upstream failures. The proxy
// never answers 200 with an empty body and never leaks raw error objects;
// everything is translated to this vocabulary here.
type errorBody struct {
	Error     bool   `json:"error"`
	Kind      string `json:"kind"`
	Status    int    `json:"status,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// writeFetchError maps an upstream failure to 503 (the upstream is
// unreachable or misbehaving) or 500 (something unexpected on our side).
func (h *Handler) writeFetchError(c *gin.Context, err error) {
	body := errorBody{
		Error:     true,
		Kind:      string(upstream.KindInternal),
		Message:   "unexpected error while fetching the feed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusInternalServerError

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		body.Kind = string(upErr.Kind)
		body.Message = upErr.Error()
		if upErr.Kind == upstream.KindHTTPStatus {
			body.Status = upErr.Status
		}
		if upErr.Kind != upstream.KindInternal {
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, body)
	h.countProxy(c, status)
}
