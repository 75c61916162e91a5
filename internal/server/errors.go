package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// apiError ties a failure to the request it happened in.
type apiError struct {
	reqid string
	err   error
}

func (e apiError) wrap(cause error, txt string) error {
	e.err = errors.WithMessage(errors.WithStack(cause), txt)
	return e
}

func (e apiError) text(txt string) error {
	e.err = errors.WithStack(errors.New(txt))
	return e
}

func (e apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.reqid, e.err.Error())
}

func (e apiError) Cause() error {
	return errors.Cause(e.err)
}

func (e apiError) Unwrap() error {
	return e.err
}

func newAPIError(c *gin.Context) apiError {
	return apiError{reqid: c.GetString(requestIDKey)}
}

type errorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// fail aborts the request with a JSON error body. Server errors are logged
// with their stack; the client only sees msg.
func (s *Server) fail(c *gin.Context, status int, err error, msg string) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg,
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("error", fmt.Sprintf("%+v", err)))
	} else {
		s.logger.Debug(msg,
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Success:   false,
		Message:   msg,
		RequestID: c.GetString(requestIDKey),
	})
}
