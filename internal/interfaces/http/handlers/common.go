// Package handlers implements the HTTP API over the pipeline's persisted
// outputs.  Handlers hold narrow read interfaces, never concrete repositories.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adstedt/contentmax-sub005/pkg/errors"
)

// errorBody is the uniform error envelope of every non-2xx response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError renders err as JSON with the status its code maps to.
// Non-AppError values are masked as internal errors so transport callers
// never see raw driver messages.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ae *errors.AppError
	if !stderrors.As(err, &ae) {
		c.JSON(http.StatusInternalServerError, errorBody{Error: errorDetail{
			Code:    string(errors.ErrCodeInternal),
			Message: "internal error",
		}})
		return
	}

	body := errorBody{Error: errorDetail{
		Code:    string(ae.Code),
		Message: ae.Message,
	}}
	if errors.IsClientError(ae.Code) {
		body.Error.Detail = ae.Detail
	}
	c.JSON(errors.HTTPStatusForCode(ae.Code), body)
}
