package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "funnel-workers/internal/common/errors"
)

type errorBody struct {
	Code    appErrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Details string              `json:"details,omitempty"`
}

func toBody(stdErr *appErrors.StandardError) errorBody {
	return errorBody{Code: stdErr.Code, Message: stdErr.Message, Details: stdErr.Details}
}

// abort writes err with the status mapped from its code.
func (s *Server) abort(c *gin.Context, err error) {
	stdErr := appErrors.Normalize(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErrors.HTTPStatus(stdErr.Code), gin.H{"error": toBody(stdErr)})
}

func badRequest(details string) error {
	return appErrors.NewInvalidPayloadError(details)
}

// bind decodes the JSON body into dst. An empty body leaves dst untouched.
func bind(c *gin.Context, dst interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

func quotationID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("qid"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("quotation id must be a positive integer")
	}
	return id, nil
}
