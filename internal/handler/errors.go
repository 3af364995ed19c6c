package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/export"
	"github.com/stemsi/eduassess-backend/internal/response"
	"github.com/stemsi/eduassess-backend/internal/service"
)

// serviceErrors maps domain sentinels to their HTTP status and API code.
var serviceErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrExamNotFound, http.StatusNotFound, response.ErrExamNotFound},
	{service.ErrAttemptNotFound, http.StatusNotFound, response.ErrAttemptNotFound},
	{service.ErrInvalidRegistration, http.StatusBadRequest, response.ErrInvalidRegistration},
	{service.ErrInvalidAnswer, http.StatusBadRequest, response.ErrInvalidAnswer},
	{service.ErrDuplicateAttempt, http.StatusConflict, response.ErrDuplicateAttempt},
	{service.ErrAttemptFinalized, http.StatusConflict, response.ErrAttemptFinalized},
	{service.ErrTeacherProfileRequired, http.StatusConflict, response.ErrTeacherProfileRequired},
	{service.ErrInvalidAccessPhrase, http.StatusUnauthorized, response.ErrInvalidAccessPhrase},
	{export.ErrUnsupportedFormat, http.StatusBadRequest, response.ErrUnsupportedFormat},
}

// failService writes the response for err. Unknown errors are logged and
// reported as INTERNAL_ERROR.
func failService(c *gin.Context, log zerolog.Logger, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			response.Fail(c, m.status, m.code)
			return
		}
	}
	log.Error().
		Err(err).
		Str("path", c.FullPath()).
		Str("request_id", response.RequestID(c)).
		Msg("Request failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// codeFor returns the API code for err, for transports without HTTP status.
func codeFor(err error) response.ErrCode {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return response.ErrInternal
}
