package httpx

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/soundrise/creator-api/internal/errors"
)

// WriteAppError maps a domain error onto the wire: validation → 400,
// not found → 404, conflict → 409, rate limited → 429 with Retry-After,
// everything else → 500 with the cause hidden from the client.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	switch code {
	case apperrors.ErrCodeValidation:
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: string(code), Err: err})
	case apperrors.ErrCodeNotFound:
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: string(code), Err: err})
	case apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey:
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: string(code), Err: err})
	case apperrors.ErrCodeRateLimited:
		writeRateLimited(w, err)
	case apperrors.ErrCodeTimeout, apperrors.ErrCodeCanceled:
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: string(code), Err: err})
	default:
		WriteJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "internal", "message": "internal server error"})
	}
}

func writeRateLimited(w http.ResponseWriter, err error) {
	resetAt := apperrors.GetResetAt(err)
	if !resetAt.IsZero() {
		retry := int(time.Until(resetAt).Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusTooManyRequests,
		ErrCode: string(apperrors.ErrCodeRateLimited),
		Err:     err,
	})
}
