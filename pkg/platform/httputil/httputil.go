// Package httputil writes and reads the JSON envelope shared by every user store endpoint.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"userdir/pkg/contracts/userapi"
	dErrors "userdir/pkg/domain-errors"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Validatable is implemented by request bodies that check themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes {success: true, message, data}. A nil data omits the member.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	env := userapi.Envelope{Success: true, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode response"))
			return
		}
		env.Data = raw
	}
	WriteJSON(w, status, env)
}

// WriteError maps err to a status and writes {success: false, message, errors}.
// Internal errors never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	env := userapi.Envelope{Success: false, Message: "Internal server error"}
	var de *dErrors.Error
	if errors.As(err, &de) && status < http.StatusInternalServerError {
		env.Message = de.Message
		if len(de.Details) > 0 {
			raw, merr := json.Marshal(de.Details)
			if merr == nil {
				env.Errors = raw
			}
		}
	}
	WriteJSON(w, status, env)
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvalidFormat:
		return http.StatusBadRequest
	case dErrors.CodeUnprocessable:
		return http.StatusUnprocessableEntity
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// DecodeAndPrepare decodes the body into T and runs its Validate method when it
// has one. On failure it writes the error response and returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		msg := "Invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		logger.WarnContext(ctx, "failed to decode request",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return nil, false
	}

	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "invalid request",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
