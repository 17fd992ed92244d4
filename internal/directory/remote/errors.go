package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"userdir/pkg/contracts/userapi"
)

// Kind classifies a failure response from the store.
type Kind string

const (
	KindBadRequest    Kind = "bad_request"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindUnprocessable Kind = "unprocessable"
	KindServer        Kind = "server"
	KindUnexpected    Kind = "unexpected"
)

func kindFor(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnprocessableEntity:
		return KindUnprocessable
	case status >= 500:
		return KindServer
	}
	return KindUnexpected
}

// APIError is returned when the store answers with a failure.
type APIError struct {
	Op      string
	Status  int
	Kind    Kind
	Message string
	Details []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("user store %s: %d %s: %s", e.Op, e.Status, e.Kind, e.UserMessage())
}

// UserMessage joins the store's message and detail entries into one line.
func (e *APIError) UserMessage() string {
	parts := make([]string, 0, 1+len(e.Details))
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(e.Details) > 0 {
		detail := strings.Join(e.Details, "; ")
		if len(parts) == 0 {
			return detail
		}
		return parts[0] + ": " + detail
	}
	if len(parts) == 0 {
		if text := http.StatusText(e.Status); text != "" {
			return text
		}
		return "Request failed"
	}
	return parts[0]
}

// NetworkError is returned when the store could not be reached or did not answer in time.
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("user store %s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("user store %s: unreachable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Message returns the human-readable text to show for a failed remote operation.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if netErr.Timeout {
			return "The user service did not respond in time. Please try again."
		}
		return "Unable to reach the user service. Please check your connection."
	}
	return err.Error()
}

// IsKind reports whether err is an APIError of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// decodeDetails flattens the errors member: a string, a list of strings or
// {field, message|msg} objects, or an object keyed by field.
func decodeDetails(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := detailText(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	var byField map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byField); err == nil {
		keys := make([]string, 0, len(byField))
		for k := range byField {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := detailText(byField[k]); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func detailText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		userapi.FieldError
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Msg
	}
	return ""
}
