package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// ErrInvalidRequest marks a request rejected before it reached the network.
var ErrInvalidRequest = errors.New("invalid request")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s: http %d", e.Path, e.Status)
	}
	return fmt.Sprintf("backend %s: http %d: %s", e.Path, e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// messageFromBody extracts a human-readable message from an error body.
func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	res := gjson.ParseBytes(body)
	if res.Type == gjson.String {
		return res.String()
	}
	for _, path := range []string{"message", "error", "detail", "errors.0.message", "errors.0"} {
		if v := res.Get(path); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// Message returns the text to show for err, or fallback when err carries
// no backend or validation message.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return validationMessage(verrs)
	}
	if errors.Is(err, ErrInvalidRequest) {
		return strings.TrimPrefix(err.Error(), ErrInvalidRequest.Error()+": ")
	}
	return fallback
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "email":
			parts = append(parts, fe.Field()+" must be a valid email")
		case "eth_addr":
			parts = append(parts, fe.Field()+" must be a valid wallet address")
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
