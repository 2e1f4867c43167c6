package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/ItIsGreg/Raki-sub002/pkg/store"
)

// NetworkError reports that the request never produced an HTTP response.
type NetworkError struct {
	Op    string
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, constants.ErrNetwork, e.Cause)
}

func (e *NetworkError) Is(target error) bool { return target == constants.ErrNetwork }
func (e *NetworkError) Unwrap() error        { return e.Cause }

// APIError is an HTTP error status returned by the backend. The statuses
// with a shared meaning unwrap to the matching sentinel, so callers can test
// errors.Is(err, constants.ErrNotFound) without caring about HTTP.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: status=%d", e.Status)
	}
	return fmt.Sprintf("API error: status=%d, detail=%s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return constants.ErrUnauthorized
	case http.StatusForbidden:
		return constants.ErrForbidden
	case http.StatusNotFound:
		return constants.ErrNotFound
	case http.StatusConflict:
		return constants.ErrConflict
	}
	return nil
}

// statusError converts an error response into the shared error vocabulary.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload api.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Detail == "" {
		payload.Detail = string(body)
	}
	apiErr := &APIError{Status: resp.StatusCode, Message: payload.Detail}

	switch resp.StatusCode {
	case http.StatusUnprocessableEntity:
		reasons := payload.Reasons
		if len(reasons) == 0 {
			reasons = []string{payload.Detail}
		}
		return &models.ValidationError{Reasons: reasons}
	case http.StatusInsufficientStorage:
		return &store.StorageFullError{Cause: apiErr}
	}
	return apiErr
}
