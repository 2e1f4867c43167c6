package constants

import "errors"

// Errors shared by the local store, the cloud gateway and the services on
// top of them. Backend specific error types wrap one of these so callers can
// use errors.Is regardless of where the operation was routed.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrNetwork            = errors.New("network error")
	ErrIntegrity          = errors.New("integrity violation")
	ErrStorageFull        = errors.New("storage full")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrReadOnly           = errors.New("operation denied: store is read-only")
)
