// Package v1 provides authentication business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors that represent the outcomes the HTTP
// boundary has to tell apart. They are wrapped with context using
// fmt.Errorf("%w") when returned from business logic methods.
//
// Example Usage:
//
//	if user == nil {
//	    return nil, fmt.Errorf("authenticate %q: %w", identifier, ErrInvalidCredentials)
//	}
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrDuplicateIdentifier):
//	    // re-render the signup form
//	case errors.Is(err, logicv1.ErrInvalidCredentials):
//	    c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid identifier or password"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
//	}
package v1

import "errors"

// Sentinel errors for authentication operations.
var (
	// ErrDuplicateIdentifier indicates the identifier is already registered.
	// HTTP: signup form re-rendered (200) / 409 Conflict on the JSON API.
	ErrDuplicateIdentifier = errors.New("identifier already exists")

	// ErrInvalidInput indicates an empty identifier, empty password or a
	// password longer than the hasher accepts.
	// HTTP: signup form re-rendered (200) / 400 Bad Request on the JSON API.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// password, so callers cannot enumerate accounts.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized indicates the route guard denied the request.
	// HTTP Status: 401 Unauthorized
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedHash indicates a stored password hash could not be parsed.
	// HTTP Status: 500 Internal Server Error
	ErrMalformedHash = errors.New("malformed password hash")

	// ErrStoreUnavailable wraps any failure of the user or session store.
	// HTTP Status: 500 Internal Server Error
	ErrStoreUnavailable = errors.New("store unavailable")
)
