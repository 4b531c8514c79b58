// Package api defines the collaborator contracts the board engine consumes.
// Implementations live outside the engine; the bundled HTTP client exists so
// the engine is runnable end-to-end, not because the engine requires it.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"tweetwall.live/internal/protocol"
)

// Client is the mutation/query surface of the board server.
type Client interface {
	// FetchItems performs the initial load for a board.
	FetchItems(ctx context.Context, boardID string) ([]protocol.ItemWire, error)
	// CreateItem returns the authoritative item, including the assigned id.
	// corrID is the client-generated correlation id echoed back by the
	// server so optimistic placeholders resolve without guessing.
	CreateItem(ctx context.Context, boardID, content, corrID string, x, y float64) (protocol.ItemWire, error)
	UpdateItemPosition(ctx context.Context, id string, x, y float64) error
	// ToggleLike flips the caller's like; liked is the state before the flip.
	ToggleLike(ctx context.Context, id string, liked bool) error
	DeleteItem(ctx context.Context, id string) error
}

// StatusError is a non-2xx response from any collaborator call.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// IsAuthError reports whether err is fatal to the session: an HTTP 401/403
// or the protocol-level auth code. Such errors are never retried; they route
// to the session-invalidation collaborator.
func IsAuthError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden || se.Code == protocol.ErrAuth
	}
	return false
}
