package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Session/auth.
	ErrAuth = "E_AUTH"

	// Board/item layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrNotFound     = "E_NOT_FOUND"
	ErrNoPermission = "E_NO_PERMISSION"
	ErrRateLimit    = "E_RATE_LIMIT"
	ErrConflict     = "E_CONFLICT"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrAuth:            {},
	ErrBadRequest:      {},
	ErrNotFound:        {},
	ErrNoPermission:    {},
	ErrRateLimit:       {},
	ErrConflict:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
