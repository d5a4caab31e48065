package registry

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the registry admin
	// role required for mutations.
	ErrUnauthorized = errors.New("registry: caller not authorized")
	// ErrUnknownKind is returned when a kind lookup misses either map.
	ErrUnknownKind = errors.New("registry: unknown kind")
	// ErrInvalidKind is returned for empty, oversized or malformed kind names.
	ErrInvalidKind = errors.New("registry: invalid kind name")
	// ErrInvalidTemplate is returned for empty or malformed template IDs.
	ErrInvalidTemplate = errors.New("registry: invalid template id")
)
