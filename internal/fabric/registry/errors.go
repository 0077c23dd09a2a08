package registry

import "errors"

// ErrInvalidID is returned when a caller supplies an empty component id.
var ErrInvalidID = errors.New("registry: invalid component id")

// ErrAlreadyRegistered is returned by Register when the id already exists.
var ErrAlreadyRegistered = errors.New("registry: component already registered")

// ErrUnknownComponent is returned when an operation references an id that
// has not been registered.
var ErrUnknownComponent = errors.New("registry: unknown component")
