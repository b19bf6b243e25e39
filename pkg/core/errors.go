package core

import "errors"

// Misuse errors. They are returned synchronously to the caller and never
// delivered on an error channel.
var (
	ErrAlreadyRegistered  = errors.New("provider is already registered")
	ErrNoProvider         = errors.New("provider should be registered before subscribing")
	ErrUnsupportedChannel = errors.New("only the data and error channels are supported")
	ErrNilProvider        = errors.New("provider must not be nil")
	ErrProviderInUse      = errors.New("provider is already bound to an emitter")
	ErrNilListener        = errors.New("listener must not be nil")
)

// ErrActivation wraps the cause when a provider fails to turn on during
// subscription.
var ErrActivation = errors.New("provider activation failed")
