package core

// Status is the activation state of a provider.
type Status string

const (
	StatusOFF Status = "OFF"
	StatusON  Status = "ON"
)

// Signal names a provider notification.
type Signal string

const (
	// SignalData carries a value produced by the provider.
	SignalData Signal = "data"
	// SignalError carries an error produced by the provider.
	SignalError Signal = "error"
	// SignalWantsData asks a pull-style provider to produce a value. The
	// payload is the opts passed to RequestData (may be nil).
	SignalWantsData Signal = "wantsData"
)

// Listener receives a signal payload.
type Listener func(payload any)

// Provider is the interface every data provider must implement.
//
// Concrete providers normally embed *provider.Base, which implements the whole
// contract, and override TurnON/TurnOFF to manage their own resources. An
// override must still chain to the embedded implementation so the status flag
// moves.
type Provider interface {
	// TurnON activates the provider. It must be idempotent. A non-nil error
	// means the provider did not start.
	TurnON() error

	// TurnOFF deactivates the provider. It must be idempotent.
	TurnOFF() error

	// IsTurnedON reports the current status.
	IsTurnedON() bool

	// RequestData emits SignalWantsData with opts to the wantsData listeners.
	RequestData(opts any)

	// SetData notifies data listeners asynchronously.
	SetData(v any)

	// SetError notifies error listeners asynchronously.
	SetError(err error)

	// Listen attaches fn to sig and returns a function that detaches it.
	Listen(sig Signal, fn Listener) (cancel func())

	// RemoveAllListeners detaches every listener of every signal.
	RemoveAllListeners()

	// Bind claims the provider for a single owner. It fails with
	// ErrProviderInUse on every call after the first.
	Bind() error
}
