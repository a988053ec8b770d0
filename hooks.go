package netbound

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The mediator and the store call them on hot paths.
type Hooks interface {
	// A live job was replaced by a newer one for the same slot.
	Superseded(slot, oldID, newID string)

	// A job was torn down by Cancel/CancelAll or by its consumer.
	Cancelled(slot, id string)

	// A success-shaped response carried a business failure.
	DomainError(slot, msg string)

	// The remote call failed (network, server, timeout).
	TransportError(slot, msg string, err error)

	// Reading or persisting cached data for a run failed.
	CacheReadError(slot string, err error)
	CacheWriteError(slot string, err error)

	// A store entry was deleted on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	SelfHealSingle(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// GenStore errors (snapshot or bump).
	GenSnapshotError(storageKey string, err error)
	GenBumpError(storageKey string, err error)

	// Both gen bump and delete failed during Invalidate (likely backend outage).
	InvalidateOutage(key string, bumpErr, delErr error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Superseded(string, string, string)     {}
func (NopHooks) Cancelled(string, string)              {}
func (NopHooks) DomainError(string, string)            {}
func (NopHooks) TransportError(string, string, error)  {}
func (NopHooks) CacheReadError(string, error)          {}
func (NopHooks) CacheWriteError(string, error)         {}
func (NopHooks) SelfHealSingle(string, string)         {}
func (NopHooks) ProviderSetRejected(string)            {}
func (NopHooks) GenSnapshotError(string, error)        {}
func (NopHooks) GenBumpError(string, error)            {}
func (NopHooks) InvalidateOutage(string, error, error) {}
