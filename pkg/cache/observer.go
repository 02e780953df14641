package cache

// Event identifies what happened to a key.
type Event int

const (
	// EventHit is emitted when a fresh entry is served.
	EventHit Event = iota
	// EventMiss is emitted when the fetch function is called.
	EventMiss
	// EventStale is emitted when a stale entry is served after a failed fetch.
	EventStale
	// EventFetchError is emitted when the fetch function fails.
	EventFetchError
	// EventRemoved is emitted for every entry removed by an invalidation call.
	EventRemoved
)

// String returns the event name used as a metric label.
func (e Event) String() string {
	switch e {
	case EventHit:
		return "hit"
	case EventMiss:
		return "miss"
	case EventStale:
		return "stale"
	case EventFetchError:
		return "fetch_error"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Observer receives cache events. It runs on the caller's goroutine and
// must be fast.
type Observer interface {
	Observe(cache string, ev Event, key string)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(cache string, ev Event, key string)

// Observe calls f.
func (f ObserverFunc) Observe(cache string, ev Event, key string) {
	f(cache, ev, key)
}
