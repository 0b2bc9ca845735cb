package api

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned to callers of a flight that was replaced by a
// newer request for the same logical query. It is a terminal no-op, not a
// failure: callers must not surface it to the user.
var ErrSuperseded = errors.New("request superseded")

// ParamsKey derives a stable, order-independent key from query parameters.
func ParamsKey(params url.Values) string {
	return params.Encode() // Encode sorts by key
}

// flight is one in-flight request for a logical query.
type flight struct {
	key    string
	ctx    context.Context
	cancel context.CancelFunc
}

// Registry enforces the single-slot in-flight invariant per logical query.
//
// Identical (query, paramsKey) calls join the existing flight through
// singleflight, so N concurrent callers produce exactly one network call.
// A call with a different paramsKey cancels the current flight's context and
// takes the slot; the old flight re-checks slot identity on completion and
// yields [ErrSuperseded] even if its response raced through, so only the
// most recent request's result ever reaches callers.
type Registry struct {
	mu      sync.Mutex
	current map[string]*flight
	group   singleflight.Group
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{current: make(map[string]*flight)}
}

// Do runs fn under the in-flight invariant for the named logical query.
// fn receives a context that is cancelled if the flight is superseded.
func (r *Registry) Do(query, paramsKey string, fn func(context.Context) (any, error)) (any, error) {
	flightKey := query + "\x1f" + paramsKey

	r.mu.Lock()
	cur := r.current[query]
	if cur == nil || cur.key != flightKey {
		if cur != nil {
			cur.cancel()
			r.group.Forget(cur.key)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cur = &flight{key: flightKey, ctx: ctx, cancel: cancel}
		r.current[query] = cur
	}
	this := cur
	r.mu.Unlock()

	v, err, _ := r.group.Do(flightKey, func() (any, error) {
		v, err := fn(this.ctx)

		r.mu.Lock()
		active := r.current[query] == this
		if active {
			delete(r.current, query)
			this.cancel()
		}
		r.mu.Unlock()

		if !active || this.ctx.Err() != nil {
			return nil, ErrSuperseded
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, ErrSuperseded
			}
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Cancel aborts the in-flight request for the named logical query, if any.
func (r *Registry) Cancel(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.current[query]; cur != nil {
		cur.cancel()
		r.group.Forget(cur.key)
		delete(r.current, query)
	}
}

// InFlight reports whether a request is currently in flight for the query.
func (r *Registry) InFlight(query string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current[query] != nil
}
