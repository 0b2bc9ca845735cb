// Package api implements the HTTP client for the course platform backend.
//
// Every response travels in a {success, data, message} envelope; a
// success:false body on a 2xx status is a logical failure, not a transport
// failure. Failures surface as a typed [*Error] carrying a [Kind], the HTTP
// status, a human-readable message, and field-level validation details when
// the backend supplies them. The client never panics on transport failure.
//
// The [Registry] enforces the in-flight invariant: for any logical query, at
// most one request is in flight at a time. Identical parameters join the
// existing flight (one network call, N callers); different parameters cancel
// and supersede it, and a superseded flight's result is discarded no matter
// when it arrives. [Debouncer] coalesces keystroke-driven query bursts
// before dispatch.
package api
