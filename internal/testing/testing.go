// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// MockRoundTripper returns a fixed response (or error) for every request.
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FuncRoundTripper delegates to a function, for per-request scripting.
type FuncRoundTripper func(*http.Request) (*http.Response, error)

func (f FuncRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// JSONResponse builds an *http.Response with the given status and body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

// Envelope wraps data in the backend's {success, data, message} shape.
func Envelope(data string) string {
	return fmt.Sprintf(`{"success": true, "data": %s}`, data)
}

// FakePlayer is a scriptable playback.Player implementation.
type FakePlayer struct {
	mu      sync.Mutex
	watched float64
	total   float64
	playing bool
}

func NewFakePlayer(watched, total float64, playing bool) *FakePlayer {
	return &FakePlayer{watched: watched, total: total, playing: playing}
}

func (p *FakePlayer) Position() (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watched, p.total
}

func (p *FakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *FakePlayer) Seek(watched float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watched = watched
}

func (p *FakePlayer) SetPlaying(playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = playing
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
