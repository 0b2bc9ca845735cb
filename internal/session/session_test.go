package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"coursectl/internal/api"
	"coursectl/internal/credstore"
	"coursectl/internal/shared"
	tu "coursectl/internal/testing"
)

// memBackend is an in-memory credential location.
type memBackend struct {
	mu    sync.Mutex
	token string
}

func (b *memBackend) Name() string { return "memory" }

func (b *memBackend) Read() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token, nil
}

func (b *memBackend) Write(token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
	return nil
}

func (b *memBackend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = ""
	return nil
}

func (b *memBackend) current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

const userJSON = `{"id": "u1", "email": "ada@example.com", "name": "Ada", "role": "student"}`

// newTestManager wires a Manager over a scripted transport and two
// in-memory credential locations, mirroring the production construction
// order: client first, then the token source.
func newTestManager(rt http.RoundTripper, stored string) (*Manager, *memBackend, *memBackend) {
	logger := shared.NewLogger(io.Discard)
	primary := &memBackend{token: stored}
	secondary := &memBackend{token: stored}
	creds := credstore.NewStore(logger, primary, secondary)

	client := api.NewClient(api.ClientOpts{
		BaseURL:    "http://api.test",
		HTTPClient: &http.Client{Transport: rt},
		RateLimit:  1000,
		Logger:     logger,
	})
	manager := NewManager(ManagerOpts{Client: client, Credentials: creds, Logger: logger})
	client.SetToken(manager.Token)

	return manager, primary, secondary
}

func TestManagerInitialize(t *testing.T) {
	t.Run("no stored token resolves unauthenticated without network", func(t *testing.T) {
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			t.Errorf("unexpected request to %s", req.URL.Path)
			return nil, errors.New("no network expected")
		})
		manager, _, _ := newTestManager(rt, "")

		if got := manager.Initialize(context.Background()); got != StateUnauthenticated {
			t.Errorf("Initialize = %v, want Unauthenticated", got)
		}
	})

	t.Run("valid stored token resolves authenticated", func(t *testing.T) {
		var sentToken string
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			sentToken = req.Header.Get("Authorization")
			return tu.JSONResponse(200, tu.Envelope(`{"user": `+userJSON+`}`)), nil
		})
		manager, _, _ := newTestManager(rt, "stored-tok")

		if got := manager.Initialize(context.Background()); got != StateAuthenticated {
			t.Fatalf("Initialize = %v, want Authenticated", got)
		}
		if sentToken != "Bearer stored-tok" {
			t.Errorf("verification request carried %q", sentToken)
		}

		current := manager.Current()
		if current.Email != "ada@example.com" || current.Token != "stored-tok" {
			t.Errorf("unexpected session: %+v", current)
		}
	})

	t.Run("rejected token fails closed and clears every location", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(tu.JSONResponse(401, `{"success": false, "message": "expired"}`), nil)
		manager, primary, secondary := newTestManager(rt, "stale-tok")

		if got := manager.Initialize(context.Background()); got != StateUnauthenticated {
			t.Errorf("Initialize = %v, want Unauthenticated", got)
		}
		if primary.current() != "" || secondary.current() != "" {
			t.Errorf("expected all credential locations cleared, got %q and %q",
				primary.current(), secondary.current())
		}
		if manager.Token() != "" {
			t.Errorf("expected empty session token, got %q", manager.Token())
		}
	})

	t.Run("unreachable backend fails closed", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(nil, errors.New("connection refused"))
		manager, primary, _ := newTestManager(rt, "some-tok")

		if got := manager.Initialize(context.Background()); got != StateUnauthenticated {
			t.Errorf("Initialize = %v, want Unauthenticated", got)
		}
		if primary.current() != "" {
			t.Error("expected credentials cleared on unverifiable session")
		}
	})
}

func TestManagerLogin(t *testing.T) {
	t.Run("success persists the token everywhere", func(t *testing.T) {
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/auth/login" {
				t.Errorf("unexpected path %s", req.URL.Path)
			}
			return tu.JSONResponse(200, tu.Envelope(`{"token": "fresh-tok", "user": `+userJSON+`}`)), nil
		})
		manager, primary, secondary := newTestManager(rt, "")

		if err := manager.Login(context.Background(), "ada@example.com", "pw"); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if manager.State() != StateAuthenticated {
			t.Errorf("State = %v, want Authenticated", manager.State())
		}
		if primary.current() != "fresh-tok" || secondary.current() != "fresh-tok" {
			t.Errorf("expected token in all locations, got %q and %q",
				primary.current(), secondary.current())
		}
		if manager.Current().Name != "Ada" {
			t.Errorf("unexpected session: %+v", manager.Current())
		}
	})

	t.Run("failure leaves stored credentials untouched", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(tu.JSONResponse(401, `{"success": false, "message": "bad password"}`), nil)
		manager, primary, _ := newTestManager(rt, "previous-tok")

		err := manager.Login(context.Background(), "ada@example.com", "wrong")
		if err == nil {
			t.Fatal("expected login error")
		}
		if manager.State() != StateUnauthenticated {
			t.Errorf("State = %v, want Unauthenticated", manager.State())
		}
		if primary.current() != "previous-tok" {
			t.Errorf("stored credential should survive a failed login, got %q", primary.current())
		}
	})
}

func TestManagerRegister(t *testing.T) {
	t.Run("without a token stays unauthenticated", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(tu.JSONResponse(200, tu.Envelope(`{"user": `+userJSON+`}`)), nil)
		manager, primary, _ := newTestManager(rt, "")

		if err := manager.Register(context.Background(), "Ada", "ada@example.com", "pw"); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if manager.State() != StateUnauthenticated {
			t.Errorf("State = %v, want Unauthenticated", manager.State())
		}
		if primary.current() != "" {
			t.Errorf("expected no stored credential, got %q", primary.current())
		}
	})

	t.Run("with a token authenticates immediately", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(tu.JSONResponse(200, tu.Envelope(`{"token": "reg-tok", "user": `+userJSON+`}`)), nil)
		manager, primary, _ := newTestManager(rt, "")

		if err := manager.Register(context.Background(), "Ada", "ada@example.com", "pw"); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if manager.State() != StateAuthenticated {
			t.Errorf("State = %v, want Authenticated", manager.State())
		}
		if primary.current() != "reg-tok" {
			t.Errorf("expected stored credential, got %q", primary.current())
		}
	})
}

func TestManagerLogout(t *testing.T) {
	login := func(t *testing.T, manager *Manager) {
		t.Helper()
		if err := manager.Login(context.Background(), "ada@example.com", "pw"); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
	}

	t.Run("clears local state even when the server call fails", func(t *testing.T) {
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			switch req.URL.Path {
			case "/auth/login":
				return tu.JSONResponse(200, tu.Envelope(`{"token": "tok", "user": `+userJSON+`}`)), nil
			case "/auth/logout":
				return nil, errors.New("connection refused")
			default:
				return tu.JSONResponse(404, `{"success": false}`), nil
			}
		})
		manager, primary, secondary := newTestManager(rt, "")
		login(t, manager)

		manager.Logout(context.Background(), LogoutOpts{})

		if manager.State() != StateUnauthenticated {
			t.Errorf("State = %v, want Unauthenticated", manager.State())
		}
		if primary.current() != "" || secondary.current() != "" {
			t.Error("expected all credential locations cleared")
		}
		if manager.Token() != "" {
			t.Errorf("expected empty token, got %q", manager.Token())
		}
	})

	t.Run("skip server call performs no network", func(t *testing.T) {
		var logoutCalls int
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			switch req.URL.Path {
			case "/auth/login":
				return tu.JSONResponse(200, tu.Envelope(`{"token": "tok", "user": `+userJSON+`}`)), nil
			case "/auth/logout":
				logoutCalls++
				return tu.JSONResponse(200, tu.Envelope(`{}`)), nil
			default:
				return tu.JSONResponse(404, `{"success": false}`), nil
			}
		})
		manager, _, _ := newTestManager(rt, "")
		login(t, manager)

		manager.Logout(context.Background(), LogoutOpts{Silent: true, SkipServerCall: true})

		if logoutCalls != 0 {
			t.Errorf("expected no logout request, got %d", logoutCalls)
		}
		if manager.State() != StateUnauthenticated {
			t.Errorf("State = %v, want Unauthenticated", manager.State())
		}
	})
}

func TestManagerRefresh(t *testing.T) {
	t.Run("no-op when unauthenticated", func(t *testing.T) {
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			t.Errorf("unexpected request to %s", req.URL.Path)
			return nil, errors.New("no network expected")
		})
		manager, _, _ := newTestManager(rt, "")

		manager.Refresh(context.Background())

		if manager.State() != StateUnauthenticated {
			t.Errorf("State = %v, want Unauthenticated", manager.State())
		}
	})

	t.Run("failure logs out silently and clears credentials", func(t *testing.T) {
		failValidation := false
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			switch req.URL.Path {
			case "/auth/login":
				return tu.JSONResponse(200, tu.Envelope(`{"token": "tok", "user": `+userJSON+`}`)), nil
			case "/auth/validate-token":
				if failValidation {
					return tu.JSONResponse(401, `{"success": false, "message": "expired"}`), nil
				}
				return tu.JSONResponse(200, tu.Envelope(`{"user": `+userJSON+`}`)), nil
			case "/auth/logout":
				t.Error("silent refresh logout must not call the server")
				return nil, errors.New("unexpected")
			default:
				return tu.JSONResponse(404, `{"success": false}`), nil
			}
		})
		manager, primary, _ := newTestManager(rt, "")
		if err := manager.Login(context.Background(), "ada@example.com", "pw"); err != nil {
			t.Fatal(err)
		}

		failValidation = true
		manager.Refresh(context.Background())

		if manager.State() != StateUnauthenticated {
			t.Errorf("State = %v, want Unauthenticated", manager.State())
		}
		if primary.current() != "" {
			t.Error("expected credentials cleared after failed refresh")
		}
	})

	t.Run("logout during an in-flight refresh wins", func(t *testing.T) {
		validateStarted := make(chan struct{})
		validateRelease := make(chan struct{})
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			switch req.URL.Path {
			case "/auth/login":
				return tu.JSONResponse(200, tu.Envelope(`{"token": "tok", "user": `+userJSON+`}`)), nil
			case "/auth/validate-token":
				close(validateStarted)
				<-validateRelease
				return tu.JSONResponse(200, tu.Envelope(`{"user": `+userJSON+`}`)), nil
			case "/auth/logout":
				return tu.JSONResponse(200, tu.Envelope(`{}`)), nil
			default:
				return tu.JSONResponse(404, `{"success": false}`), nil
			}
		})
		manager, primary, _ := newTestManager(rt, "")
		if err := manager.Login(context.Background(), "ada@example.com", "pw"); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.Refresh(context.Background())
		}()
		<-validateStarted

		manager.Logout(context.Background(), LogoutOpts{})

		// Let the refresh complete with a successful validation; its
		// result must be dropped because the logout came later.
		close(validateRelease)
		wg.Wait()

		if manager.State() != StateUnauthenticated {
			t.Errorf("State = %v, want Unauthenticated after logout-refresh race", manager.State())
		}
		if manager.Token() != "" {
			t.Errorf("expected empty token, got %q", manager.Token())
		}
		if primary.current() != "" {
			t.Errorf("expected credentials cleared, got %q", primary.current())
		}
	})
}

func TestManagerAutoRefresh(t *testing.T) {
	t.Run("ticker drives refresh until Close", func(t *testing.T) {
		var mu sync.Mutex
		validations := 0
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			switch req.URL.Path {
			case "/auth/login":
				return tu.JSONResponse(200, tu.Envelope(`{"token": "tok", "user": `+userJSON+`}`)), nil
			case "/auth/validate-token":
				mu.Lock()
				validations++
				mu.Unlock()
				return tu.JSONResponse(200, tu.Envelope(`{"user": `+userJSON+`}`)), nil
			default:
				return tu.JSONResponse(404, `{"success": false}`), nil
			}
		})
		manager, _, _ := newTestManager(rt, "")
		if err := manager.Login(context.Background(), "ada@example.com", "pw"); err != nil {
			t.Fatal(err)
		}

		manager.StartAutoRefresh(10 * time.Millisecond)
		time.Sleep(60 * time.Millisecond)
		manager.Close()

		mu.Lock()
		count := validations
		mu.Unlock()
		if count == 0 {
			t.Error("expected at least one background validation")
		}
	})

	t.Run("Close is idempotent", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(tu.JSONResponse(200, tu.Envelope(`{}`)), nil)
		manager, _, _ := newTestManager(rt, "")

		manager.Close()
		manager.StartAutoRefresh(time.Hour)
		manager.Close()
		manager.Close()
	})
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateUnauthenticated: "unauthenticated",
		StateVerifying:       "verifying",
		StateAuthenticated:   "authenticated",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
