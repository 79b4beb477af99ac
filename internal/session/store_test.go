package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/capitalize-ai/conversational-client/internal/credential"
	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/notify"
	"github.com/capitalize-ai/conversational-client/internal/opstate"
	"github.com/capitalize-ai/conversational-client/internal/transport"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

// fakeAPI answers Send from a per-path table and records calls.
type fakeAPI struct {
	mu      sync.Mutex
	replies map[string]any
	errs    map[string]error
	calls   []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{replies: map[string]any{}, errs: map[string]error{}}
}

func (f *fakeAPI) Send(_ context.Context, method, path string, _ any, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+" "+path)

	if err, ok := f.errs[path]; ok {
		return err
	}
	if reply, ok := f.replies[path]; ok && out != nil {
		data, _ := json.Marshal(reply)
		return json.Unmarshal(data, out)
	}
	return nil
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestStore(api Sender) (*Store, credential.Store, *notify.Recorder) {
	creds := credential.NewMemoryStore()
	rec := notify.NewRecorder()
	return New(api, creds, rec, logger.NewNop()), creds, rec
}

func assertAuthConsistent(t *testing.T, s *Store, creds credential.Store) {
	t.Helper()
	want := s.User() != nil && creds.Token() != ""
	if s.IsAuthenticated() != want {
		t.Fatalf("IsAuthenticated=%v but user=%v credential=%q", s.IsAuthenticated(), s.User(), creds.Token())
	}
}

func TestLoginSuccess(t *testing.T) {
	api := newFakeAPI()
	api.replies[transport.EndpointSignIn] = model.AuthResponse{
		User:  &model.User{ID: "u1", Username: "alice"},
		Token: "tok",
	}
	s, creds, rec := newTestStore(api)

	if err := s.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if !s.IsAuthenticated() {
		t.Fatalf("expected authenticated")
	}
	if creds.Token() != "tok" {
		t.Fatalf("credential = %q, want tok", creds.Token())
	}
	if u := s.User(); u == nil || u.ID != "u1" || u.Username != "alice" {
		t.Fatalf("user = %+v", u)
	}
	if s.Status(OpLogin).State != opstate.Idle {
		t.Fatalf("login status = %v", s.Status(OpLogin).State)
	}
	if last, _ := rec.Last(); !last.Success || last.Operation != "login" {
		t.Fatalf("notification = %+v", last)
	}
	assertAuthConsistent(t, s, creds)
}

func TestNewWithNilLogger(t *testing.T) {
	api := newFakeAPI()
	api.replies[transport.EndpointSignIn] = model.AuthResponse{
		User:  &model.User{ID: "u1", Username: "alice"},
		Token: "tok",
	}
	creds := credential.NewMemoryStore()
	s := New(api, creds, nil, nil)

	if err := s.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	api.errs[transport.EndpointLogout] = transport.NewError(transport.KindServerError, 500, "")
	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if s.IsAuthenticated() || creds.Token() != "" {
		t.Fatalf("session survived logout")
	}
	assertAuthConsistent(t, s, creds)
}

func TestLoginFailureLeavesPriorSession(t *testing.T) {
	api := newFakeAPI()
	api.replies[transport.EndpointSignIn] = model.AuthResponse{
		User:  &model.User{ID: "u1", Username: "alice"},
		Token: "tok",
	}
	s, creds, rec := newTestStore(api)
	if err := s.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	api.errs[transport.EndpointSignIn] = transport.NewError(transport.KindServerError, 500, "")
	err := s.Login(context.Background(), "bob", "pw")
	if transport.KindOf(err) != transport.KindServerError {
		t.Fatalf("want server error, got %v", err)
	}

	st := s.Status(OpLogin)
	if st.State != opstate.Error || st.Kind != transport.KindServerError || st.Err == "" {
		t.Fatalf("status = %+v", st)
	}
	if s.User().Username != "alice" || creds.Token() != "tok" {
		t.Fatalf("prior session disturbed")
	}
	if last, _ := rec.Last(); last.Success || last.Title != "Server Error" {
		t.Fatalf("notification = %+v", last)
	}
	assertAuthConsistent(t, s, creds)
}

func TestLoginMalformedResponse(t *testing.T) {
	api := newFakeAPI()
	api.replies[transport.EndpointSignIn] = model.AuthResponse{Token: "tok"}
	s, creds, _ := newTestStore(api)

	err := s.Login(context.Background(), "alice", "secret")
	if transport.KindOf(err) != transport.KindOther {
		t.Fatalf("want other, got %v", err)
	}
	if creds.Token() != "" || s.IsAuthenticated() {
		t.Fatalf("half a session was stored")
	}
}

func TestRegisterSuccess(t *testing.T) {
	api := newFakeAPI()
	api.replies[transport.EndpointSignUp] = model.AuthResponse{
		User:  &model.User{ID: "u2", Username: "carol", Email: "carol@example.com"},
		Token: "tok2",
	}
	s, creds, _ := newTestStore(api)

	err := s.Register(context.Background(), model.RegisterRequest{
		Username: "carol", Email: "carol@example.com", Password: "pw", FirstName: "Carol",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !s.IsAuthenticated() || creds.Token() != "tok2" {
		t.Fatalf("register did not establish a session")
	}
	if s.Status(OpLogin).State != opstate.Idle {
		t.Fatalf("register must not touch login status")
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	api := newFakeAPI()
	api.replies[transport.EndpointSignIn] = model.AuthResponse{User: &model.User{ID: "u1", Username: "alice"}, Token: "tok"}
	api.errs[transport.EndpointLogout] = transport.NewError(transport.KindNetworkUnavailable, 0, "")
	s, creds, _ := newTestStore(api)
	_ = s.Login(context.Background(), "alice", "secret")

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("logout should always succeed, got %v", err)
	}
	if s.IsAuthenticated() || s.User() != nil || creds.Token() != "" {
		t.Fatalf("logout left state behind")
	}
	if s.Status(OpLogout).State != opstate.Idle {
		t.Fatalf("logout status = %v", s.Status(OpLogout).State)
	}
	assertAuthConsistent(t, s, creds)
}

func TestExpireIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.replies[transport.EndpointSignIn] = model.AuthResponse{User: &model.User{ID: "u1", Username: "alice"}, Token: "tok"}
	s, creds, rec := newTestStore(api)
	_ = s.Login(context.Background(), "alice", "secret")
	rec.Drain()

	// the transport has already removed the credential by the time the signal arrives
	_, _ = creds.ClearIf("tok")
	assertAuthConsistent(t, s, creds)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Expire(context.Background()) {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if transitions != 1 {
		t.Fatalf("want one transition, got %d", transitions)
	}
	if s.IsAuthenticated() || s.User() != nil {
		t.Fatalf("expire left user behind")
	}
	if n := len(rec.Outcomes()); n != 1 {
		t.Fatalf("want one expiry notification, got %d", n)
	}
	assertAuthConsistent(t, s, creds)
}

func TestClearError(t *testing.T) {
	api := newFakeAPI()
	api.errs[transport.EndpointSignIn] = errors.New("boom")
	s, _, _ := newTestStore(api)

	_ = s.Login(context.Background(), "alice", "x")
	if !s.Status(OpLogin).Failed() {
		t.Fatalf("expected error state")
	}
	if s.Status(OpLogin).Kind != transport.KindOther {
		t.Fatalf("unclassified errors surface as other")
	}

	s.ClearError(OpLogin)
	s.ClearError(OpLogin)
	if s.Status(OpLogin).State != opstate.Idle {
		t.Fatalf("ClearError did not reset")
	}

	_ = s.Login(context.Background(), "alice", "x")
	s.ClearErrors()
	if s.Snapshot().Status[OpLogin].State != opstate.Idle {
		t.Fatalf("ClearErrors did not reset")
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestRestore(t *testing.T) {
	t.Run("nothing persisted", func(t *testing.T) {
		s, _, _ := newTestStore(newFakeAPI())
		if err := s.Restore(context.Background()); !errors.Is(err, ErrNoSession) {
			t.Fatalf("want ErrNoSession, got %v", err)
		}
	})

	t.Run("expired token discarded offline", func(t *testing.T) {
		api := newFakeAPI()
		s, creds, _ := newTestStore(api)
		_ = creds.Save(credential.Record{Token: signedToken(t, time.Now().Add(-time.Minute)), User: &model.User{ID: "u1"}})

		if err := s.Restore(context.Background()); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("want ErrSessionExpired, got %v", err)
		}
		if api.callCount() != 0 {
			t.Fatalf("expired token must not reach the network")
		}
		if creds.Token() != "" {
			t.Fatalf("expired credential kept")
		}
	})

	t.Run("cached user adopted", func(t *testing.T) {
		api := newFakeAPI()
		s, creds, _ := newTestStore(api)
		_ = creds.Save(credential.Record{Token: signedToken(t, time.Now().Add(time.Hour)), User: &model.User{ID: "u1", Username: "alice"}})

		if err := s.Restore(context.Background()); err != nil {
			t.Fatalf("restore: %v", err)
		}
		if !s.IsAuthenticated() || s.UserID() != "u1" {
			t.Fatalf("session not restored")
		}
		if api.callCount() != 0 {
			t.Fatalf("cached user should not need a network call")
		}
	})

	t.Run("user fetched from server", func(t *testing.T) {
		api := newFakeAPI()
		api.replies[transport.EndpointMe] = model.User{ID: "u9", Username: "dave"}
		s, creds, _ := newTestStore(api)
		_ = creds.Save(credential.Record{Token: "opaque"})

		if err := s.Restore(context.Background()); err != nil {
			t.Fatalf("restore: %v", err)
		}
		if s.UserID() != "u9" {
			t.Fatalf("user id = %q", s.UserID())
		}
		if u := creds.Load().User; u == nil || u.ID != "u9" {
			t.Fatalf("fetched user not cached: %+v", u)
		}
	})

	t.Run("server rejects", func(t *testing.T) {
		api := newFakeAPI()
		api.errs[transport.EndpointMe] = transport.NewError(transport.KindUnauthorized, http.StatusUnauthorized, "")
		s, _, _ := newTestStore(api)
		_ = s.creds.Save(credential.Record{Token: "opaque"})

		err := s.Restore(context.Background())
		if transport.KindOf(err) != transport.KindUnauthorized {
			t.Fatalf("want unauthorized, got %v", err)
		}
		if s.IsAuthenticated() {
			t.Fatalf("must not be authenticated")
		}
		if !s.Status(OpRestore).Failed() {
			t.Fatalf("restore status should be error")
		}
	})
}

func TestExpireKeepsNewerLogin(t *testing.T) {
	api := newFakeAPI()
	api.replies[transport.EndpointSignIn] = model.AuthResponse{User: &model.User{ID: "u1", Username: "alice"}, Token: "tok2"}
	s, creds, _ := newTestStore(api)
	_ = s.Login(context.Background(), "alice", "secret")

	// a signal for an older token arrives after the fresh login
	if s.Expire(context.Background()) {
		t.Fatalf("expire must not end a session whose credential is still present")
	}
	if !s.IsAuthenticated() || creds.Token() != "tok2" {
		t.Fatalf("newer login was discarded")
	}
}
