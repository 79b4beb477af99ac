package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/capitalize-ai/conversational-client/internal/config"
	"github.com/capitalize-ai/conversational-client/internal/conversation"
	"github.com/capitalize-ai/conversational-client/internal/credential"
	"github.com/capitalize-ai/conversational-client/internal/mockserver"
	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/notify"
	"github.com/capitalize-ai/conversational-client/internal/opstate"
	"github.com/capitalize-ai/conversational-client/internal/transport"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

func newTestApp(t *testing.T) (*App, *mockserver.Server, *notify.Recorder) {
	t.Helper()
	srv := mockserver.New(mockserver.Config{JWTSecret: "test-secret", TokenTTL: time.Hour}, logger.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		APIBaseURL:     ts.URL + mockserver.APIPrefix,
		APITimeout:     5 * time.Second,
		CredentialFile: t.TempDir() + "/credentials.json",
	}
	rec := notify.NewRecorder()
	a, err := New(context.Background(), cfg, logger.NewNop(), WithOutput(&bytes.Buffer{}), WithNotifier(rec))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, srv, rec
}

func register(t *testing.T, a *App, username string) {
	t.Helper()
	err := a.Session.Register(context.Background(), model.RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "secret1",
		FirstName: "Test",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestChatFlow(t *testing.T) {
	ctx := context.Background()
	a, srv, rec := newTestApp(t)
	register(t, a, "alice")

	if _, err := a.Conversations.Create(ctx, "first"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.Conversations.List(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	cur := a.Conversations.Current()

	res, err := a.Conversations.Send(ctx, cur.ConversationID, "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Reply != "You said: hi" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if n := len(a.Conversations.Current().Messages); n != 1 {
		t.Fatalf("current has %d messages, want the user turn only", n)
	}

	// a 500 leaves history unchanged and marks only send as failed
	srv.FailNext(http.MethodPost, transport.EndpointSendMessage, http.StatusInternalServerError, "")
	if _, err := a.Conversations.Send(ctx, cur.ConversationID, "again"); transport.KindOf(err) != transport.KindServerError {
		t.Fatalf("want server error, got %v", err)
	}
	if n := len(a.Conversations.Current().Messages); n != 1 {
		t.Fatalf("failed send changed history: %d", n)
	}
	if st := a.Conversations.Status(conversation.OpSend); st.State != opstate.Error || st.Kind != transport.KindServerError {
		t.Fatalf("send status = %+v", st)
	}
	if last, _ := rec.Last(); last.Success || last.Title != "Server Error" {
		t.Fatalf("notification = %+v", last)
	}

	// the server kept both turns; a fetch brings the reply into history
	if err := a.Conversations.Fetch(ctx, cur.ConversationID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n := len(a.Conversations.Current().Messages); n != 2 {
		t.Fatalf("fetched history has %d messages", n)
	}
}

func TestConcurrentUnauthorizedExpiresOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, srv, _ := newTestApp(t)
	register(t, a, "bob")

	var (
		mu    sync.Mutex
		fired int
	)
	done := make(chan struct{}, 8)
	a.OnExpired(func(transport.SessionExpired) {
		mu.Lock()
		fired++
		mu.Unlock()
		done <- struct{}{}
	})
	go a.Run(ctx)

	const calls = 6
	for i := 0; i < calls; i++ {
		srv.FailNext(http.MethodGet, transport.EndpointConversations, http.StatusUnauthorized, "token expired")
	}

	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Conversations.List(ctx)
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expiry callback never fired")
	}
	// give a duplicate signal time to surface
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Fatalf("callback fired %d times, want 1", fired)
	}
	if a.Session.IsAuthenticated() || a.Credentials.Token() != "" || a.Session.User() != nil {
		t.Fatalf("session survived the 401")
	}
}

func TestRestoreAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)
	register(t, a, "carol")

	// a second process over the same credential file
	fs, err := credential.NewFileStore(a.Config.CredentialFile)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	b, err := New(ctx, a.Config, logger.NewNop(), WithOutput(&bytes.Buffer{}), WithCredentials(fs))
	if err != nil {
		t.Fatalf("second app: %v", err)
	}
	if err := b.Session.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !b.Session.IsAuthenticated() || b.Session.User().Username != "carol" {
		t.Fatalf("session not restored")
	}
}

func TestLogoutThenProtectedCallIsUnauthenticated(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)
	register(t, a, "dave")

	if err := a.Session.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if a.Session.IsAuthenticated() {
		t.Fatalf("still authenticated")
	}
	err := a.Conversations.List(ctx)
	if transport.KindOf(err) != transport.KindUnauthorized {
		t.Fatalf("want unauthorized, got %v", err)
	}
	select {
	case ev := <-a.Transport.Expired():
		t.Fatalf("no credential was attached, got signal %+v", ev)
	default:
	}
}
