package transport

import (
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/protocol"
)

// cookieJar forwards the server's session cookies on later requests. The
// client talks to one origin, so cookies are keyed by name only.
type cookieJar struct {
	mu      sync.Mutex
	cookies map[string]string
}

func newCookieJar() *cookieJar {
	return &cookieJar{cookies: make(map[string]string)}
}

// store records every Set-Cookie on resp. Expired or emptied cookies are dropped.
func (j *cookieJar) store(h *protocol.ResponseHeader) {
	j.mu.Lock()
	defer j.mu.Unlock()

	h.VisitAllCookie(func(_, value []byte) {
		c := protocol.AcquireCookie()
		defer protocol.ReleaseCookie(c)
		if err := c.ParseBytes(value); err != nil {
			return
		}

		name := string(c.Key())
		expires := c.Expire()
		gone := len(c.Value()) == 0 ||
			c.MaxAge() < 0 ||
			(!expires.IsZero() && expires != protocol.CookieExpireUnlimited && expires.Before(time.Now()))
		if gone {
			delete(j.cookies, name)
			return
		}
		j.cookies[name] = string(c.Value())
	})
}

func (j *cookieJar) apply(req *protocol.Request) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for name, value := range j.cookies {
		req.SetCookie(name, value)
	}
}

// headerCarrier adapts a hertz request header for trace context propagation.
type headerCarrier struct {
	h *protocol.RequestHeader
}

func (c headerCarrier) Get(key string) string {
	return string(c.h.Peek(key))
}

func (c headerCarrier) Set(key, value string) {
	c.h.Set(key, value)
}

func (c headerCarrier) Keys() []string {
	var keys []string
	c.h.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}
