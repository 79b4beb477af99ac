package mockserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

type fault struct {
	status  int
	message string
}

// faults holds one-shot failures keyed by "METHOD /path".
type faults struct {
	mu      sync.Mutex
	pending map[string][]fault
}

func newFaults() *faults {
	return &faults{pending: make(map[string][]fault)}
}

func faultKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func (f *faults) add(method, path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := faultKey(method, path)
	f.pending[key] = append(f.pending[key], fault{status: status, message: message})
}

func (f *faults) take(method, path string) (fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := faultKey(method, path)
	queue := f.pending[key]
	if len(queue) == 0 {
		return fault{}, false
	}
	if len(queue) == 1 {
		delete(f.pending, key)
	} else {
		f.pending[key] = queue[1:]
	}
	return queue[0], true
}

func (f *faults) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, APIPrefix)
		if ft, ok := f.take(r.Method, path); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(ft.status)
			if ft.message != "" {
				json.NewEncoder(w).Encode(map[string]string{"message": ft.message})
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}
