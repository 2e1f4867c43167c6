package server

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/patrickmn/go-cache"
)

// replay is a stored response to a request carrying an Idempotency-Key.
type replay struct {
	status int
	header http.Header
	body   []byte
}

// keyLocks serializes requests that share an idempotency key so a retry
// racing the original waits for its response instead of creating twice.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// recorder captures what a handler writes while still writing it through.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// idempotent replays the first response to a key for IdempotencyTTL.
// Keys are scoped to the calling user. Server errors are not stored so the
// client may retry them.
func (s *Server) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(constants.IdempotencyHeader)
		if key == "" {
			next(w, r)
			return
		}
		key = userFrom(r).ID.String() + "|" + r.URL.Path + "|" + key

		unlock := s.keys.lock(key)
		defer unlock()

		if cached, ok := s.replays.Get(key); ok {
			rep := cached.(*replay)
			for name, values := range rep.header {
				w.Header()[name] = values
			}
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rep.status)
			_, _ = w.Write(rep.body)
			s.log.Debug().Str("path", r.URL.Path).Msg("replayed idempotent request")
			return
		}

		rec := &recorder{ResponseWriter: w}
		next(rec, r)
		if rec.status == 0 || rec.status >= http.StatusInternalServerError {
			return
		}
		s.replays.Set(key, &replay{
			status: rec.status,
			header: w.Header().Clone(),
			body:   rec.body.Bytes(),
		}, cache.DefaultExpiration)
	}
}
