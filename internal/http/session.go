package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"pfm/internal/cache"
	"pfm/internal/commands"
	"pfm/internal/core"
	"pfm/internal/log"
	"pfm/internal/metrics"
	"pfm/internal/viewmodel"
)

// SessionCookie names the cookie holding the browser session id.
const SessionCookie = "pfm_session"

// session is one browser's screen: its view model, its command runner and
// the add form as last submitted.
type session struct {
	id   string
	agg  *viewmodel.Aggregator
	cmds *commands.Commands

	mu    sync.Mutex
	form  commands.Form
	flash *Flash
}

// formCopy returns the current form. Commands work on the copy so that a
// slow submission does not block rendering.
func (s *session) formCopy() commands.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

func (s *session) setForm(f commands.Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = f
}

func (s *session) setFlash(t NotificationType, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = &Flash{Type: t, Message: msg}
}

// takeFlash returns the pending flash and clears it.
func (s *session) takeFlash() *Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flash
	s.flash = nil
	return f
}

// view returns the session snapshot, reloading first when nothing was
// loaded yet, a mutation made it stale or the last reload failed.
func (s *session) view(ctx context.Context) viewmodel.Snapshot {
	snap := s.agg.Store().Snapshot()
	if snap.Token == 0 || snap.Stale || snap.Error != "" {
		snap = s.agg.Reload(ctx)
	}
	return snap
}

// refresh reloads unconditionally, picking up changes made outside this
// instance.
func (s *session) refresh(ctx context.Context) viewmodel.Snapshot {
	return s.agg.Reload(ctx)
}

// sessions keeps one session per browser in an LRU with sliding expiry.
type sessions struct {
	cache *cache.LRUCache[*session]
	build func(id string) *session
}

func newSessions(c *cache.LRUCache[*session], build func(id string) *session) *sessions {
	c.OnEvict(func(string, *session) { metrics.Sessions.Dec() })
	return &sessions{cache: c, build: build}
}

// get returns the session of r, creating it and setting the cookie when
// the request carries no valid id.
func (ss *sessions) get(w http.ResponseWriter, r *http.Request) *session {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed.String()
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}

	s, created := ss.cache.GetOrCreate(id, func() *session { return ss.build(id) })
	if created {
		metrics.Sessions.Inc()
		log.FromContext(r.Context()).DebugContext(r.Context(), "Session created", log.FieldSessionID, id)
	}
	return s
}

// markStale flags every live session so its next render reloads.
func (ss *sessions) markStale() int {
	n := 0
	ss.cache.Each(func(_ string, s *session) {
		s.agg.Store().Dispatch(viewmodel.MutationSucceeded{})
		n++
	})
	return n
}

// broadcaster is the in-process side of mutation publishing: it marks all
// sessions of this instance stale.
func (ss *sessions) broadcaster() commands.Publisher {
	return commands.PublisherFunc(func(_ context.Context, ev core.MutationEvent) error {
		ss.markStale()
		metrics.MutationEvents.WithLabelValues("local", ev.Action).Inc()
		return nil
	})
}
