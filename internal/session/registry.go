// Package session tracks which students are currently logged in.
package session

import (
	"sort"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const (
	DefaultTTL      = 12 * time.Hour
	cleanupInterval = 10 * time.Minute
)

// Session is an active login.
type Session struct {
	StudentID int64     `json:"student_id"`
	Name      string    `json:"name"`
	LoginAt   time.Time `json:"login_at"`
}

// Registry holds active sessions with expiry. Markers older than the TTL
// disappear on their own, so a forgotten logout does not pin a student as
// present forever. The persisted attendance log stays authoritative.
type Registry struct {
	items *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Registry{
		items: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open marks the student as logged in, replacing any previous marker. The
// marker lives a full TTL from now; loginAt is only reported back.
func (r *Registry) Open(studentID int64, name string, loginAt time.Time) {
	r.items.Set(key(studentID), Session{StudentID: studentID, Name: name, LoginAt: loginAt}, r.ttl)
}

// Close removes the marker. Closing an absent session is a no-op.
func (r *Registry) Close(studentID int64) {
	r.items.Delete(key(studentID))
}

func (r *Registry) Get(studentID int64) (Session, bool) {
	v, ok := r.items.Get(key(studentID))
	if !ok {
		return Session{}, false
	}
	return v.(Session), true
}

// Active lists live sessions ordered by login time.
func (r *Registry) Active() []Session {
	items := r.items.Items()
	out := make([]Session, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(Session))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LoginAt.Equal(out[j].LoginAt) {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].LoginAt.Before(out[j].LoginAt)
	})
	return out
}

func (r *Registry) Count() int {
	return len(r.items.Items())
}

// Rebuild replaces the registry content with the given open events. Events
// whose login is already older than the TTL, or whose stamp cannot be parsed,
// are left out. A student with several open events keeps the latest one.
func (r *Registry) Rebuild(events []domain.AttendanceEvent, loc *time.Location) int {
	r.items.Flush()

	for _, ev := range events {
		if !ev.IsOpen() {
			continue
		}
		at, err := ev.LoginAt(loc)
		if err != nil {
			continue
		}
		if prev, ok := r.Get(ev.StudentID); ok && prev.LoginAt.After(at) {
			continue
		}
		r.restore(Session{StudentID: ev.StudentID, Name: ev.Name, LoginAt: at})
	}
	return r.Count()
}

// restore keeps a rebuilt marker only for what is left of its TTL.
func (r *Registry) restore(s Session) {
	remaining := r.ttl - r.now().Sub(s.LoginAt)
	if remaining <= 0 {
		r.items.Delete(key(s.StudentID))
		return
	}
	if remaining > r.ttl {
		remaining = r.ttl
	}
	r.items.Set(key(s.StudentID), s, remaining)
}

func key(studentID int64) string {
	return strconv.FormatInt(studentID, 10)
}
