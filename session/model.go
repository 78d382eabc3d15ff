package session

import "time"

// Principal is the authenticated identity attached to a session. It is
// created at login and never mutated afterwards.
type Principal struct {
	ID        int64
	LoginName string
}

// Session is the server-side state behind a session id.
//
// Principal is nil for a session that was opened but never authenticated.
type Session struct {
	ID            string
	Principal     *Principal
	Attributes    map[string]string
	CreatedAt     time.Time
	LastAccess    time.Time
	TTLSeconds    int
	SchemaVersion uint8
}

// Authenticated reports whether a principal is bound to s.
func (s *Session) Authenticated() bool {
	return s != nil && s.Principal != nil
}

// TTL returns TTLSeconds as a duration.
func (s *Session) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}
