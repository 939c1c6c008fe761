package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// Registry tracks which identity each live connection announced.
type Registry struct {
	logger *slog.Logger
	fanout *Fanout
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]entity.Session
}

func NewRegistry(logger *slog.Logger, fanout *Fanout, now func() time.Time) *Registry {
	return &Registry{
		logger:   logger.With("component", "registry"),
		fanout:   fanout,
		now:      now,
		sessions: make(map[string]entity.Session),
	}
}

// Admit - inserts or overwrites the session of connID and announces the roster.
func (that *Registry) Admit(connID string, identity entity.Identity) entity.Session {
	session := entity.Session{
		ConnectionID: connID,
		Identity:     identity,
		AdmittedAt:   that.now(),
	}

	// rosters are enqueued under the lock so the last one delivered is the newest
	that.mu.Lock()
	that.sessions[connID] = session
	that.fanout.Roster(that.snapshotLocked())
	that.mu.Unlock()

	that.logger.Debug("session admitted", "connection", connID, "handle", identity.Handle)

	return session
}

// Evict - removes the session of connID. Announcements fire only if a session existed.
func (that *Registry) Evict(connID string) (entity.Session, bool) {
	that.mu.Lock()
	session, ok := that.sessions[connID]
	if !ok {
		that.mu.Unlock()
		return entity.Session{}, false
	}

	delete(that.sessions, connID)
	that.fanout.Roster(that.snapshotLocked())
	that.fanout.PeerLeft(session.Identity.Handle)
	that.mu.Unlock()

	that.logger.Debug("session evicted", "connection", connID, "handle", session.Identity.Handle)

	return session, true
}

func (that *Registry) Get(connID string) (entity.Session, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	session, ok := that.sessions[connID]

	return session, ok
}

// Snapshot lists online users sorted by handle.
func (that *Registry) Snapshot() []entity.RosterEntry {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.snapshotLocked()
}

// AnnounceRoster broadcasts the current snapshot.
func (that *Registry) AnnounceRoster() {
	that.mu.RLock()
	defer that.mu.RUnlock()

	that.fanout.Roster(that.snapshotLocked())
}

func (that *Registry) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}

func (that *Registry) snapshotLocked() []entity.RosterEntry {
	roster := make([]entity.RosterEntry, 0, len(that.sessions))
	for _, session := range that.sessions {
		roster = append(roster, entity.RosterEntry{Handle: session.Identity.Handle, ID: session.Identity.ID})
	}

	sort.Slice(roster, func(i, j int) bool {
		if roster[i].Handle == roster[j].Handle {
			return roster[i].ID < roster[j].ID
		}
		return roster[i].Handle < roster[j].Handle
	})

	return roster
}
