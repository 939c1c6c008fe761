package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
)

type frame struct {
	To      string
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// recordingSender stands in for the websocket hub. Only connections passed to
// connect are live; everything sent elsewhere is dropped.
type recordingSender struct {
	mu     sync.Mutex
	live   map[string]bool
	frames []frame
}

func newRecordingSender() *recordingSender {
	return &recordingSender{live: make(map[string]bool)}
}

func (that *recordingSender) connect(ids ...string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, id := range ids {
		that.live[id] = true
	}
}

func (that *recordingSender) disconnect(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.live, id)
}

func (that *recordingSender) record(connID string, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		panic(err)
	}
	f.To = connID
	that.frames = append(that.frames, f)
}

func (that *recordingSender) sortedLive() []string {
	ids := make([]string, 0, len(that.live))
	for id := range that.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (that *recordingSender) Send(connID string, data []byte) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.live[connID] {
		that.record(connID, data)
	}
}

func (that *recordingSender) SendAll(data []byte) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, id := range that.sortedLive() {
		that.record(id, data)
	}
}

func (that *recordingSender) SendAllExcept(connID string, data []byte) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, id := range that.sortedLive() {
		if id != connID {
			that.record(id, data)
		}
	}
}

// received returns the frames delivered to connID with the given action.
func (that *recordingSender) received(connID, action string) []frame {
	that.mu.Lock()
	defer that.mu.Unlock()

	var out []frame
	for _, f := range that.frames {
		if f.To == connID && f.Action == action {
			out = append(out, f)
		}
	}
	return out
}

func (that *recordingSender) actions(connID string) []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	var out []string
	for _, f := range that.frames {
		if f.To == connID {
			out = append(out, f.Action)
		}
	}
	return out
}

func (that *recordingSender) reset() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.frames = nil
}

func decode[T any](t *testing.T, f frame) T {
	t.Helper()

	var payload T
	require.NoError(t, json.Unmarshal(f.Payload, &payload))

	return payload
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)}
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

// failingStore is a store whose behaviour each test scripts.
type failingStore struct {
	mock.Mock
}

func (that *failingStore) IncrementOutcome(ctx context.Context, id string, kind entity.OutcomeKind) error {
	args := that.Called(ctx, id, kind)
	return args.Error(0)
}

func (that *failingStore) Append(ctx context.Context, record *entity.MatchRecord) error {
	args := that.Called(ctx, record)
	return args.Error(0)
}

type fixture struct {
	t          *testing.T
	ctx        context.Context
	logger     *slog.Logger
	clock      *fakeClock
	sender     *recordingSender
	fanout     *Fanout
	store      *repository.MemoryStore
	registry   *Registry
	directory  *Directory
	matchmaker *Matchmaker
	gameplay   *Gameplay
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := newFakeClock()
	sender := newRecordingSender()
	fanout := NewFanout(logger, sender)
	store := repository.NewMemoryStore()
	registry := NewRegistry(logger, fanout, clock.Now)
	directory := NewDirectory()
	settlement := NewSettlement(logger, store, store, time.Second, clock.Now)

	return &fixture{
		t:          t,
		ctx:        context.Background(),
		logger:     logger,
		clock:      clock,
		sender:     sender,
		fanout:     fanout,
		store:      store,
		registry:   registry,
		directory:  directory,
		matchmaker: NewMatchmaker(logger, registry, directory, fanout, clock.Now),
		gameplay:   NewGameplay(logger, directory, fanout, settlement),
	}
}

// join provisions an identity, opens its connection and admits it.
func (that *fixture) join(connID, handle string) entity.Identity {
	that.t.Helper()

	identity := entity.Identity{ID: uuid.NewString(), Handle: handle}
	require.NoError(that.t, that.store.Create(that.ctx, &identity))

	that.sender.connect(connID)
	that.registry.Admit(connID, identity)

	return identity
}

// startMatch pairs first and second and returns the room id.
func (that *fixture) startMatch(first, second string) string {
	that.t.Helper()

	roomID, err := that.matchmaker.OpenRoom(first)
	require.NoError(that.t, err)
	require.NoError(that.t, that.matchmaker.CompleteRoom(roomID, second))

	return roomID
}

func (that *fixture) play(roomID string, moves ...move) {
	that.t.Helper()

	for _, m := range moves {
		require.NoError(that.t, that.gameplay.ApplyMove(that.ctx, roomID, m.conn, m.cell))
	}
}

func (that *fixture) identity(id string) *entity.Identity {
	that.t.Helper()

	identity, err := that.store.GetByID(that.ctx, id)
	require.NoError(that.t, err)

	return identity
}

type move struct {
	conn string
	cell int
}
