package service

import (
	"encoding/json"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	EventRosterUpdate     = "roster-update"
	EventIdentityAck      = "identity-ack"
	EventIdentityRejected = "identity-rejected"
	EventAwaitingOpponent = "awaiting-opponent"
	EventSearchingNotice  = "searching-notice"
	EventPeerLeft         = "peer-left"
	EventMatchStart       = "match-start"
	EventMoveApplied      = "move-applied"
	EventMatchEnd         = "match-end"
	EventMoveRejected     = "move-rejected"
	EventMatchExpired     = "match-expired"
)

// sender delivers encoded frames to live connections. Frames for unknown
// connections are dropped without error.
type sender interface {
	Send(connID string, data []byte)
	SendAll(data []byte)
	SendAllExcept(connID string, data []byte)
}

// Envelope is the wire shape of every outbound event.
type Envelope struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

type IdentityAckPayload struct {
	Handle string `json:"handle"`
}

type ReasonPayload struct {
	Reason string `json:"reason"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type SearchingNoticePayload struct {
	Handle string `json:"handle"`
	RoomID string `json:"roomId"`
}

type PeerLeftPayload struct {
	Handle string `json:"handle"`
}

type MatchStartPayload struct {
	RoomID       string               `json:"roomId"`
	Participants []entity.Participant `json:"participants"`
	Board        entity.Board         `json:"board"`
	Turn         entity.Mark          `json:"turn"`
}

type MoveAppliedPayload struct {
	Board entity.Board `json:"board"`
	Turn  entity.Mark  `json:"turn"`
}

type MatchEndPayload struct {
	Outcome string       `json:"outcome"`
	Board   entity.Board `json:"board"`
	Reason  string       `json:"reason"`
}

// Fanout encodes events and hands them to the sender for a target set:
// one connection, the seats of a room, everyone, or everyone but one.
type Fanout struct {
	logger *slog.Logger
	sender sender
}

func NewFanout(logger *slog.Logger, sender sender) *Fanout {
	return &Fanout{
		logger: logger.With("component", "fanout"),
		sender: sender,
	}
}

func (that *Fanout) encode(action string, payload any) ([]byte, bool) {
	data, err := json.Marshal(Envelope{Action: action, Payload: payload})
	if err != nil {
		that.logger.Error("failed to marshal event", "action", action, "error", err)
		return nil, false
	}

	return data, true
}

func (that *Fanout) ToOne(connID, action string, payload any) {
	if data, ok := that.encode(action, payload); ok {
		that.sender.Send(connID, data)
	}
}

func (that *Fanout) ToRoom(room *entity.Room, action string, payload any) {
	data, ok := that.encode(action, payload)
	if !ok {
		return
	}

	for _, connID := range room.Connections() {
		that.sender.Send(connID, data)
	}
}

func (that *Fanout) ToAll(action string, payload any) {
	if data, ok := that.encode(action, payload); ok {
		that.sender.SendAll(data)
	}
}

func (that *Fanout) ToAllExcept(connID, action string, payload any) {
	if data, ok := that.encode(action, payload); ok {
		that.sender.SendAllExcept(connID, data)
	}
}

func (that *Fanout) Roster(entries []entity.RosterEntry) {
	if entries == nil {
		entries = []entity.RosterEntry{}
	}
	that.ToAll(EventRosterUpdate, entries)
}

func (that *Fanout) IdentityAck(connID, handle string) {
	that.ToOne(connID, EventIdentityAck, IdentityAckPayload{Handle: handle})
}

func (that *Fanout) IdentityRejected(connID, reason string) {
	that.ToOne(connID, EventIdentityRejected, ReasonPayload{Reason: reason})
}

func (that *Fanout) AwaitingOpponent(connID, roomID string) {
	that.ToOne(connID, EventAwaitingOpponent, RoomPayload{RoomID: roomID})
}

func (that *Fanout) SearchingNotice(exceptConnID, handle, roomID string) {
	that.ToAllExcept(exceptConnID, EventSearchingNotice, SearchingNoticePayload{Handle: handle, RoomID: roomID})
}

func (that *Fanout) PeerLeft(handle string) {
	that.ToAll(EventPeerLeft, PeerLeftPayload{Handle: handle})
}

func (that *Fanout) MatchStart(room *entity.Room) {
	that.ToRoom(room, EventMatchStart, MatchStartPayload{
		RoomID:       room.ID,
		Participants: room.Participants,
		Board:        room.Board,
		Turn:         room.Turn,
	})
}

func (that *Fanout) MoveApplied(room *entity.Room) {
	that.ToRoom(room, EventMoveApplied, MoveAppliedPayload{Board: room.Board, Turn: room.Turn})
}

func (that *Fanout) MatchEnd(room *entity.Room) {
	that.ToRoom(room, EventMatchEnd, MatchEndPayload{
		Outcome: room.Outcome(),
		Board:   room.Board,
		Reason:  room.FinishReason,
	})
}

func (that *Fanout) MoveRejected(connID, reason string) {
	that.ToOne(connID, EventMoveRejected, ReasonPayload{Reason: reason})
}

func (that *Fanout) MatchExpired(connID, roomID string) {
	that.ToOne(connID, EventMatchExpired, RoomPayload{RoomID: roomID})
}
