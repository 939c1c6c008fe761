package websocket

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	ActionAnnounceIdentity = "announce-identity"
	ActionRequestMatch     = "request-match"
	ActionAcceptMatch      = "accept-match"
	ActionSubmitMove       = "submit-move"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AnnounceIdentityPayload carries the handle only. A client supplied id is
// ignored since ids are assigned when an identity is created.
type AnnounceIdentityPayload struct {
	Handle string `json:"handle"`
}

type AcceptMatchPayload struct {
	RoomID string `json:"roomId"`
}

type SubmitMovePayload struct {
	RoomID   string `json:"roomId"`
	Position *int   `json:"position"`
}

func decodePayload(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", msg.Action, err)
	}

	return nil
}

func (that *Server) handleAnnounceIdentity(ctx context.Context, c *client, msg *Message) error {
	var payload AnnounceIdentityPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	if _, err := that.uGame.AnnounceIdentity(ctx, c.id, payload.Handle); err != nil {
		return err
	}

	return nil
}

func (that *Server) handleRequestMatch(_ context.Context, c *client, _ *Message) error {
	if _, err := that.uGame.RequestMatch(c.id); err != nil {
		return err
	}

	return nil
}

func (that *Server) handleAcceptMatch(_ context.Context, c *client, msg *Message) error {
	var payload AcceptMatchPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	return that.uGame.AcceptMatch(c.id, payload.RoomID)
}

func (that *Server) handleSubmitMove(ctx context.Context, c *client, msg *Message) error {
	var payload SubmitMovePayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	position := -1
	if payload.Position != nil {
		position = *payload.Position
	}

	return that.uGame.SubmitMove(ctx, c.id, payload.RoomID, position)
}
