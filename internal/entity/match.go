package entity

import "time"

type MatchParticipant struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Mark   Mark   `json:"mark"`
}

// MatchRecord is appended once per finished room and never mutated.
type MatchRecord struct {
	RoomID       string             `json:"roomId"`
	Participants []MatchParticipant `json:"participants"`
	Outcome      string             `json:"outcome"`
	WinnerID     string             `json:"winnerId,omitempty"`
	Reason       string             `json:"reason"`
	Board        Board              `json:"board"`
	FinishedAt   time.Time          `json:"finishedAt"`
}

func (that *MatchRecord) IsDraw() bool {
	return that.Outcome == DrawOutcome && that.WinnerID == ""
}
