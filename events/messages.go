package events

import (
	"encoding/json"
	"time"

	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/profile"
)

// Routing keys for published ledger events.
const (
	KeySeedsEarned    = "seeds.earned"
	KeySeedsSpent     = "seeds.spent"
	KeySeedsConverted = "seeds.converted"
)

// PostingMessage is the JSON body of a committed ledger posting.
type PostingMessage struct {
	EntryID          string    `json:"entry_id"`
	MemberRef        string    `json:"member_ref"`
	Sequence         int64     `json:"sequence"`
	Direction        string    `json:"direction"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	Amount           int64     `json:"amount"`
	BalanceAfter     int64     `json:"balance_after"`
	SecondaryBalance int64     `json:"secondary_balance"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NewPostingMessage builds the message for e as committed on p.
func NewPostingMessage(e *entry.Entry, p *profile.Profile) *PostingMessage {
	msg := &PostingMessage{
		EntryID:      e.ID.String(),
		MemberRef:    e.MemberRef,
		Sequence:     e.Sequence,
		Direction:    string(e.Direction),
		Category:     string(e.Category),
		Description:  e.Description,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		OccurredAt:   e.OccurredAt,
	}
	if p != nil {
		msg.SecondaryBalance = p.SecondaryBalance
	}
	return msg
}

// ToJSON converts the message to JSON bytes.
func (m *PostingMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PostingMessageFromJSON decodes a message body.
func PostingMessageFromJSON(data []byte) (*PostingMessage, error) {
	var msg PostingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
