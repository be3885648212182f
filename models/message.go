package models

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrBadParticipants = errors.New("a message needs exactly two distinct participants")
)

// Message is append-only. Seen is the only field ever changed after creation.
type Message struct {
	ID              string    `json:"id"`
	Participants    []string  `json:"participants"`
	ConversationKey string    `json:"conversationKey"`
	Message         string    `json:"message"`
	SenderID        string    `json:"senderId"`
	Seen            bool      `json:"seen"`
	SentAt          Timestamp `json:"sentAt"`
}

// ConversationKey identifies the conversation between two users regardless of
// who sends first. The smaller id is length-prefixed so no two pairs share a key,
// whatever characters the ids contain.
func ConversationKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strconv.Itoa(len(ids[0])) + ":" + ids[0] + "_" + ids[1]
}

// Counterpart returns the participant that is not self.
func (m *Message) Counterpart(self string) string {
	for _, p := range m.Participants {
		if p != self {
			return p
		}
	}
	return ""
}

// NewMessage builds the document a sender writes. Text must contain more than whitespace.
func NewMessage(sender, recipient, text string, at Timestamp) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if sender == "" || recipient == "" || sender == recipient {
		return nil, ErrBadParticipants
	}
	return &Message{
		Participants:    []string{sender, recipient},
		ConversationKey: ConversationKey(sender, recipient),
		Message:         text,
		SenderID:        sender,
		Seen:            false,
		SentAt:          at,
	}, nil
}
