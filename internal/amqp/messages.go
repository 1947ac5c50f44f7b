package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried by ExpenseChangedMessage.
const (
	ChangeCreate = "create"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// ExpenseChangedMessage notifies the rollup worker that an expense was
// written. It carries only the keys the worker needs to rebuild the
// affected day, not the expense itself.
type ExpenseChangedMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Date      string    `json:"date"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseChangedMessage creates a change message for the given expense keys
func NewExpenseChangedMessage(id, userID int64, date, op string) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		ID:        id,
		UserID:    userID,
		Date:      date,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseChangedMessageFromJSON creates a message from JSON bytes
func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
