package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Change kinds carried by DataChangedMessage.
const (
	KindTransactionCreated = "transaction_created"
	KindCategoryCreated    = "category_created"
	KindBudgetCreated      = "budget_created"
	KindBudgetUpdated      = "budget_updated"
	KindBudgetDeleted      = "budget_deleted"
)

var validKinds = map[string]bool{
	KindTransactionCreated: true,
	KindCategoryCreated:    true,
	KindBudgetCreated:      true,
	KindBudgetUpdated:      true,
	KindBudgetDeleted:      true,
}

// DataChangedMessage tells every web instance that a user's data changed
// through the API, so cached page snapshots for that user are out of date.
// Month is empty when the change is not tied to one month.
type DataChangedMessage struct {
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Month     string    `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDataChangedMessage(userID int64, kind, month string) *DataChangedMessage {
	return &DataChangedMessage{
		UserID:    userID,
		Kind:      kind,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// Validate rejects messages no consumer could act on.
func (m *DataChangedMessage) Validate() error {
	if m.UserID <= 0 {
		return fmt.Errorf("invalid user id %d", m.UserID)
	}
	if !validKinds[m.Kind] {
		return fmt.Errorf("unknown change kind %q", m.Kind)
	}
	return nil
}

func (m *DataChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DataChangedMessageFromJSON decodes and validates a message body.
func DataChangedMessageFromJSON(data []byte) (*DataChangedMessage, error) {
	var msg DataChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, errors.Join(errInvalidMessage, err)
	}
	return &msg, nil
}

var errInvalidMessage = errors.New("invalid data changed message")
