package dashboard

import (
	"encoding/json"
	"time"

	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeLists carries the full list snapshot
	MessageTypeLists MessageType = "lists"

	// MessageTypeAck confirms an applied intent
	MessageTypeAck MessageType = "ack"

	// MessageTypeError reports a rejected or failed intent
	MessageTypeError MessageType = "error"

	// MessageTypeSyncReport carries the outcome of a reconcile run
	MessageTypeSyncReport MessageType = "sync_report"

	// MessageTypeHello greets a client before any snapshot is known
	MessageTypeHello MessageType = "hello"
)

// Intent operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	OpSync   = "sync"
)

// Message represents a dashboard message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Intent is a request sent by a client.
type Intent struct {
	Op        string `json:"op"`
	RequestID string `json:"request_id,omitempty"`
	ID        int    `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Category  string `json:"category,omitempty"`

	// Items replaces the list items on update. Absent keeps the stored items.
	Items []model.Item `json:"items,omitempty"`
}

// ListData is one list in a lists message.
type ListData struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	Category string       `json:"category"`
	Items    []model.Item `json:"items,omitempty"`
}

// AckData confirms an intent.
type AckData struct {
	Op        string `json:"op"`
	RequestID string `json:"request_id,omitempty"`
	ID        int    `json:"id,omitempty"`
}

// ErrorData describes a failed intent.
type ErrorData struct {
	Op        string `json:"op,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

// SyncReportData summarizes a reconcile run.
type SyncReportData struct {
	Pushed     int    `json:"pushed"`
	PushFailed int    `json:"push_failed"`
	Updated    int    `json:"updated"`
	Inserted   int    `json:"inserted"`
	PullFailed int    `json:"pull_failed"`
	PushError  string `json:"push_error,omitempty"`
	PullError  string `json:"pull_error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// newMessage marshals data into a message of the given type.
func newMessage(typ MessageType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Timestamp: time.Now(), Data: raw}, nil
}

func errorMessage(in Intent, err error) Message {
	msg, mErr := newMessage(MessageTypeError, ErrorData{Op: in.Op, RequestID: in.RequestID, Error: err.Error()})
	if mErr != nil {
		return Message{Type: MessageTypeError, Timestamp: time.Now()}
	}
	return msg
}

func encode(msg Message) ([]byte, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return json.Marshal(msg)
}

// listsData converts entities into wire form.
func listsData(entities []model.Entity) []ListData {
	out := make([]ListData, 0, len(entities))
	for _, e := range entities {
		out = append(out, ListData{
			ID:       e.EntityID(),
			Name:     e.EntityName(),
			Category: e.EntityCategory(),
			Items:    model.ItemsOf(e),
		})
	}
	return out
}

func (d ListData) EntityID() int             { return d.ID }
func (d ListData) EntityName() string        { return d.Name }
func (d ListData) EntityCategory() string    { return d.Category }
func (d ListData) EntityItems() []model.Item { return d.Items }
