package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// MaterializeRequest asks the recurring worker to materialize a user's due
// templates up to AsOf. It carries no template data; the worker reads
// the templates from the database.
type MaterializeRequest struct {
	UserID    int64      `json:"userId"`
	AsOf      civil.Date `json:"asOf"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewMaterializeRequest(userID int64, asOf civil.Date) *MaterializeRequest {
	return &MaterializeRequest{
		UserID:    userID,
		AsOf:      asOf,
		Timestamp: time.Now().UTC(),
	}
}

func (m *MaterializeRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MaterializeRequestFromJSON decodes and checks a message body.
func MaterializeRequestFromJSON(data []byte) (*MaterializeRequest, error) {
	var msg MaterializeRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID <= 0 {
		return nil, errors.New("userId must be positive")
	}
	if msg.AsOf.IsZero() || !msg.AsOf.IsValid() {
		return nil, errors.New("asOf must be a valid date")
	}
	return &msg, nil
}
