package models

import "time"

// GrievanceEvent is the payload broadcast over Redis pub/sub whenever a
// ledger record is written, and fanned out to websocket subscribers.
type GrievanceEvent struct {
	GrievanceID     string    `json:"grievance_id"`
	GrievanceNumber string    `json:"grievance_number"`
	EventType       string    `json:"event_type"`
	Status          string    `json:"status"`
	TransactionHash string    `json:"transaction_hash"`
	Timestamp       time.Time `json:"timestamp"`
}
