package models

import "time"

// CallRecord is the archival record of one outbound call attempt. Written
// best-effort; the live call path never depends on it.
type CallRecord struct {
	ID            string    `bson:"id" json:"id"`
	CorrelationID string    `bson:"correlation_id" json:"correlation_id"`
	CallSID       string    `bson:"call_sid,omitempty" json:"call_sid,omitempty"`
	To            string    `bson:"to" json:"to"`
	From          string    `bson:"from" json:"from"`
	Status        string    `bson:"status" json:"status"` // queued, ringing, in-progress, completed, failed...
	StartedAt     time.Time `bson:"started_at" json:"started_at"`
	EndedAt       time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}
