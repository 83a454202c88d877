package models

import "time"

// SessionData carries the lead metadata supplied when an outbound call is triggered.
type SessionData struct {
	To           string `json:"to"`              // Destination number in E.164 format
	LeadName     string `json:"name"`            // Contact person to greet
	Organization string `json:"organization"`    // Lead's company
	Email        string `json:"email,omitempty"` // Optional contact email
}

// CallSession links a placed call to its lead metadata via the correlation id.
type CallSession struct {
	ID           string    `bson:"id" json:"id"` // Opaque correlation token, unique per attempt
	To           string    `bson:"to" json:"to"`
	LeadName     string    `bson:"lead_name" json:"lead_name"`
	Organization string    `bson:"organization" json:"organization"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
