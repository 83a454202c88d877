package models

import "time"

// BookingRequest holds all information required to book a demo slot.
type BookingRequest struct {
	Organization string `json:"organization"`    // Company booking the demo
	ContactName  string `json:"contact"`         // Person we spoke with
	Phone        string `json:"phone"`           // Callback number
	Email        string `json:"email,omitempty"` // Optional
	Datetime     string `json:"datetime"`        // Human-readable date + slot label
	Notes        string `json:"notes,omitempty"` // Optional free-form notes
}

// Booking represents a confirmed demo appointment.
type Booking struct {
	ID           string    `bson:"id" json:"id"` // e.g. "demo-3"
	Organization string    `bson:"organization" json:"organization"`
	ContactName  string    `bson:"contact_name" json:"contact_name"`
	Phone        string    `bson:"phone" json:"phone"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	Datetime     string    `bson:"datetime" json:"datetime"`
	Notes        string    `bson:"notes,omitempty" json:"notes,omitempty"`
	Status       string    `bson:"status" json:"status"` // Always "scheduled"
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
