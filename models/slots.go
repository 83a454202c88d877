package models

// AvailabilityResult answers a check-availability query for one resolved date.
type AvailabilityResult struct {
	Date    string   `json:"date"`             // e.g. "Monday, January 5, 2026"
	Weekday string   `json:"weekday"`          // e.g. "Monday"
	Slots   []string `json:"available_slots"`  // Catalog minus already-booked labels
	Reason  string   `json:"reason,omitempty"` // Set when Slots is empty (weekends)
}
