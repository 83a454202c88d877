package models

// NotificationPayload is the fixed summary sent to the webhook and SMS sinks
// after a successful booking.
type NotificationPayload struct {
	BookingID    string `json:"booking_id"`
	Organization string `json:"organization"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	Datetime     string `json:"datetime"`
}
