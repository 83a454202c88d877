package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"brightcall/models"
	"brightcall/utils"

	"go.uber.org/zap"
)

// Service delivers booking notifications to external collaborators. Delivery
// is best-effort: failures are logged and never returned to the caller's
// conversation flow.
type Service interface {
	BookingScheduled(payload models.NotificationPayload)
}

// SMSSender sends a text message to a phone number. Satisfied by the
// telephony client.
type SMSSender interface {
	SendSMS(to, body string) error
}

// DefaultService posts a JSON webhook and sends an SMS for each booking.
// Either target may be unconfigured, in which case it is skipped.
type DefaultService struct {
	webhookURL string
	smsNumber  string
	sms        SMSSender
	httpClient *http.Client
}

// NewService builds a notification service. Pass empty strings or a nil
// sender to disable the corresponding channel.
func NewService(webhookURL, smsNumber string, sms SMSSender) *DefaultService {
	return &DefaultService{
		webhookURL: webhookURL,
		smsNumber:  smsNumber,
		sms:        sms,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// BookingScheduled fires both channels synchronously. Callers that must not
// block run it on their own goroutine or through the task queue.
func (s *DefaultService) BookingScheduled(payload models.NotificationPayload) {
	logger := utils.GetLogger()

	if s.webhookURL != "" {
		if err := s.postWebhook(payload); err != nil {
			logger.Warn("Booking webhook delivery failed",
				zap.String("booking_id", payload.BookingID),
				zap.Error(err),
			)
		}
	}

	if s.smsNumber != "" && s.sms != nil {
		body := fmt.Sprintf("New demo booked: %s (%s) on %s",
			payload.Organization, payload.ContactName, payload.Datetime)
		if err := s.sms.SendSMS(s.smsNumber, body); err != nil {
			logger.Warn("Booking SMS delivery failed",
				zap.String("booking_id", payload.BookingID),
				zap.Error(err),
			)
		}
	}
}

func (s *DefaultService) postWebhook(payload models.NotificationPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
