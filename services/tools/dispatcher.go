package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"brightcall/models"
	"brightcall/services/notification"
	"brightcall/services/scheduling"
	"brightcall/utils"

	"go.uber.org/zap"
)

// Dispatcher executes a named tool call from the model and returns the JSON
// payload to hand back as the function call output. The returned string is
// always valid JSON, even for unknown tools or failed invocations, so the
// conversation can continue.
type Dispatcher interface {
	Dispatch(ctx context.Context, name, argsJSON string) string
}

// DefaultDispatcher routes tool calls to the scheduling store and fires
// booking notifications without blocking the reply.
type DefaultDispatcher struct {
	store    *scheduling.Store
	notifier notification.Service
}

// NewDispatcher wires a dispatcher. notifier may be nil to disable
// notifications.
func NewDispatcher(store *scheduling.Store, notifier notification.Service) *DefaultDispatcher {
	return &DefaultDispatcher{store: store, notifier: notifier}
}

func (d *DefaultDispatcher) Dispatch(ctx context.Context, name, argsJSON string) string {
	logger := utils.GetLogger()
	logger.Info("Tool call",
		zap.String("tool", name),
		zap.String("arguments", argsJSON),
	)

	switch name {
	case ToolCheckAvailability:
		return d.checkAvailability(argsJSON)
	case ToolBookDemo:
		return d.bookDemo(argsJSON)
	default:
		logger.Warn("Unknown tool requested", zap.String("tool", name))
		return errorReply(fmt.Sprintf("unknown tool: %s", name))
	}
}

func (d *DefaultDispatcher) checkAvailability(argsJSON string) string {
	var args struct {
		When string `json:"when"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return errorReply("invalid arguments for check_availability")
	}

	result, err := d.store.Availability(args.When)
	if err != nil {
		return errorReply(err.Error())
	}
	return mustJSON(result)
}

func (d *DefaultDispatcher) bookDemo(argsJSON string) string {
	var req models.BookingRequest
	if err := json.Unmarshal([]byte(argsJSON), &req); err != nil {
		return errorReply("invalid arguments for book_demo")
	}

	booking, err := d.store.Book(req)
	if err != nil {
		return errorReply(err.Error())
	}

	if d.notifier != nil {
		payload := models.NotificationPayload{
			BookingID:    booking.ID,
			Organization: booking.Organization,
			ContactName:  booking.ContactName,
			Phone:        booking.Phone,
			Datetime:     booking.Datetime,
		}
		go d.notifier.BookingScheduled(payload)
	}

	return mustJSON(map[string]interface{}{
		"status":       booking.Status,
		"confirmation": booking.ID,
		"datetime":     booking.Datetime,
		"message":      fmt.Sprintf("Demo booked for %s on %s.", booking.Organization, booking.Datetime),
	})
}

func errorReply(msg string) string {
	return mustJSON(map[string]string{"error": msg})
}

// mustJSON marshals values whose types cannot fail to encode.
func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"internal encoding failure"}`
	}
	return string(data)
}

var _ Dispatcher = (*DefaultDispatcher)(nil)
