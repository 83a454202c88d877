package handlers

import (
	"context"
	"net/http"
	"time"

	recordsRepo "brightcall/database/repository/records"
	"brightcall/models"
	"brightcall/services/registry"
	"brightcall/services/telephony"
	"brightcall/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Registry entries linger briefly after the call ends so late provider
// callbacks can still resolve them.
const sessionLinger = 2 * time.Minute

// StatusHandler receives provider call lifecycle callbacks.
type StatusHandler struct {
	Registry registry.Registry
	Records  recordsRepo.CallRecordRepository
	From     string
}

func NewStatusHandler(reg registry.Registry, records recordsRepo.CallRecordRepository, from string) *StatusHandler {
	return &StatusHandler{Registry: reg, Records: records, From: from}
}

// Handle processes a status callback. Terminal statuses schedule the session
// for expiry and archive a call record; archival is best-effort.
func (h *StatusHandler) Handle(c *gin.Context) {
	correlationID := c.Query("cid")
	callStatus := c.PostForm("CallStatus")
	callSID := c.PostForm("CallSid")
	to := c.PostForm("To")

	logger := utils.GetLogger()
	logger.Info("Call status update",
		zap.String("correlation_id", correlationID),
		zap.String("call_sid", callSID),
		zap.String("status", callStatus),
	)

	if telephony.IsTerminalStatus(callStatus) && correlationID != "" {
		h.Registry.ScheduleExpiry(correlationID, sessionLinger)
		h.archive(correlationID, callSID, to, callStatus)
	}

	c.Status(http.StatusNoContent)
}

func (h *StatusHandler) archive(correlationID, callSID, to, status string) {
	if h.Records == nil {
		return
	}
	record := models.CallRecord{
		CorrelationID: correlationID,
		CallSID:       callSID,
		To:            to,
		From:          h.From,
		Status:        status,
		EndedAt:       time.Now(),
	}
	if sess, ok := h.Registry.Get(correlationID); ok {
		record.StartedAt = sess.CreatedAt
		if record.To == "" {
			record.To = sess.To
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.Records.Create(ctx, record); err != nil {
			utils.GetLogger().Warn("Call record archival failed",
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
		}
	}()
}
