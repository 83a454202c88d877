package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"brightcall/models"
	"brightcall/services/registry"
	"brightcall/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CallPlacer dials the lead and routes the answered call back to us.
type CallPlacer interface {
	PlaceCall(to, twimlURL, statusCallbackURL string) (string, error)
}

// CallHandler owns the outbound-call endpoints.
type CallHandler struct {
	Registry      registry.Registry
	Telephony     CallPlacer
	PublicBaseURL string
}

func NewCallHandler(reg registry.Registry, telephony CallPlacer, publicBaseURL string) *CallHandler {
	return &CallHandler{
		Registry:      reg,
		Telephony:     telephony,
		PublicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// TriggerCall registers the lead and places the outbound call. The returned
// correlation id ties the eventual media stream back to this request.
func (h *CallHandler) TriggerCall(c *gin.Context) {
	var input models.SessionData
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if input.To == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing destination number", "")
		return
	}

	correlationID, err := h.Registry.Create(input)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to register call session", err.Error())
		return
	}

	twimlURL := fmt.Sprintf("%s/twiml?cid=%s", h.PublicBaseURL, url.QueryEscape(correlationID))
	statusURL := fmt.Sprintf("%s/api/calls/status?cid=%s", h.PublicBaseURL, url.QueryEscape(correlationID))

	callSID, err := h.Telephony.PlaceCall(input.To, twimlURL, statusURL)
	if err != nil {
		utils.GetLogger().Error("Call placement failed",
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		utils.JSONError(c, http.StatusBadGateway, "failed to place call", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"correlation_id": correlationID,
		"call_sid":       callSID,
		"status":         "queued",
	})
}
