package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the endpoint handlers so route registration stays
// declarative.
type HandlerBundle struct {
	// Call endpoints
	TriggerCallHandler gin.HandlerFunc
	CallStatusHandler  gin.HandlerFunc

	// Telephony-facing endpoints
	TwiMLHandler       gin.HandlerFunc
	MediaStreamHandler gin.HandlerFunc

	// Call record lookups
	GetCallRecordHandler   gin.HandlerFunc
	ListCallRecordsHandler gin.HandlerFunc
}
