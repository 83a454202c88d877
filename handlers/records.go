package handlers

import (
	"net/http"

	recordsRepo "brightcall/database/repository/records"
	"brightcall/utils"

	"github.com/gin-gonic/gin"
)

// RecordsHandler serves archived call records for operator lookups.
type RecordsHandler struct {
	Records recordsRepo.CallRecordRepository
}

func NewRecordsHandler(records recordsRepo.CallRecordRepository) *RecordsHandler {
	return &RecordsHandler{Records: records}
}

// GetByID returns one archived call record by its record id.
func (h *RecordsHandler) GetByID(c *gin.Context) {
	if h.Records == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "call record archive is not configured", "")
		return
	}

	record, err := h.Records.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "call record not found", err.Error())
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListByCorrelation returns every archived record tied to one triggered call.
func (h *RecordsHandler) ListByCorrelation(c *gin.Context) {
	if h.Records == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "call record archive is not configured", "")
		return
	}

	correlationID := c.Query("cid")
	if correlationID == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing correlation id", "query parameter cid is required")
		return
	}

	records, err := h.Records.GetByCorrelationID(c.Request.Context(), correlationID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load call records", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}
