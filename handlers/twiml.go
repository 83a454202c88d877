package handlers

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TwiMLHandler answers the provider's webhook for a freshly answered call
// with instructions to bridge its audio into our media-stream endpoint. The
// correlation id rides as a stream parameter, not in the socket URL, so it
// survives provider-side renegotiation.
type TwiMLHandler struct {
	PublicBaseURL string
}

func NewTwiMLHandler(publicBaseURL string) *TwiMLHandler {
	return &TwiMLHandler{PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (h *TwiMLHandler) Handle(c *gin.Context) {
	correlationID := c.Query("cid")
	if correlationID == "" {
		c.String(http.StatusBadRequest, "missing cid")
		return
	}

	streamURL := httpToWS(h.PublicBaseURL) + "/media-stream"

	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(correlationID))

	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Connect>
    <Stream url="%s">
      <Parameter name="correlation_id" value="%s" />
    </Stream>
  </Connect>
</Response>`, streamURL, escaped.String())

	c.Data(http.StatusOK, "text/xml", []byte(twiml))
}

func httpToWS(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}
