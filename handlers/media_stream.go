package handlers

import (
	"context"
	"net/http"

	"brightcall/config"
	"brightcall/services/bridge"
	"brightcall/services/registry"
	"brightcall/services/speech"
	"brightcall/services/tools"
	"brightcall/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The provider dials without a browser origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MediaStreamHandler accepts the provider's media-stream socket and runs one
// relay per call.
type MediaStreamHandler struct {
	Registry   registry.Registry
	Dispatcher tools.Dispatcher
}

func NewMediaStreamHandler(reg registry.Registry, dispatcher tools.Dispatcher) *MediaStreamHandler {
	return &MediaStreamHandler{Registry: reg, Dispatcher: dispatcher}
}

func (h *MediaStreamHandler) Handle(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Error("Media stream upgrade failed", zap.Error(err))
		return
	}

	b := bridge.New(bridge.Config{
		Conn: conn,
		DialSession: func(ctx context.Context) (speech.Session, error) {
			return speech.Dial(ctx, speech.DialConfig{
				APIKey: config.AppConfig.OpenAIAPIKey,
				Model:  config.AppConfig.RealtimeModel,
			})
		},
		Dispatcher:  h.Dispatcher,
		Registry:    h.Registry,
		Voice:       config.AppConfig.RealtimeVoice,
		Temperature: config.AppConfig.RealtimeTemperature,
	})

	// Run blocks for the life of the call and owns both sockets.
	b.Run(c.Request.Context())
}
