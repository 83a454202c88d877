package speech

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"brightcall/utils"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const defaultRealtimeURL = "wss://api.openai.com/v1/realtime"

// Session is the model-facing leg of a call: outbound control events plus a
// stream of server events. Implemented by LiveSession over a websocket and by
// test doubles.
type Session interface {
	UpdateSession(cfg *SessionConfig) error
	AppendAudioBase64(audioBase64 string) error
	CommitInput() error
	CreateResponse(opts *ResponseCreateOptions) error
	AddAssistantGreeting(text string) error
	AddFunctionCallOutput(callID, output string) error
	Events() <-chan EventOrError
	Ping() error
	Close() error
}

// EventOrError is one item from the session event stream. Exactly one of the
// two fields is set; an item with Err set is terminal.
type EventOrError struct {
	Event *ServerEvent
	Err   error
}

// DialConfig carries everything needed to open a realtime session.
type DialConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// LiveSession is a realtime API session over a websocket connection.
type LiveSession struct {
	conn      *websocket.Conn
	eventsCh  chan EventOrError
	closeCh   chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

// Dial opens a websocket to the realtime API and starts the background
// reader. The caller owns the returned session and must Close it.
func Dial(ctx context.Context, cfg DialConfig) (*LiveSession, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultRealtimeURL
	}
	url := fmt.Sprintf("%s?model=%s", baseURL, cfg.Model)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}

	s := &LiveSession{
		conn:     conn,
		eventsCh: make(chan EventOrError, 100),
		closeCh:  make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func newEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// UpdateSession sends a session.update with the given configuration.
func (s *LiveSession) UpdateSession(cfg *SessionConfig) error {
	return s.sendEvent(map[string]interface{}{
		"event_id": newEventID(),
		"type":     EventTypeSessionUpdate,
		"session":  cfg,
	})
}

// AppendAudioBase64 appends already-encoded audio to the input buffer.
func (s *LiveSession) AppendAudioBase64(audioBase64 string) error {
	return s.sendEvent(map[string]interface{}{
		"event_id": newEventID(),
		"type":     EventTypeInputAudioBufferAppend,
		"audio":    audioBase64,
	})
}

// CommitInput commits the pending input audio buffer.
func (s *LiveSession) CommitInput() error {
	return s.sendEvent(map[string]interface{}{
		"event_id": newEventID(),
		"type":     EventTypeInputAudioBufferCommit,
	})
}

// CreateResponse asks the model to generate a response.
func (s *LiveSession) CreateResponse(opts *ResponseCreateOptions) error {
	event := map[string]interface{}{
		"event_id": newEventID(),
		"type":     EventTypeResponseCreate,
	}
	if opts != nil {
		response := map[string]interface{}{}
		if len(opts.Modalities) > 0 {
			response["modalities"] = opts.Modalities
		}
		if opts.Instructions != "" {
			response["instructions"] = opts.Instructions
		}
		if len(response) > 0 {
			event["response"] = response
		}
	}
	return s.sendEvent(event)
}

// AddAssistantGreeting seeds the conversation with an assistant text item,
// used for the opening line before any caller audio arrives.
func (s *LiveSession) AddAssistantGreeting(text string) error {
	return s.sendEvent(map[string]interface{}{
		"event_id": newEventID(),
		"type":     EventTypeConversationItemCreate,
		"item": map[string]interface{}{
			"type": "message",
			"role": "assistant",
			"content": []map[string]interface{}{
				{"type": "text", "text": text},
			},
		},
	})
}

// AddFunctionCallOutput returns a tool result to the conversation.
func (s *LiveSession) AddFunctionCallOutput(callID, output string) error {
	return s.sendEvent(map[string]interface{}{
		"event_id": newEventID(),
		"type":     EventTypeConversationItemCreate,
		"item": map[string]interface{}{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
}

// Events returns the server event stream. The channel is closed after a
// terminal error item or Close.
func (s *LiveSession) Events() <-chan EventOrError {
	return s.eventsCh
}

// Ping sends a websocket ping control frame.
func (s *LiveSession) Ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// Close tears down the connection. Safe to call more than once.
func (s *LiveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		err = s.conn.Close()
	})
	return err
}

func (s *LiveSession) sendEvent(event map[string]interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(event)
}

func (s *LiveSession) readLoop() {
	defer close(s.eventsCh)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeCh:
			case s.eventsCh <- EventOrError{Err: fmt.Errorf("realtime read: %w", err)}:
			}
			return
		}

		event, err := parseServerEvent(message)
		if err != nil {
			utils.GetLogger().Warn("Dropping unparseable realtime message", zap.Error(err))
			continue
		}

		select {
		case <-s.closeCh:
			return
		case s.eventsCh <- EventOrError{Event: event}:
		}
	}
}

var _ Session = (*LiveSession)(nil)
