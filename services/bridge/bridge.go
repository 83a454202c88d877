package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brightcall/models"
	"brightcall/services/registry"
	"brightcall/services/speech"
	"brightcall/services/tools"
	"brightcall/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Per-call lifecycle states.
type state int

const (
	stateConnecting state = iota
	stateAwaitingStream
	stateActive
	stateClosing
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateAwaitingStream:
		return "awaiting_stream"
	case stateActive:
		return "active"
	case stateClosing:
		return "closing"
	default:
		return "closed"
	}
}

const (
	// Telephony frames are 20ms; committing every 5 keeps the model's
	// input finalize cadence around 100ms.
	defaultCommitThreshold = 5
	defaultPingInterval    = 25 * time.Second
)

// StreamConn is the telephony side of a call. Satisfied by
// *websocket.Conn; the bridge is the only writer once Run starts.
type StreamConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// SessionDialer opens the model-side socket. Dialing happens inside Run so
// telephony events arriving first are handled by the same state machine.
type SessionDialer func(ctx context.Context) (speech.Session, error)

// Config wires one call's collaborators into a Bridge.
type Config struct {
	Conn        StreamConn
	DialSession SessionDialer
	Dispatcher  tools.Dispatcher
	Registry    registry.Registry

	Voice       string
	Temperature float64

	// CommitThreshold is the number of inbound frames per input commit.
	// Zero means the default.
	CommitThreshold int

	// PingInterval is the keepalive period for both sockets. Zero means
	// the default.
	PingInterval time.Duration
}

// Bridge relays audio between one telephony stream and one model session,
// serializing every state mutation through a single event loop. All fields
// below config are owned by that loop.
type Bridge struct {
	cfg    Config
	logger *zap.Logger

	state         state
	session       speech.Session
	streamSid     string
	correlationID string
	lead          *models.CallSession

	configured       bool
	greetingSent     bool
	responseInFlight bool
	pendingFrames    int
	pendingToolReply bool
	outboundBuffer   []string
}

// New builds a Bridge for a single call. Run must be called exactly once.
func New(cfg Config) *Bridge {
	if cfg.CommitThreshold <= 0 {
		cfg.CommitThreshold = defaultCommitThreshold
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	return &Bridge{
		cfg:    cfg,
		logger: utils.GetLogger(),
		state:  stateConnecting,
	}
}

type dialResult struct {
	session speech.Session
	err     error
}

// Run drives the call until either side closes. It always returns with both
// sockets closed and never propagates one call's failure to another.
func (b *Bridge) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer b.teardown()

	dialCh := make(chan dialResult, 1)
	go func() {
		session, err := b.cfg.DialSession(ctx)
		dialCh <- dialResult{session: session, err: err}
	}()

	// If the loop exits before the dial lands, the session would sit in
	// dialCh with a live read loop. Collect and close it.
	dialDone := false
	defer func() {
		if dialDone {
			return
		}
		go func() {
			if res := <-dialCh; res.session != nil {
				res.session.Close()
			}
		}()
	}()

	streamCh := make(chan streamMessage, 32)
	streamErrCh := make(chan error, 1)
	go b.readStream(ctx, streamCh, streamErrCh)

	ticker := time.NewTicker(b.cfg.PingInterval)
	defer ticker.Stop()

	// Nil until the dial completes; a nil channel never fires in select.
	var sessionEvents <-chan speech.EventOrError

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-dialCh:
			dialDone = true
			if res.err != nil {
				b.logger.Error("Model session dial failed",
					zap.String("correlation_id", b.correlationID),
					zap.Error(res.err),
				)
				return
			}
			b.session = res.session
			sessionEvents = res.session.Events()
			b.onModelOpen()

		case msg := <-streamCh:
			if done := b.onStreamMessage(ctx, msg); done {
				return
			}

		case err := <-streamErrCh:
			b.logger.Info("Telephony stream closed",
				zap.String("correlation_id", b.correlationID),
				zap.Error(err),
			)
			return

		case item, ok := <-sessionEvents:
			if !ok {
				return
			}
			if item.Err != nil {
				b.logger.Error("Model session failed",
					zap.String("correlation_id", b.correlationID),
					zap.Error(item.Err),
				)
				return
			}
			b.onModelEvent(ctx, item.Event)

		case <-ticker.C:
			b.keepalive()
		}
	}
}

// readStream pumps telephony frames into the event loop. It owns all reads
// on the stream socket.
func (b *Bridge) readStream(ctx context.Context, streamCh chan<- streamMessage, errCh chan<- error) {
	for {
		_, data, err := b.cfg.Conn.ReadMessage()
		if err != nil {
			errCh <- err
			return
		}
		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.logger.Warn("Dropping unparseable stream frame", zap.Error(err))
			continue
		}
		select {
		case streamCh <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// onModelOpen runs when the model socket finishes dialing. Configuration and
// the greeting wait for the stream id when it is not yet known.
func (b *Bridge) onModelOpen() {
	if b.streamSid != "" {
		b.configureAndGreet()
		b.setState(stateActive)
		return
	}
	b.setState(stateAwaitingStream)
}

func (b *Bridge) onStreamMessage(ctx context.Context, msg streamMessage) (done bool) {
	switch msg.Event {
	case streamEventStart:
		b.onStreamStart(msg)
	case streamEventMedia:
		b.onInboundAudio(msg)
	case streamEventStop:
		b.onStreamStop()
		return true
	case streamEventMark:
		// Playback checkpoints are not tracked.
	default:
		b.logger.Debug("Ignoring stream event", zap.String("event", msg.Event))
	}
	return false
}

func (b *Bridge) onStreamStart(msg streamMessage) {
	if msg.Start == nil {
		b.logger.Warn("Start event without payload")
		return
	}
	b.streamSid = msg.Start.StreamSid
	b.correlationID = msg.Start.CustomParameters[correlationParam]

	if b.correlationID != "" && b.cfg.Registry != nil {
		if lead, ok := b.cfg.Registry.Get(b.correlationID); ok {
			b.lead = lead
		} else {
			b.logger.Warn("No session registered for correlation id",
				zap.String("correlation_id", b.correlationID),
			)
		}
	}

	b.logger.Info("Media stream started",
		zap.String("correlation_id", b.correlationID),
		zap.String("stream_sid", b.streamSid),
	)

	if b.session != nil {
		b.configureAndGreet()
		b.setState(stateActive)
	}
	b.drainOutbound()
}

func (b *Bridge) onInboundAudio(msg streamMessage) {
	if b.session == nil || msg.Media == nil {
		return
	}
	if err := b.session.AppendAudioBase64(msg.Media.Payload); err != nil {
		b.logger.Warn("Audio append failed", zap.Error(err))
		return
	}
	b.pendingFrames++
	if b.pendingFrames >= b.cfg.CommitThreshold {
		b.commitPending()
	}
}

// onStreamStop finalizes any pending audio and asks for one last response so
// a mid-turn hang-up still gets acknowledged. The outcome is discarded.
func (b *Bridge) onStreamStop() {
	b.setState(stateClosing)
	if b.session == nil {
		return
	}
	if b.pendingFrames > 0 {
		b.commitPending()
	}
	if !b.responseInFlight {
		b.requestResponse()
	}
}

func (b *Bridge) onModelEvent(ctx context.Context, event *speech.ServerEvent) {
	switch event.Type {
	case speech.EventTypeResponseAudioDelta:
		b.onOutboundAudio(event.Delta)

	case speech.EventTypeInputAudioBufferSpeechStopped:
		if b.pendingFrames > 0 {
			b.commitPending()
		}
		if !b.responseInFlight {
			b.requestResponse()
		}

	case speech.EventTypeResponseCreated:
		b.responseInFlight = true

	case speech.EventTypeResponseDone:
		b.responseInFlight = false
		if b.pendingToolReply {
			b.pendingToolReply = false
			b.requestResponse()
		}

	case speech.EventTypeResponseFunctionCallArgumentsDone:
		b.onFunctionCall(ctx, event)

	case speech.EventTypeResponseAudioTranscriptDone:
		b.logger.Info("Assistant turn",
			zap.String("correlation_id", b.correlationID),
			zap.String("transcript", event.Transcript),
		)

	case speech.EventTypeError:
		// The call survives model-level errors while the socket holds.
		b.logger.Error("Model reported error",
			zap.String("correlation_id", b.correlationID),
			zap.Any("detail", event.Err),
		)

	case speech.EventTypeSessionCreated, speech.EventTypeSessionUpdated:
		b.logger.Debug("Session event", zap.String("type", event.Type))
	}
}

// onOutboundAudio forwards model audio to the stream, buffering in arrival
// order while the stream id is still unknown.
func (b *Bridge) onOutboundAudio(payloadBase64 string) {
	if payloadBase64 == "" {
		return
	}
	if b.streamSid == "" {
		b.outboundBuffer = append(b.outboundBuffer, payloadBase64)
		return
	}
	b.writeMedia(payloadBase64)
}

// drainOutbound flushes audio buffered before the stream id was known, then
// retires the buffer for the rest of the call.
func (b *Bridge) drainOutbound() {
	if len(b.outboundBuffer) == 0 {
		return
	}
	b.logger.Debug("Draining buffered outbound audio",
		zap.Int("chunks", len(b.outboundBuffer)),
	)
	for _, payload := range b.outboundBuffer {
		b.writeMedia(payload)
	}
	b.outboundBuffer = nil
}

func (b *Bridge) writeMedia(payloadBase64 string) {
	if err := b.cfg.Conn.WriteJSON(outboundMedia(b.streamSid, payloadBase64)); err != nil {
		b.logger.Warn("Outbound media write failed", zap.Error(err))
	}
}

func (b *Bridge) onFunctionCall(ctx context.Context, event *speech.ServerEvent) {
	reply := b.cfg.Dispatcher.Dispatch(ctx, event.Name, event.Arguments)
	if err := b.session.AddFunctionCallOutput(event.CallID, reply); err != nil {
		b.logger.Warn("Function call output failed", zap.Error(err))
		return
	}
	// The surrounding response is still winding down; the follow-up
	// response that voices the result waits for its done event.
	if b.responseInFlight {
		b.pendingToolReply = true
		return
	}
	b.requestResponse()
}

func (b *Bridge) commitPending() {
	if err := b.session.CommitInput(); err != nil {
		b.logger.Warn("Input commit failed", zap.Error(err))
	}
	b.pendingFrames = 0
}

func (b *Bridge) requestResponse() {
	if err := b.session.CreateResponse(nil); err != nil {
		b.logger.Warn("Response request failed", zap.Error(err))
		return
	}
	b.responseInFlight = true
}

// configureAndGreet pushes the session configuration and, once per call,
// seeds the opening line.
func (b *Bridge) configureAndGreet() {
	if b.configured {
		return
	}
	b.configured = true

	// Response creation stays with the state machine; the model only
	// reports turn boundaries.
	auto := false
	cfg := &speech.SessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      b.instructions(),
		Voice:             b.cfg.Voice,
		InputAudioFormat:  speech.AudioFormatG711ULaw,
		OutputAudioFormat: speech.AudioFormatG711ULaw,
		TurnDetection: &speech.TurnDetection{
			Type:              speech.VADServerVAD,
			CreateResponse:    &auto,
			InterruptResponse: &auto,
		},
		Tools:       tools.Manifest(),
		ToolChoice:  speech.ToolChoiceAuto,
		Temperature: b.cfg.Temperature,
	}
	if err := b.session.UpdateSession(cfg); err != nil {
		b.logger.Error("Session configuration failed", zap.Error(err))
		return
	}

	if b.greetingSent {
		return
	}
	b.greetingSent = true
	if err := b.session.AddAssistantGreeting(b.greeting()); err != nil {
		b.logger.Warn("Greeting item failed", zap.Error(err))
		return
	}
	b.requestResponse()
}

func (b *Bridge) instructions() string {
	base := "You are a friendly, concise sales assistant for BrightCall. " +
		"You are on a phone call, so keep every reply short and conversational. " +
		"Your goal is to book a product demo. Use check_availability to look up " +
		"open slots and book_demo once the caller confirms a date and time. " +
		"Demos run on weekdays only. Confirm the details back before booking."
	if b.lead == nil {
		return base
	}
	return fmt.Sprintf("%s You are speaking with %s from %s.",
		base, b.lead.LeadName, b.lead.Organization)
}

func (b *Bridge) greeting() string {
	if b.lead == nil {
		return "Hi! This is Sam from BrightCall. Do you have a quick minute to talk about a product demo?"
	}
	return fmt.Sprintf("Hi %s! This is Sam from BrightCall. I'm reaching out because %s showed interest in a product demo. Do you have a quick minute?",
		b.lead.LeadName, b.lead.Organization)
}

func (b *Bridge) keepalive() {
	deadline := time.Now().Add(5 * time.Second)
	if err := b.cfg.Conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		b.logger.Debug("Stream ping failed", zap.Error(err))
	}
	if b.session != nil {
		if err := b.session.Ping(); err != nil {
			b.logger.Debug("Session ping failed", zap.Error(err))
		}
	}
}

func (b *Bridge) setState(next state) {
	if b.state == next {
		return
	}
	b.logger.Debug("Call state change",
		zap.String("correlation_id", b.correlationID),
		zap.Stringer("from", b.state),
		zap.Stringer("to", next),
	)
	b.state = next
}

// teardown closes whichever side is still open. Close failures are logged,
// never retried.
func (b *Bridge) teardown() {
	b.setState(stateClosed)
	if b.session != nil {
		if err := b.session.Close(); err != nil {
			b.logger.Debug("Session close", zap.Error(err))
		}
	}
	if err := b.cfg.Conn.Close(); err != nil {
		b.logger.Debug("Stream close", zap.Error(err))
	}
}
