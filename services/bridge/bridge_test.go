package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"brightcall/models"
	"brightcall/services/registry"
	"brightcall/services/scheduling"
	"brightcall/services/speech"
	"brightcall/services/tools"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream stands in for the telephony websocket. Inbound frames are fed
// through incoming; outbound writes are recorded.
type fakeStream struct {
	mu        sync.Mutex
	incoming  chan []byte
	writes    []streamMessage
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		incoming: make(chan []byte, 32),
		closed:   make(chan struct{}),
	}
}

func (f *fakeStream) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-f.incoming:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, io.ErrClosedPipe
	}
}

func (f *fakeStream) WriteJSON(v interface{}) error {
	msg, ok := v.(streamMessage)
	if !ok {
		return fmt.Errorf("unexpected write type %T", v)
	}
	f.mu.Lock()
	f.writes = append(f.writes, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeStream) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeStream) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeStream) mediaPayloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, w := range f.writes {
		if w.Event == streamEventMedia && w.Media != nil {
			out = append(out, w.Media.Payload)
		}
	}
	return out
}

func (f *fakeStream) send(t *testing.T, msg streamMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	f.incoming <- data
}

// fakeSession records every control event in arrival order and lets tests
// inject server events. The events channel is unbuffered so a returned send
// means the loop has picked the event up.
type fakeSession struct {
	mu      sync.Mutex
	ops     []string
	outputs map[string]string
	config  *speech.SessionConfig
	events  chan speech.EventOrError
	closed  bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		outputs: make(map[string]string),
		events:  make(chan speech.EventOrError),
	}
}

func (f *fakeSession) record(op string) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
}

func (f *fakeSession) UpdateSession(cfg *speech.SessionConfig) error {
	f.record("session.update")
	f.mu.Lock()
	f.config = cfg
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) AppendAudioBase64(audioBase64 string) error {
	f.record("append")
	return nil
}

func (f *fakeSession) CommitInput() error {
	f.record("commit")
	return nil
}

func (f *fakeSession) CreateResponse(opts *speech.ResponseCreateOptions) error {
	f.record("response.create")
	return nil
}

func (f *fakeSession) AddAssistantGreeting(text string) error {
	f.record("greeting")
	return nil
}

func (f *fakeSession) AddFunctionCallOutput(callID, output string) error {
	f.record("function_output:" + callID)
	f.mu.Lock()
	f.outputs[callID] = output
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) Events() <-chan speech.EventOrError { return f.events }

func (f *fakeSession) Ping() error { return nil }

func (f *fakeSession) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSession) sessionConfig() *speech.SessionConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config
}

func (f *fakeSession) opList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

func (f *fakeSession) countOp(op string) int {
	n := 0
	for _, o := range f.opList() {
		if o == op {
			n++
		}
	}
	return n
}

func (f *fakeSession) push(event *speech.ServerEvent) {
	f.events <- speech.EventOrError{Event: event}
}

type harness struct {
	stream        *fakeStream
	session       *fakeSession
	correlationID string
	done          chan struct{}
	cancel        context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	stream := newFakeStream()
	session := newFakeSession()

	reg := registry.NewMemoryRegistry()
	correlationID, err := reg.Create(models.SessionData{
		To:           "+15550123",
		LeadName:     "Ada",
		Organization: "Analytical Engines",
	})
	require.NoError(t, err)

	wednesday := time.Date(2026, time.January, 7, 10, 0, 0, 0, time.UTC)
	store := scheduling.NewStoreWithClock(func() time.Time { return wednesday })

	b := New(Config{
		Conn: stream,
		DialSession: func(ctx context.Context) (speech.Session, error) {
			return session, nil
		},
		Dispatcher:      tools.NewDispatcher(store, nil),
		Registry:        reg,
		Voice:           "alloy",
		Temperature:     0.8,
		CommitThreshold: 5,
		PingInterval:    time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	return &harness{
		stream:        stream,
		session:       session,
		correlationID: correlationID,
		done:          done,
		cancel:        cancel,
	}
}

func (h *harness) startStream(t *testing.T) {
	t.Helper()
	h.stream.send(t, streamMessage{
		Event: streamEventStart,
		Start: &startPayload{
			StreamSid:        "MZ123",
			CallSid:          "CA456",
			CustomParameters: map[string]string{correlationParam: h.correlationID},
		},
	})
}

func (h *harness) sendMedia(t *testing.T, payload string) {
	t.Helper()
	h.stream.send(t, streamMessage{
		Event: streamEventMedia,
		Media: &mediaPayload{Payload: payload},
	})
}

// waitGreeting blocks until the configure-and-greet sequence has run, then
// clears the greeting response so later assertions start from idle.
func (h *harness) waitGreeting(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.session.countOp("response.create") == 1
	}, time.Second, 5*time.Millisecond)
	h.session.push(&speech.ServerEvent{Type: speech.EventTypeResponseCreated})
	h.session.push(&speech.ServerEvent{Type: speech.EventTypeResponseDone})
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop")
	}
}

func TestBridgeConfiguresAndGreetsOnce(t *testing.T) {
	h := newHarness(t)
	defer h.stop(t)

	h.startStream(t)

	require.Eventually(t, func() bool {
		return len(h.session.opList()) >= 3
	}, time.Second, 5*time.Millisecond)

	ops := h.session.opList()
	assert.Equal(t, []string{"session.update", "greeting", "response.create"}, ops[:3])
	assert.Equal(t, 1, h.session.countOp("greeting"))
	assert.Equal(t, 1, h.session.countOp("session.update"))
}

func TestBridgeDisablesAutomaticResponses(t *testing.T) {
	h := newHarness(t)
	defer h.stop(t)

	h.startStream(t)

	require.Eventually(t, func() bool {
		return h.session.sessionConfig() != nil
	}, time.Second, 5*time.Millisecond)

	td := h.session.sessionConfig().TurnDetection
	require.NotNil(t, td)
	assert.Equal(t, speech.VADServerVAD, td.Type)
	require.NotNil(t, td.CreateResponse)
	require.NotNil(t, td.InterruptResponse)
	assert.False(t, *td.CreateResponse)
	assert.False(t, *td.InterruptResponse)
}

func TestBridgeClosesLateDialedSession(t *testing.T) {
	stream := newFakeStream()
	session := newFakeSession()
	release := make(chan struct{})

	b := New(Config{
		Conn: stream,
		DialSession: func(ctx context.Context) (speech.Session, error) {
			<-release
			return session, nil
		},
		Dispatcher:   tools.NewDispatcher(scheduling.NewStore(), nil),
		Registry:     registry.NewMemoryRegistry(),
		PingInterval: time.Hour,
	})

	done := make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(done)
	}()

	// End the call while the dial is still in flight.
	close(stream.incoming)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop")
	}
	assert.False(t, session.isClosed())

	close(release)
	assert.Eventually(t, func() bool {
		return session.isClosed()
	}, time.Second, 5*time.Millisecond)
}

func TestBridgeCommitsAfterFrameThreshold(t *testing.T) {
	h := newHarness(t)
	defer h.stop(t)

	h.startStream(t)
	h.waitGreeting(t)

	for i := 0; i < 5; i++ {
		h.sendMedia(t, "AAAA")
	}

	require.Eventually(t, func() bool {
		return h.session.countOp("commit") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 5, h.session.countOp("append"))

	// Below the threshold, no further commit.
	h.sendMedia(t, "AAAA")
	h.sendMedia(t, "AAAA")
	require.Eventually(t, func() bool {
		return h.session.countOp("append") == 7
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.session.countOp("commit"))
}

func TestBridgeSpeechStoppedCommitsBeforeResponse(t *testing.T) {
	h := newHarness(t)
	defer h.stop(t)

	h.startStream(t)
	h.waitGreeting(t)

	h.sendMedia(t, "AAAA")
	h.sendMedia(t, "AAAA")
	require.Eventually(t, func() bool {
		return h.session.countOp("append") == 2
	}, time.Second, 5*time.Millisecond)

	h.session.push(&speech.ServerEvent{Type: speech.EventTypeInputAudioBufferSpeechStopped})

	require.Eventually(t, func() bool {
		return h.session.countOp("response.create") == 2
	}, time.Second, 5*time.Millisecond)

	ops := h.session.opList()
	assert.Equal(t, "response.create", ops[len(ops)-1])
	assert.Equal(t, "commit", ops[len(ops)-2], "pending audio must be committed before the response request")
}

func TestBridgeNeverOverlapsResponses(t *testing.T) {
	h := newHarness(t)
	defer h.stop(t)

	h.startStream(t)

	// Greeting response still in flight.
	require.Eventually(t, func() bool {
		return h.session.countOp("response.create") == 1
	}, time.Second, 5*time.Millisecond)
	h.session.push(&speech.ServerEvent{Type: speech.EventTypeResponseCreated})

	h.session.push(&speech.ServerEvent{Type: speech.EventTypeInputAudioBufferSpeechStopped})
	h.session.push(&speech.ServerEvent{Type: speech.EventTypeInputAudioBufferSpeechStopped})
	assert.Equal(t, 1, h.session.countOp("response.create"))

	h.session.push(&speech.ServerEvent{Type: speech.EventTypeResponseDone})
	h.session.push(&speech.ServerEvent{Type: speech.EventTypeInputAudioBufferSpeechStopped})
	require.Eventually(t, func() bool {
		return h.session.countOp("response.create") == 2
	}, time.Second, 5*time.Millisecond)
}

func TestBridgeBuffersOutboundAudioUntilStreamStart(t *testing.T) {
	h := newHarness(t)
	defer h.stop(t)

	// Model audio arrives before the stream id is known.
	for _, payload := range []string{"one", "two", "three"} {
		h.session.push(&speech.ServerEvent{
			Type:  speech.EventTypeResponseAudioDelta,
			Delta: payload,
		})
	}
	assert.Empty(t, h.stream.mediaPayloads())

	h.startStream(t)

	require.Eventually(t, func() bool {
		return len(h.stream.mediaPayloads()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three"}, h.stream.mediaPayloads())

	// After the drain, audio flows straight through.
	h.session.push(&speech.ServerEvent{
		Type:  speech.EventTypeResponseAudioDelta,
		Delta: "four",
	})
	require.Eventually(t, func() bool {
		return len(h.stream.mediaPayloads()) == 4
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three", "four"}, h.stream.mediaPayloads())
}

func TestBridgeFunctionCallRepliesAfterResponseDone(t *testing.T) {
	h := newHarness(t)
	defer h.stop(t)

	h.startStream(t)

	require.Eventually(t, func() bool {
		return h.session.countOp("response.create") == 1
	}, time.Second, 5*time.Millisecond)
	h.session.push(&speech.ServerEvent{Type: speech.EventTypeResponseCreated})

	h.session.push(&speech.ServerEvent{
		Type:      speech.EventTypeResponseFunctionCallArgumentsDone,
		CallID:    "call_1",
		Name:      "check_availability",
		Arguments: `{"when":"friday"}`,
	})

	require.Eventually(t, func() bool {
		return h.session.countOp("function_output:call_1") == 1
	}, time.Second, 5*time.Millisecond)

	h.session.mu.Lock()
	output := h.session.outputs["call_1"]
	h.session.mu.Unlock()
	assert.Contains(t, output, "available_slots")

	// The follow-up response waits for the in-flight one to finish.
	assert.Equal(t, 1, h.session.countOp("response.create"))
	h.session.push(&speech.ServerEvent{Type: speech.EventTypeResponseDone})
	require.Eventually(t, func() bool {
		return h.session.countOp("response.create") == 2
	}, time.Second, 5*time.Millisecond)
}

func TestBridgeUnknownToolKeepsCallAlive(t *testing.T) {
	h := newHarness(t)
	defer h.stop(t)

	h.startStream(t)
	h.waitGreeting(t)

	h.session.push(&speech.ServerEvent{
		Type:      speech.EventTypeResponseFunctionCallArgumentsDone,
		CallID:    "call_9",
		Name:      "foo",
		Arguments: `{}`,
	})

	require.Eventually(t, func() bool {
		return h.session.countOp("function_output:call_9") == 1
	}, time.Second, 5*time.Millisecond)

	h.session.mu.Lock()
	output := h.session.outputs["call_9"]
	h.session.mu.Unlock()
	assert.Contains(t, output, "unknown tool: foo")
	assert.False(t, h.session.isClosed())
}

func TestBridgeStopFinalizesAndTearsDown(t *testing.T) {
	h := newHarness(t)

	h.startStream(t)
	h.waitGreeting(t)

	h.sendMedia(t, "AAAA")
	require.Eventually(t, func() bool {
		return h.session.countOp("append") == 1
	}, time.Second, 5*time.Millisecond)

	h.stream.send(t, streamMessage{Event: streamEventStop})

	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not finish after stop event")
	}

	ops := h.session.opList()
	require.NotEmpty(t, ops)
	assert.Equal(t, "response.create", ops[len(ops)-1])
	assert.Equal(t, "commit", ops[len(ops)-2])
	assert.True(t, h.session.isClosed())
	assert.True(t, h.stream.isClosed())
}

func TestBridgeStreamErrorClosesModelSide(t *testing.T) {
	h := newHarness(t)

	h.startStream(t)
	h.waitGreeting(t)

	close(h.stream.incoming)

	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not finish after stream error")
	}
	assert.True(t, h.session.isClosed())
	assert.True(t, h.stream.isClosed())
}

func TestBridgeModelErrorEventDoesNotEndCall(t *testing.T) {
	h := newHarness(t)
	defer h.stop(t)

	h.startStream(t)
	h.waitGreeting(t)

	h.session.push(&speech.ServerEvent{
		Type: speech.EventTypeError,
		Err:  &speech.EventError{Code: "rate_limit", Message: "slow down"},
	})

	h.sendMedia(t, "AAAA")
	require.Eventually(t, func() bool {
		return h.session.countOp("append") >= 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, h.session.isClosed())
}

// Frames arriving before the model socket is open are dropped rather than
// queued; the model's input buffer only sees audio it can act on.
func TestBridgeDropsInboundAudioBeforeModelOpen(t *testing.T) {
	stream := newFakeStream()
	session := newFakeSession()
	release := make(chan struct{})

	reg := registry.NewMemoryRegistry()
	correlationID, err := reg.Create(models.SessionData{LeadName: "Ada", Organization: "Analytical Engines", To: "+15550123"})
	require.NoError(t, err)

	store := scheduling.NewStore()
	b := New(Config{
		Conn: stream,
		DialSession: func(ctx context.Context) (speech.Session, error) {
			<-release
			return session, nil
		},
		Dispatcher:   tools.NewDispatcher(store, nil),
		Registry:     reg,
		PingInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	data, err := json.Marshal(streamMessage{
		Event: streamEventStart,
		Start: &startPayload{
			StreamSid:        "MZ123",
			CustomParameters: map[string]string{correlationParam: correlationID},
		},
	})
	require.NoError(t, err)
	stream.incoming <- data

	media, err := json.Marshal(streamMessage{Event: streamEventMedia, Media: &mediaPayload{Payload: "AAAA"}})
	require.NoError(t, err)
	stream.incoming <- media
	stream.incoming <- media

	// The dial gate holds the model side shut, so the loop has only the
	// stream to drain; give it a beat before opening the gate.
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.Eventually(t, func() bool {
		return session.countOp("session.update") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, session.countOp("append"))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop")
	}
}
