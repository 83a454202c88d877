package speech

import (
	"encoding/json"
	"fmt"
)

// Client event types sent to the realtime API.
const (
	EventTypeSessionUpdate          = "session.update"
	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	EventTypeInputAudioBufferCommit = "input_audio_buffer.commit"
	EventTypeConversationItemCreate = "conversation.item.create"
	EventTypeResponseCreate         = "response.create"
)

// Server event types received from the realtime API.
const (
	EventTypeError                             = "error"
	EventTypeSessionCreated                    = "session.created"
	EventTypeSessionUpdated                    = "session.updated"
	EventTypeInputAudioBufferSpeechStarted     = "input_audio_buffer.speech_started"
	EventTypeInputAudioBufferSpeechStopped     = "input_audio_buffer.speech_stopped"
	EventTypeResponseCreated                   = "response.created"
	EventTypeResponseDone                      = "response.done"
	EventTypeResponseAudioDelta                = "response.audio.delta"
	EventTypeResponseAudioDone                 = "response.audio.done"
	EventTypeResponseAudioTranscriptDone       = "response.audio_transcript.done"
	EventTypeResponseFunctionCallArgumentsDone = "response.function_call_arguments.done"
)

// ServerEvent is a single event from the realtime API. Only the fields the
// relay acts on are decoded; Raw keeps the original message for debugging.
type ServerEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`

	// Audio timing for speech_started / speech_stopped.
	ItemID     string `json:"item_id,omitempty"`
	AudioEndMs int    `json:"audio_end_ms,omitempty"`

	// Delta carries base64 audio for response.audio.delta events.
	Delta string `json:"delta,omitempty"`

	// Transcript for response.audio_transcript.done.
	Transcript string `json:"transcript,omitempty"`

	// Function call fields for response.function_call_arguments.done.
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// ResponseID for response.* events.
	ResponseID string `json:"response_id,omitempty"`

	// Err is populated for error events.
	Err *EventError `json:"error,omitempty"`

	Raw []byte `json:"-"`
}

// EventError is the error payload inside an "error" server event.
type EventError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

func (e *EventError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("realtime error: %s", e.Message)
}

// parseServerEvent decodes a raw websocket message into a ServerEvent.
func parseServerEvent(message []byte) (*ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, fmt.Errorf("parse server event: %w", err)
	}
	event.Raw = message
	return &event, nil
}
