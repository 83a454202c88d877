package speech

// Audio formats accepted by the realtime API.
const (
	AudioFormatPCM16    = "pcm16"
	AudioFormatG711ULaw = "g711_ulaw"
	AudioFormatG711ALaw = "g711_alaw"
)

// Turn detection modes.
const (
	VADServerVAD = "server_vad"
)

// Tool choice options.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// SessionConfig is the payload of a session.update event.
type SessionConfig struct {
	Modalities        []string       `json:"modalities,omitempty"`
	Instructions      string         `json:"instructions,omitempty"`
	Voice             string         `json:"voice,omitempty"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format,omitempty"`
	TurnDetection     *TurnDetection `json:"turn_detection,omitempty"`
	Tools             []Tool         `json:"tools,omitempty"`
	ToolChoice        string         `json:"tool_choice,omitempty"`
	Temperature       float64        `json:"temperature,omitempty"`
}

// TurnDetection configures server-side voice activity detection.
// CreateResponse and InterruptResponse are pointers because the upstream
// default for both is true; an explicit false must survive marshaling.
type TurnDetection struct {
	Type              string  `json:"type,omitempty"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
	CreateResponse    *bool   `json:"create_response,omitempty"`
	InterruptResponse *bool   `json:"interrupt_response,omitempty"`
}

// Tool declares a function the model may call during the conversation.
type Tool struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ResponseCreateOptions overrides session defaults for a single response.
type ResponseCreateOptions struct {
	Modalities   []string `json:"modalities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}
