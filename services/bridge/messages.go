package bridge

// Telephony media-stream event names.
const (
	streamEventStart = "start"
	streamEventMedia = "media"
	streamEventStop  = "stop"
	streamEventMark  = "mark"
)

// correlationParam is the custom parameter carrying the call's correlation
// id. It rides inside the start event rather than the URL so it survives
// provider-side stream renegotiation.
const correlationParam = "correlation_id"

// streamMessage is one JSON frame on the telephony media-stream socket, in
// both directions. Only the section matching Event is populated.
type streamMessage struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid,omitempty"`
	Start     *startPayload `json:"start,omitempty"`
	Media     *mediaPayload `json:"media,omitempty"`
	Mark      *markPayload  `json:"mark,omitempty"`
}

type startPayload struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

type markPayload struct {
	Name string `json:"name"`
}

// outboundMedia builds the frame that carries model audio back to the
// telephony stream.
func outboundMedia(streamSid, payloadBase64 string) streamMessage {
	return streamMessage{
		Event:     streamEventMedia,
		StreamSid: streamSid,
		Media:     &mediaPayload{Payload: payloadBase64},
	}
}
