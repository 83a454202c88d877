package speech

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnDetectionKeepsExplicitFalseFlags(t *testing.T) {
	off := false
	cfg := SessionConfig{
		Modalities: []string{"text", "audio"},
		TurnDetection: &TurnDetection{
			Type:              VADServerVAD,
			CreateResponse:    &off,
			InterruptResponse: &off,
		},
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"create_response":false`)
	assert.Contains(t, string(data), `"interrupt_response":false`)
}

func TestTurnDetectionOmitsUnsetFlags(t *testing.T) {
	data, err := json.Marshal(TurnDetection{Type: VADServerVAD})
	require.NoError(t, err)

	assert.NotContains(t, string(data), "create_response")
	assert.NotContains(t, string(data), "interrupt_response")
}
