package grpcepisode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bft-labs/tickship/internal/domain"
)

func TestDecodeResponse_NoResultsField(t *testing.T) {
	results, err := decodeResponse(&structpb.Struct{})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestDecodeResponse_EmptyResults(t *testing.T) {
	results, err := decodeResponse(encodeResponse([]domain.CommandResult{}))
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestDecodeRequest_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		command map[string]interface{}
	}{
		{"missing actor", map[string]interface{}{"throttle": 1.0}},
		{"negative actor", map[string]interface{}{"actor": -1.0}},
		{"fractional actor", map[string]interface{}{"actor": 1.5}},
		{"actor too large", map[string]interface{}{"actor": 1e12}},
		{"string actor", map[string]interface{}{"actor": "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := structpb.NewStruct(map[string]interface{}{
				"commands": []interface{}{tt.command},
			})
			require.NoError(t, err)

			_, _, err = decodeRequest(req)
			assert.Error(t, err)
		})
	}
}

func TestDecodeRequest_TickCue(t *testing.T) {
	cmds, tickCue, err := decodeRequest(encodeRequest(nil, true))
	require.NoError(t, err)
	assert.True(t, tickCue)
	assert.Empty(t, cmds)
}
