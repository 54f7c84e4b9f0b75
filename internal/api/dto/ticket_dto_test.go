package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignedToValue(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantPresent bool
		wantValue   *int64
	}{
		{"absent", `{"title":"x"}`, false, nil},
		{"explicit null", `{"assigned_to":null}`, true, nil},
		{"integer", `{"assigned_to":7}`, true, ptr(int64(7))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateTicketRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			value, present, err := req.AssignedToValue()
			require.NoError(t, err)
			assert.Equal(t, tt.wantPresent, present)
			if tt.wantValue == nil {
				assert.Nil(t, value)
			} else {
				require.NotNil(t, value)
				assert.Equal(t, *tt.wantValue, *value)
			}
		})
	}
}

func TestAssignedToValueRejectsNonInteger(t *testing.T) {
	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assigned_to":"seven"}`), &req))

	_, present, err := req.AssignedToValue()
	assert.True(t, present)
	assert.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
