package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "siren/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRecordID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
		assert.False(t, id.IsNil())
	})
}

func TestParseSirenNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SirenNumber
		wantErr bool
	}{
		{"plain digits", "123456789", "123456789", false},
		{"grouped digits", "123 456 789", "123456789", false},
		{"surrounding whitespace", "  552100554\n", "552100554", false},

		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too short", "12345678", "", true},
		{"too long (SIRET)", "55210055400013", "", true},
		{"letters", "12345678A", "", true},
		{"path traversal", "../../../", "", true},
		{"oversized input", strings.Repeat("1", 1000), "", true},
		{"full-width digits", "１２３４５６７８９", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSirenNumber(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIDsEncodeAsUUIDStrings(t *testing.T) {
	recordID := NewRecordID()
	raw, err := json.Marshal(struct {
		ID RecordID `json:"id"`
	}{recordID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+recordID.String()+`"}`, string(raw))

	var decoded struct {
		ID RecordID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, recordID, decoded.ID)

	var userID UserID
	assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &userID))
}
