package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "stratus/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs".
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTenantID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEditionID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseTenantID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseTenantID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, TenantID(valid), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety between
// entity identifiers. If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	tenantID := NewTenantID()
	editionID := NewEditionID()

	// These would fail to compile if the types were interchangeable:
	// var _ TenantID = editionID // compile error
	// var _ EditionID = tenantID // compile error

	assert.NotEqual(t, uuid.UUID(tenantID), uuid.UUID(editionID))
}

// TestJSONRepresentation verifies ids serialize as canonical UUID strings
// rather than raw byte arrays, so API payloads embedding typed ids stay
// parseable by string-based clients.
func TestJSONRepresentation(t *testing.T) {
	editionID := NewEditionID()

	payload, err := json.Marshal(struct {
		ID EditionID `json:"id"`
	}{ID: editionID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+editionID.String()+`"}`, string(payload))

	var decoded struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, editionID.String(), decoded.ID)

	var roundTrip struct {
		ID EditionID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(payload, &roundTrip))
	assert.Equal(t, editionID, roundTrip.ID)
}

func TestIsNil(t *testing.T) {
	assert.True(t, TenantID(uuid.Nil).IsNil())
	assert.False(t, NewTenantID().IsNil())
	assert.True(t, EditionID(uuid.Nil).IsNil())
	assert.False(t, NewEditionID().IsNil())
}
