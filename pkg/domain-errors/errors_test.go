package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches own code", func(t *testing.T) {
		err := New(CodeNotFound, "tenant not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeValidation))
	})

	t.Run("matches wrapped code", func(t *testing.T) {
		inner := New(CodeConflict, "name taken")
		outer := Wrap(inner, CodeInternal, "create failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeConflict))
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("request failed: %w", New(CodeDomainRule, "no edition"))
		assert.True(t, HasCode(err, CodeDomainRule))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestKeyOf(t *testing.T) {
	err := NewWithKey(CodeDomainRule, "NoEditionIsSetForTenant", "tenant has no edition assigned")
	assert.Equal(t, "NoEditionIsSetForTenant", KeyOf(err))
	assert.Empty(t, KeyOf(New(CodeInternal, "boom")))
}

func TestValidationCollectsAllViolations(t *testing.T) {
	var merr *multierror.Error
	merr = multierror.Append(merr, errors.New("tenancy name is required"))
	merr = multierror.Append(merr, errors.New("admin email is invalid"))

	err := Validation(merr)
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeValidation))

	got := Violations(err)
	require.Len(t, got, 2)
	assert.Contains(t, got, "tenancy name is required")
	assert.Contains(t, got, "admin email is invalid")
}

func TestValidationNilForNoViolations(t *testing.T) {
	assert.NoError(t, Validation(nil))
	assert.NoError(t, Validation(&multierror.Error{}))
}
