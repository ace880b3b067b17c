package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHypothesisRejectsBadStatus(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	errs := r.Validate("hypothesis", []byte(`{"content": "x", "status": "not_a_status"}`))
	assert.NotEmpty(t, errs)
}

func TestValidateHypothesisAcceptsUnknownFields(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	errs := r.Validate("hypothesis", []byte(`{"content": "x", "status": "unverified", "extra_field": 1}`))
	assert.Empty(t, errs)
}

func TestValidateUnknownEntityKindPasses(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	errs := r.Validate("indexed_package", []byte(`{"anything": true}`))
	assert.Empty(t, errs)
}

func TestValidateMissingRequiredField(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	errs := r.Validate("issue", []byte(`{"title": "missing status"}`))
	assert.NotEmpty(t, errs)
}
