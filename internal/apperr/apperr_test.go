package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Marga-Ghale/ora-members-backend/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("plain kinded error", func(t *testing.T) {
		err := apperr.Forbidden("admin role required")
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("wrapped kinded error", func(t *testing.T) {
		inner := apperr.Conflict("user is already a member")
		err := fmt.Errorf("invite failed: %w", inner)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("unclassified error defaults to internal", func(t *testing.T) {
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("boom")))
	})
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.Internal("billing call failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "billing call failed")
	assert.Contains(t, err.Error(), "connection refused")
}
