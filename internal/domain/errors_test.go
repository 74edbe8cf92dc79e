package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"not available", ErrUnitNotAvailable, KindUnitNotAvailable},
		{"wrapped not available", fmt.Errorf("%w: reserved by another agent", ErrUnitNotAvailable), KindUnitNotAvailable},
		{"cas lost", ErrHoldConflict, KindHoldConflict},
		{"hold exists", ErrHoldAlreadyExists, KindHoldAlreadyExists},
		{"invalid transition", fmt.Errorf("approve: %w", ErrInvalidTransition), KindInvalidTransition},
		{"unit missing", ErrUnitNotFound, KindNotFound},
		{"deposit missing", ErrDepositNotFound, KindNotFound},
		{"expired", ErrHoldExpired, KindExpiredHold},
		{"forbidden", ErrForbidden, KindForbidden},
		{"validation", ErrInvalidAmount, KindValidation},
		{"persistence", errors.New("connection refused"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
