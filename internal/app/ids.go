package app

import (
	"strings"

	"github.com/google/uuid"
)

func newUUID() string {
	return uuid.NewString()
}

// newCode returns a short human-readable record code such as RSV-1A2B3C4D.
func newCode(prefix string) string {
	id := uuid.New()
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

const (
	codePrefixReservation = "RSV"
	codePrefixBooking     = "BKG"
	codePrefixDeposit     = "DEP"
)
