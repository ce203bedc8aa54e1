package fraud

import (
	"fmt"
	"strings"

	"github.com/sgolovin/ecommerce-events/internal/models"
)

// Investigation statuses of a fraud alert.
const (
	StatusPending        = "PENDING"
	StatusUnderReview    = "UNDER_REVIEW"
	StatusConfirmedFraud = "CONFIRMED_FRAUD"
	StatusFalsePositive  = "FALSE_POSITIVE"
	StatusResolved       = "RESOLVED"
)

// transitions is the allowed investigation-status graph. RESOLVED is
// terminal.
var transitions = map[string][]string{
	StatusPending:        {StatusUnderReview, StatusFalsePositive},
	StatusUnderReview:    {StatusConfirmedFraud, StatusFalsePositive},
	StatusConfirmedFraud: {StatusResolved},
	StatusFalsePositive:  {StatusResolved},
	StatusResolved:       {},
}

// ParseInvestigationStatus maps a status string to its canonical value,
// case-insensitively. Unknown strings are a validation error.
func ParseInvestigationStatus(s string) (string, error) {
	status := strings.ToUpper(strings.TrimSpace(s))
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownStatus, s)
	}
	return status, nil
}

// CanTransition reports whether to is reachable from from in one step.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
