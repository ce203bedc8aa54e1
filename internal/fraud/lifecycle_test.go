package fraud

import (
	"errors"
	"testing"

	"github.com/sgolovin/ecommerce-events/internal/models"
)

func TestParseInvestigationStatus(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"PENDING", StatusPending},
		{"pending", StatusPending},
		{" under_review ", StatusUnderReview},
		{"Confirmed_Fraud", StatusConfirmedFraud},
		{"FALSE_POSITIVE", StatusFalsePositive},
		{"resolved", StatusResolved},
	}

	for _, tc := range cases {
		got, err := ParseInvestigationStatus(tc.in)
		if err != nil {
			t.Errorf("ParseInvestigationStatus(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseInvestigationStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseInvestigationStatusUnknown(t *testing.T) {
	for _, in := range []string{"", "OPEN", "DONE", "pending_review"} {
		if _, err := ParseInvestigationStatus(in); !errors.Is(err, models.ErrUnknownStatus) {
			t.Errorf("ParseInvestigationStatus(%q): expected ErrUnknownStatus, got %v", in, err)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusPending, StatusUnderReview},
		{StatusPending, StatusFalsePositive},
		{StatusUnderReview, StatusConfirmedFraud},
		{StatusUnderReview, StatusFalsePositive},
		{StatusConfirmedFraud, StatusResolved},
		{StatusFalsePositive, StatusResolved},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to string }{
		{StatusPending, StatusConfirmedFraud},
		{StatusPending, StatusResolved},
		{StatusPending, StatusPending},
		{StatusUnderReview, StatusPending},
		{StatusConfirmedFraud, StatusFalsePositive},
		{StatusResolved, StatusPending},
		{StatusResolved, StatusUnderReview},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}
