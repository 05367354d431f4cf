package booking

import (
	"fmt"

	"github.com/slotwise/scheduling-api/internal/model"
	apperrors "github.com/slotwise/scheduling-api/pkg/errors"
)

// legalTransitions is the full lifecycle: PENDING_PAYMENT is the initial
// state, CANCELLED and COMPLETED are terminal. A booking must be confirmed
// before it can complete.
var legalTransitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusPendingPayment: {model.BookingStatusConfirmed, model.BookingStatusCancelled},
	model.BookingStatusConfirmed:      {model.BookingStatusCompleted, model.BookingStatusCancelled},
	model.BookingStatusCancelled:      {},
	model.BookingStatusCompleted:      {},
}

// ValidateTransition returns an error unless from → to is a legal transition.
func ValidateTransition(from, to model.BookingStatus) error {
	if !to.Valid() {
		return apperrors.Validation(fmt.Sprintf("unknown status %q", to), nil)
	}
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	if from.Terminal() {
		return apperrors.IllegalTransition(fmt.Sprintf("booking is already %s", from))
	}
	return apperrors.IllegalTransition(fmt.Sprintf("cannot transition from %s to %s", from, to))
}
