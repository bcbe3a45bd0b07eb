package orders

import (
	"fmt"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

// FulfillmentEvent drives the fulfillment state machine.
type FulfillmentEvent string

const (
	EventPaymentConfirmed FulfillmentEvent = "payment_confirmed"
	EventStartProcessing  FulfillmentEvent = "start_processing"
	EventShip             FulfillmentEvent = "ship"
	EventDeliver          FulfillmentEvent = "deliver"
	EventCancel           FulfillmentEvent = "cancel"
)

// Transition returns the next fulfillment status for the given event, or a
// state-conflict error when the move is not legal. It is the single source of
// truth for fulfillment moves; there is no patch-on-read auto-fixing of orders
// that got into an inconsistent state.
func Transition(current enums.FulfillmentStatus, event FulfillmentEvent) (enums.FulfillmentStatus, error) {
	switch current {
	case enums.FulfillmentStatusNone:
		switch event {
		case EventPaymentConfirmed:
			return enums.FulfillmentStatusDelivered, nil
		case EventStartProcessing:
			return enums.FulfillmentStatusProcessing, nil
		case EventCancel:
			return enums.FulfillmentStatusCanceled, nil
		}
	case enums.FulfillmentStatusProcessing:
		switch event {
		case EventPaymentConfirmed:
			return enums.FulfillmentStatusDelivered, nil
		case EventShip:
			return enums.FulfillmentStatusShipped, nil
		case EventCancel:
			return enums.FulfillmentStatusCanceled, nil
		}
	case enums.FulfillmentStatusShipped:
		if event == EventDeliver {
			return enums.FulfillmentStatusDelivered, nil
		}
	}
	return current, pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("fulfillment event %q not allowed from status %q", event, current))
}
