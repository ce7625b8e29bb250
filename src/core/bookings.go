package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sisaplus/src/models"
	"sisaplus/src/store"
	"sisaplus/src/types"
	"time"
)

// transitions is the allowed edge set of the Booking state machine.
// completed is deliberately absent from every target list here: the only
// path to it is pickup verification.
var transitions = map[types.BookingStatus][]types.BookingStatus{
	types.BOOKING_PENDING:   {types.BOOKING_CONFIRMED, types.BOOKING_CANCELLED},
	types.BOOKING_CONFIRMED: {types.BOOKING_CANCELLED},
}

func transitionAllowed(from, to types.BookingStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// CreateBooking claims an available Food for the receiver. The Food's
// available→booked compare-and-swap is the atomic gate: the Booking row
// is inserted only after the swap succeeds, and rolled back if the
// insert fails. A lost race surfaces as FoodUnavailableError, never a
// generic failure.
func (e *Engine) CreateBooking(ctx context.Context, foodID, receiverID uint, message *string, pickupTime *time.Time) (*models.Booking, error) {
	food, err := e.store.GetFood(ctx, foodID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &FoodUnavailableError{FoodID: foodID, Reason: ReasonNotFound}
		}
		return nil, err
	}
	if food.DonorID == receiverID {
		return nil, &FoodUnavailableError{FoodID: foodID, Reason: ReasonSelfBooking}
	}
	if food.ExpiresAt.Before(e.now()) {
		return nil, &FoodUnavailableError{FoodID: foodID, Reason: ReasonExpired}
	}
	if food.Status != types.FOOD_AVAILABLE {
		reason := ReasonAlreadyBooked
		if food.Status == types.FOOD_EXPIRED {
			reason = ReasonExpired
		}
		return nil, &FoodUnavailableError{FoodID: foodID, Reason: reason}
	}

	ok, err := e.store.ConditionalUpdateFoodStatus(ctx, foodID, types.FOOD_AVAILABLE, types.FOOD_BOOKED)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &FoodUnavailableError{FoodID: foodID, Reason: ReasonAlreadyBooked}
	}

	booking := &models.Booking{
		FoodID:     foodID,
		ReceiverID: receiverID,
		Status:     types.BOOKING_PENDING,
		Message:    message,
		PickupTime: pickupTime,
	}
	if err := e.store.CreateBooking(ctx, booking); err != nil {
		if _, rbErr := e.store.ConditionalUpdateFoodStatus(ctx, foodID, types.FOOD_BOOKED, types.FOOD_AVAILABLE); rbErr != nil {
			log.Printf("[bookings] rollback of Food [%d] failed: %s\n", foodID, rbErr.Error())
		}
		return nil, err
	}
	e.invalidateListing(ctx)

	e.events.Emit(ctx, Event{
		Type:        EventBookingCreated,
		RecipientID: food.DonorID,
		Title:       "New booking request",
		Body:        fmt.Sprintf("Someone wants to pick up %s", food.Title),
		Data: map[string]string{
			"booking_id": fmt.Sprint(booking.ID),
			"food_id":    fmt.Sprint(foodID),
		},
	})
	log.Printf("[bookings] created Booking [%d] on Food [%d] by receiver [%d]\n", booking.ID, foodID, receiverID)
	return booking, nil
}

// SetStatus drives the general Booking transitions: donor confirms or
// cancels, receiver cancels while pending. completed is always rejected
// here; only ValidateAndComplete reaches it.
func (e *Engine) SetStatus(ctx context.Context, bookingID, actorID uint, newStatus types.BookingStatus) (*models.Booking, error) {
	booking, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &BookingNotFoundError{BookingID: bookingID}
		}
		return nil, err
	}
	if newStatus == types.BOOKING_COMPLETED {
		return nil, &InvalidTransitionError{From: booking.Status, To: newStatus}
	}
	if !transitionAllowed(booking.Status, newStatus) {
		return nil, &InvalidTransitionError{From: booking.Status, To: newStatus}
	}

	food := booking.Food
	if food == nil {
		f, err := e.store.GetFood(ctx, booking.FoodID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &FoodUnavailableError{FoodID: booking.FoodID, Reason: ReasonNotFound}
			}
			return nil, err
		}
		food = f
	}

	isDonor := actorID == food.DonorID
	isReceiver := actorID == booking.ReceiverID
	switch newStatus {
	case types.BOOKING_CONFIRMED:
		if !isDonor {
			return nil, &UnauthorizedActionError{ActorID: actorID, Action: "confirm this booking"}
		}
	case types.BOOKING_CANCELLED:
		receiverMayCancel := isReceiver && booking.Status == types.BOOKING_PENDING
		if !isDonor && !receiverMayCancel {
			return nil, &UnauthorizedActionError{ActorID: actorID, Action: "cancel this booking"}
		}
	}

	ok, err := e.store.ConditionalUpdateBookingStatus(ctx, bookingID, booking.Status, newStatus)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else moved the Booking between the read and the swap.
		return nil, e.staleTransition(ctx, bookingID, booking.Status, newStatus)
	}
	booking.Status = newStatus

	if newStatus == types.BOOKING_CANCELLED {
		// Release the Food, unless it expired while booked.
		next := types.FOOD_AVAILABLE
		if food.ExpiresAt.Before(e.now()) {
			next = types.FOOD_EXPIRED
		}
		if _, err := e.store.ConditionalUpdateFoodStatus(ctx, food.ID, types.FOOD_BOOKED, next); err != nil {
			log.Printf("[bookings] could not release Food [%d]: %s\n", food.ID, err.Error())
		}
		e.invalidateListing(ctx)
	}

	e.emitStatusChange(ctx, booking, food, actorID)
	log.Printf("[bookings] Booking [%d] is now %s\n", bookingID, newStatus)
	return booking, nil
}

// staleTransition builds the InvalidTransitionError for a lost
// status swap, re-reading the row so the error names the status the
// concurrent writer left behind.
func (e *Engine) staleTransition(ctx context.Context, bookingID uint, from, to types.BookingStatus) error {
	if current, err := e.store.GetBooking(ctx, bookingID); err == nil {
		from = current.Status
	}
	return &InvalidTransitionError{From: from, To: to}
}

// DeleteBooking removes a terminal booking from the receiver's history.
// Active bookings must be cancelled through SetStatus first so the Food
// release and notifications still happen.
func (e *Engine) DeleteBooking(ctx context.Context, bookingID, actorID uint) error {
	booking, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &BookingNotFoundError{BookingID: bookingID}
		}
		return err
	}
	if booking.ReceiverID != actorID {
		return &UnauthorizedActionError{ActorID: actorID, Action: "delete this booking"}
	}
	if booking.Status != types.BOOKING_CANCELLED && booking.Status != types.BOOKING_COMPLETED {
		return &UnauthorizedActionError{ActorID: actorID, Action: "delete an active booking"}
	}
	if err := e.store.DeleteBooking(ctx, bookingID); err != nil {
		return err
	}
	log.Printf("[bookings] Booking [%d] deleted by receiver [%d]\n", bookingID, actorID)
	return nil
}

func (e *Engine) emitStatusChange(ctx context.Context, booking *models.Booking, food *models.Food, actorID uint) {
	data := map[string]string{
		"booking_id": fmt.Sprint(booking.ID),
		"food_id":    fmt.Sprint(food.ID),
	}
	switch booking.Status {
	case types.BOOKING_CONFIRMED:
		e.events.Emit(ctx, Event{
			Type:        EventBookingConfirmed,
			RecipientID: booking.ReceiverID,
			Title:       "Booking confirmed",
			Body:        fmt.Sprintf("Your booking for %s was confirmed", food.Title),
			Data:        data,
		})
	case types.BOOKING_CANCELLED:
		recipient := booking.ReceiverID
		if actorID == booking.ReceiverID {
			recipient = food.DonorID
		}
		e.events.Emit(ctx, Event{
			Type:        EventBookingCancelled,
			RecipientID: recipient,
			Title:       "Booking cancelled",
			Body:        fmt.Sprintf("The booking for %s was cancelled", food.Title),
			Data:        data,
		})
	}
}

// foodNotFoundPlaceholder substitutes a deleted Food reference in
// booking lists so a single dangling row never fails the whole view.
func foodNotFoundPlaceholder(foodID uint) *models.Food {
	return &models.Food{
		ID:     foodID,
		Title:  "Food not found",
		Status: types.FOOD_CANCELLED,
	}
}

// ListForReceiver returns the user's bookings with their Food snapshots,
// newest first.
func (e *Engine) ListForReceiver(ctx context.Context, userID uint) ([]models.Booking, error) {
	bookings, err := e.store.QueryBookings(ctx, store.BookingFilters{ReceiverID: userID})
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		if bookings[i].Food == nil {
			bookings[i].Food = foodNotFoundPlaceholder(bookings[i].FoodID)
		}
	}
	return bookings, nil
}

// ListForDonor returns bookings received on the donor's listings,
// newest first.
func (e *Engine) ListForDonor(ctx context.Context, userID uint) ([]models.Booking, error) {
	bookings, err := e.store.QueryBookings(ctx, store.BookingFilters{DonorID: userID})
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		if bookings[i].Food == nil {
			bookings[i].Food = foodNotFoundPlaceholder(bookings[i].FoodID)
		}
	}
	return bookings, nil
}
