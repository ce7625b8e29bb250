package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sisaplus/src/config"
	"sisaplus/src/models"
	"sisaplus/src/store"
	"sisaplus/src/types"
	"sisaplus/src/utils"
	"time"
)

// PickupToken is the payload sealed into the QR code a receiver presents
// at pickup. Everything except BookingID is a display hint: live
// Booking/Food state is re-fetched at scan time and is authoritative.
type PickupToken struct {
	BookingID     uint                `json:"bookingId"`
	FoodID        uint                `json:"foodId"`
	ReceiverID    uint                `json:"receiverId"`
	Status        types.BookingStatus `json:"status"`
	PickupTime    *time.Time          `json:"pickupTime,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	FoodTitle     string              `json:"foodTitle"`
	DonorName     string              `json:"donorName"`
	PickupAddress string              `json:"pickupAddress"`
	Timestamp     time.Time           `json:"timestamp"`
}

// IssueToken builds and seals a pickup token for a confirmed Booking.
// Only the booking's receiver may request one. No state is mutated.
func (e *Engine) IssueToken(ctx context.Context, bookingID, requesterID uint) (string, *PickupToken, error) {
	booking, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, &BookingNotFoundError{BookingID: bookingID}
		}
		return "", nil, err
	}
	if booking.ReceiverID != requesterID {
		return "", nil, &UnauthorizedActionError{ActorID: requesterID, Action: "issue a pickup token for this booking"}
	}
	if booking.Status != types.BOOKING_CONFIRMED {
		return "", nil, &InvalidTransitionError{From: booking.Status, To: types.BOOKING_COMPLETED}
	}
	food := booking.Food
	if food == nil {
		f, err := e.store.GetFood(ctx, booking.FoodID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", nil, &FoodUnavailableError{FoodID: booking.FoodID, Reason: ReasonNotFound}
			}
			return "", nil, err
		}
		food = f
	}
	donorName := ""
	if food.Donor != nil {
		donorName = food.Donor.Name
	}

	token := &PickupToken{
		BookingID:     booking.ID,
		FoodID:        food.ID,
		ReceiverID:    booking.ReceiverID,
		Status:        booking.Status,
		PickupTime:    booking.PickupTime,
		CreatedAt:     booking.CreatedAt,
		FoodTitle:     food.Title,
		DonorName:     donorName,
		PickupAddress: food.PickupAddress,
		Timestamp:     e.now(),
	}
	rawBytes, err := json.Marshal(token)
	if err != nil {
		return "", nil, err
	}
	key, err := config.QRSecretKey()
	if err != nil {
		log.Printf("Could not read key from string: %s\n", err.Error())
		return "", nil, err
	}
	code, err := utils.EncryptMessage(key, string(rawBytes))
	if err != nil {
		log.Printf("Error encrypting message: %s\n", err.Error())
		return "", nil, err
	}
	return code, token, nil
}

// ValidateAndComplete decodes a scanned payload, re-validates it against
// live state and finalizes the Booking. This is the only path to the
// completed terminal state.
func (e *Engine) ValidateAndComplete(ctx context.Context, code string, scannerID uint) (*models.Booking, error) {
	key, err := config.QRSecretKey()
	if err != nil {
		return nil, &MalformedTokenError{Err: err}
	}
	message, err := utils.DecryptMessage(key, code)
	if err != nil {
		return nil, &MalformedTokenError{Err: err}
	}
	var token PickupToken
	if err := json.Unmarshal([]byte(*message), &token); err != nil {
		return nil, &MalformedTokenError{Err: err}
	}
	if token.BookingID == 0 {
		return nil, &MalformedTokenError{}
	}

	booking, err := e.store.GetBooking(ctx, token.BookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &BookingNotFoundError{BookingID: token.BookingID}
		}
		return nil, err
	}

	age := e.now().Sub(token.Timestamp)
	if age > e.tokenTTL {
		return nil, &TokenExpiredError{AgeHours: age.Hours()}
	}
	if booking.Status != types.BOOKING_CONFIRMED {
		// Covers double scans and premature scans alike.
		return nil, &InvalidTransitionError{From: booking.Status, To: types.BOOKING_COMPLETED}
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
	if scannerID != food.DonorID {
		return nil, &UnauthorizedActionError{ActorID: scannerID, Action: "confirm this pickup"}
	}

	ok, err := e.store.ConditionalUpdateBookingStatus(ctx, booking.ID, types.BOOKING_CONFIRMED, types.BOOKING_COMPLETED)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Cancelled (or completed) between the read and the swap.
		return nil, e.staleTransition(ctx, booking.ID, booking.Status, types.BOOKING_COMPLETED)
	}
	booking.Status = types.BOOKING_COMPLETED
	if _, err := e.store.ConditionalUpdateFoodStatus(ctx, food.ID, types.FOOD_BOOKED, types.FOOD_COMPLETED); err != nil {
		log.Printf("[pickup] could not finalize Food [%d]: %s\n", food.ID, err.Error())
	}
	e.invalidateListing(ctx)

	data := map[string]string{
		"booking_id": fmt.Sprint(booking.ID),
		"food_id":    fmt.Sprint(food.ID),
	}
	e.events.Emit(ctx, Event{
		Type:        EventBookingCompleted,
		RecipientID: booking.ReceiverID,
		Title:       "Pickup completed",
		Body:        fmt.Sprintf("Pickup of %s is confirmed. Enjoy!", food.Title),
		Data:        data,
	})
	e.events.Emit(ctx, Event{
		Type:        EventBookingCompleted,
		RecipientID: food.DonorID,
		Title:       "Pickup completed",
		Body:        fmt.Sprintf("%s was handed over", food.Title),
		Data:        data,
	})
	log.Printf("[pickup] Booking [%d] completed by donor [%d]\n", booking.ID, scannerID)
	return booking, nil
}

// Reject is the donor-side refusal at scan time; it is the ordinary
// cancel transition.
func (e *Engine) Reject(ctx context.Context, bookingID, scannerID uint) (*models.Booking, error) {
	return e.SetStatus(ctx, bookingID, scannerID, types.BOOKING_CANCELLED)
}
