package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sisaplus/src/config"
	"sisaplus/src/models"
	"sisaplus/src/store"
	"sisaplus/src/types"
	"strings"
	"time"
)

const (
	minTitleLen       = 3
	minDescriptionLen = 10
	minAddressLen     = 5
	maxQuantity       = 100
)

// CreateFood validates the request fields and persists a new available
// listing for the donor. Field violations are collected into a single
// ValidationError so the client can surface them per input.
func (e *Engine) CreateFood(ctx context.Context, donorID uint, body *types.CreateFoodRequestBody) (*models.Food, error) {
	fields := map[string]string{}
	now := e.now()

	if len(strings.TrimSpace(body.Title)) < minTitleLen {
		fields["title"] = fmt.Sprintf("must be at least %d characters", minTitleLen)
	}
	if len(strings.TrimSpace(body.Description)) < minDescriptionLen {
		fields["description"] = fmt.Sprintf("must be at least %d characters", minDescriptionLen)
	}
	if body.Quantity < 1 || body.Quantity > maxQuantity {
		fields["quantity"] = fmt.Sprintf("must be between 1 and %d", maxQuantity)
	}
	if len(strings.TrimSpace(body.PickupAddress)) < minAddressLen {
		fields["pickup_address"] = fmt.Sprintf("must be at least %d characters", minAddressLen)
	}

	priceType := types.PriceType(body.PriceType)
	switch priceType {
	case types.PRICE_PAID:
		if body.Price == nil || *body.Price <= 0 {
			fields["price"] = "must be set and greater than zero for paid listings"
		}
	case types.PRICE_FREE:
		if body.Price != nil && *body.Price > 0 {
			fields["price"] = "must not be set for free listings"
		}
	default:
		fields["price_type"] = "must be one of: free, paid"
	}

	expiresAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.ExpiresAt)
	if err != nil {
		fields["expires_at"] = fmt.Sprintf("must match format %s", config.TIME_PARSE_FORMAT)
	} else {
		if expiresAt.Before(now.Add(e.minHorizon)) {
			fields["expires_at"] = fmt.Sprintf("must be at least %s from now", e.minHorizon)
		} else if expiresAt.After(now.Add(e.maxHorizon)) {
			fields["expires_at"] = fmt.Sprintf("must be within %s from now", e.maxHorizon)
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	food := &models.Food{
		Title:         strings.TrimSpace(body.Title),
		Description:   strings.TrimSpace(body.Description),
		Category:      body.Category,
		Quantity:      body.Quantity,
		PickupAddress: strings.TrimSpace(body.PickupAddress),
		Latitude:      body.Latitude,
		Longitude:     body.Longitude,
		PriceType:     priceType,
		Price:         body.Price,
		Status:        types.FOOD_AVAILABLE,
		ExpiresAt:     expiresAt,
		DonorID:       donorID,
		ViewCount:     0,
	}
	if priceType == types.PRICE_FREE {
		food.Price = nil
	}
	if err := e.store.CreateFood(ctx, food); err != nil {
		return nil, err
	}
	e.invalidateListing(ctx)
	log.Printf("[foods] created Food [%d] by donor [%d], expires %s\n", food.ID, donorID, food.ExpiresAt)
	return food, nil
}

// ListAvailable returns available, unexpired listings, newest first.
// The plain feed is served read-through from the cache: the cached
// entry holds the full available feed, and the requesting donor's own
// listings are trimmed after the read so every caller shares one key.
func (e *Engine) ListAvailable(ctx context.Context, filters types.FoodsQueryFilters, excludeDonorID uint) ([]models.Food, error) {
	now := e.now()
	cacheable := filters.Category == "" && filters.Search == ""
	if cacheable {
		if foods, ok := e.cachedListing(ctx); ok {
			return withoutDonor(foods, excludeDonorID), nil
		}
	}
	query := store.FoodFilters{
		Statuses:     []types.FoodStatus{types.FOOD_AVAILABLE},
		Category:     filters.Category,
		Search:       filters.Search,
		ExpiresAfter: &now,
	}
	if !cacheable {
		query.ExcludeDonorID = excludeDonorID
	}
	foods, err := e.store.QueryFoods(ctx, query)
	if err != nil {
		return nil, err
	}
	if cacheable {
		e.storeListing(ctx, foods)
		foods = withoutDonor(foods, excludeDonorID)
	}
	return foods, nil
}

func withoutDonor(foods []models.Food, donorID uint) []models.Food {
	if donorID == 0 {
		return foods
	}
	out := make([]models.Food, 0, len(foods))
	for _, f := range foods {
		if f.DonorID != donorID {
			out = append(out, f)
		}
	}
	return out
}

// ListForDonorOwner returns the donor's own listings regardless of status.
func (e *Engine) ListForDonorOwner(ctx context.Context, donorID uint) ([]models.Food, error) {
	return e.store.QueryFoods(ctx, store.FoodFilters{DonorID: donorID})
}

// GetFood fetches a single listing and bumps its view counter.
func (e *Engine) GetFood(ctx context.Context, id uint) (*models.Food, error) {
	food, err := e.store.GetFood(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &FoodUnavailableError{FoodID: id, Reason: ReasonNotFound}
		}
		return nil, err
	}
	if err := e.store.IncrementFoodViews(ctx, id); err != nil {
		log.Printf("[foods] could not bump view count for Food [%d]: %s\n", id, err.Error())
	} else {
		food.ViewCount++
	}
	return food, nil
}

// MarkExpired flips an overdue available or booked Food to expired.
// Idempotent: any other state, or an expiry still in the future, is a no-op.
func (e *Engine) MarkExpired(ctx context.Context, id uint) error {
	food, err := e.store.GetFood(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if !food.ExpiresAt.Before(e.now()) {
		return nil
	}
	if food.Status != types.FOOD_AVAILABLE && food.Status != types.FOOD_BOOKED {
		return nil
	}
	wasBooked := food.Status == types.FOOD_BOOKED
	ok, err := e.store.ConditionalUpdateFoodStatus(ctx, id, food.Status, types.FOOD_EXPIRED)
	if err != nil {
		return err
	}
	if !ok {
		// Lost the race to a concurrent transition; the sweep will revisit.
		return nil
	}
	e.invalidateListing(ctx)
	if wasBooked {
		e.cancelDanglingBooking(ctx, food)
	}
	log.Printf("[foods] Food [%d] expired\n", id)
	return nil
}

// cancelDanglingBooking cancels the active booking left on a Food that
// expired before pickup, notifying both parties.
func (e *Engine) cancelDanglingBooking(ctx context.Context, food *models.Food) {
	booking, err := e.store.ActiveBookingForFood(ctx, food.ID)
	if err != nil || booking == nil {
		return
	}
	ok, err := e.store.ConditionalUpdateBookingStatus(ctx, booking.ID, booking.Status, types.BOOKING_CANCELLED)
	if err != nil {
		log.Printf("[foods] could not cancel booking [%d] for expired Food [%d]: %s\n", booking.ID, food.ID, err.Error())
		return
	}
	if !ok {
		// Already moved by a concurrent transition.
		return
	}
	bookingRef := fmt.Sprint(booking.ID)
	e.events.Emit(ctx, Event{
		Type:        EventFoodExpired,
		RecipientID: booking.ReceiverID,
		Title:       "Listing expired",
		Body:        fmt.Sprintf("%s expired before pickup and your booking was cancelled", food.Title),
		Data:        map[string]string{"booking_id": bookingRef, "food_id": fmt.Sprint(food.ID)},
	})
	e.events.Emit(ctx, Event{
		Type:        EventFoodExpired,
		RecipientID: food.DonorID,
		Title:       "Listing expired",
		Body:        fmt.Sprintf("%s expired with a pending pickup", food.Title),
		Data:        map[string]string{"booking_id": bookingRef, "food_id": fmt.Sprint(food.ID)},
	})
}

// DeleteFood removes a listing. Owner-only; refused while any
// non-cancelled booking still references the Food.
func (e *Engine) DeleteFood(ctx context.Context, id uint, actorID uint) error {
	food, err := e.store.GetFood(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &FoodUnavailableError{FoodID: id, Reason: ReasonNotFound}
		}
		return err
	}
	if food.DonorID != actorID {
		return &UnauthorizedActionError{ActorID: actorID, Action: "delete this food"}
	}
	bookings, err := e.store.QueryBookings(ctx, store.BookingFilters{FoodID: id})
	if err != nil {
		return err
	}
	for _, b := range bookings {
		if b.Status != types.BOOKING_CANCELLED {
			return &FoodUnavailableError{FoodID: id, Reason: ReasonAlreadyBooked}
		}
	}
	if err := e.store.DeleteFood(ctx, id); err != nil {
		return err
	}
	e.invalidateListing(ctx)
	return nil
}
