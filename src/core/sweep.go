package core

import (
	"context"
	"log"
	"sisaplus/src/store"
	"sisaplus/src/types"
)

// SweepExpired marks every overdue available or booked Food as expired,
// cancelling dangling bookings along the way. Runs periodically from the
// scheduler; each food goes through the same idempotent MarkExpired path
// the API uses.
func (e *Engine) SweepExpired(ctx context.Context) {
	now := e.now()
	foods, err := e.store.QueryFoods(ctx, store.FoodFilters{
		Statuses:      []types.FoodStatus{types.FOOD_AVAILABLE, types.FOOD_BOOKED},
		ExpiresBefore: &now,
	})
	if err != nil {
		log.Printf("[sweep] error querying overdue foods: %s\n", err.Error())
		return
	}
	if len(foods) == 0 {
		return
	}
	log.Printf("[sweep] found %d overdue foods\n", len(foods))
	for _, food := range foods {
		if err := e.MarkExpired(ctx, food.ID); err != nil {
			log.Printf("[sweep] error expiring Food [%d]: %s\n", food.ID, err.Error())
		}
	}
}
