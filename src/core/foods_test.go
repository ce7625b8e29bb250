package core

import (
	"context"
	"sisaplus/src/store"
	"sisaplus/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFoodValidation(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, _ := seedUsers(t, ms)

	price := float32(5)
	cases := []struct {
		name   string
		mutate func(b *types.CreateFoodRequestBody)
		field  string
	}{
		{"short title", func(b *types.CreateFoodRequestBody) { b.Title = "ab" }, "title"},
		{"short description", func(b *types.CreateFoodRequestBody) { b.Description = "too short" }, "description"},
		{"zero quantity", func(b *types.CreateFoodRequestBody) { b.Quantity = 0 }, "quantity"},
		{"oversized quantity", func(b *types.CreateFoodRequestBody) { b.Quantity = 101 }, "quantity"},
		{"short address", func(b *types.CreateFoodRequestBody) { b.PickupAddress = "x" }, "pickup_address"},
		{"paid without price", func(b *types.CreateFoodRequestBody) { b.PriceType = "paid"; b.Price = nil }, "price"},
		{"free with price", func(b *types.CreateFoodRequestBody) { b.Price = &price }, "price"},
		{"unknown price type", func(b *types.CreateFoodRequestBody) { b.PriceType = "donation" }, "price_type"},
		{"unparseable expiry", func(b *types.CreateFoodRequestBody) { b.ExpiresAt = "tomorrow" }, "expires_at"},
		{"expiry too soon", func(b *types.CreateFoodRequestBody) {
			b.ExpiresAt = time.Now().Add(10 * time.Minute).Format("2006-01-02 15:04:05 -07:00")
		}, "expires_at"},
		{"expiry too far", func(b *types.CreateFoodRequestBody) {
			b.ExpiresAt = time.Now().Add(30 * 24 * time.Hour).Format("2006-01-02 15:04:05 -07:00")
		}, "expires_at"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validFoodBody(2 * time.Hour)
			tc.mutate(body)
			_, err := e.CreateFood(context.Background(), donor.ID, body)
			require.Error(t, err)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tc.field)
		})
	}
}

func TestCreateFoodDefaults(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, _ := seedUsers(t, ms)

	food, err := e.CreateFood(context.Background(), donor.ID, validFoodBody(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, types.FOOD_AVAILABLE, food.Status)
	assert.Equal(t, donor.ID, food.DonorID)
	assert.Nil(t, food.Price)
	assert.Zero(t, food.ViewCount)
	assert.NotZero(t, food.ID)
}

func TestCreateFoodPaidKeepsPrice(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, _ := seedUsers(t, ms)

	price := float32(3.50)
	body := validFoodBody(2 * time.Hour)
	body.PriceType = string(types.PRICE_PAID)
	body.Price = &price
	food, err := e.CreateFood(context.Background(), donor.ID, body)
	require.NoError(t, err)
	require.NotNil(t, food.Price)
	assert.Equal(t, price, *food.Price)
	assert.Equal(t, types.PRICE_PAID, food.PriceType)
}

func TestListAvailableExcludesUnbookable(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)

	available := seedFood(t, ms, donor.ID, 2*time.Hour)
	booked := seedFood(t, ms, donor.ID, 2*time.Hour)
	_, err := ms.ConditionalUpdateFoodStatus(context.Background(), booked.ID, types.FOOD_AVAILABLE, types.FOOD_BOOKED)
	require.NoError(t, err)
	expired := seedFood(t, ms, donor.ID, 2*time.Hour)
	require.NoError(t, ms.SetFoodStatus(expired.ID, types.FOOD_EXPIRED))
	seedFood(t, ms, donor.ID, -time.Minute)

	foods, err := e.ListAvailable(context.Background(), types.FoodsQueryFilters{}, receiver.ID)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, available.ID, foods[0].ID)
}

func TestListAvailableExcludesOwnListings(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)

	seedFood(t, ms, donor.ID, 2*time.Hour)
	seedFood(t, ms, receiver.ID, 2*time.Hour)

	foods, err := e.ListAvailable(context.Background(), types.FoodsQueryFilters{}, donor.ID)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, receiver.ID, foods[0].DonorID)
}

func TestListAvailableSearchAndCategory(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)

	seedFood(t, ms, donor.ID, 2*time.Hour)
	seedFood(t, ms, donor.ID, 2*time.Hour)

	foods, err := e.ListAvailable(context.Background(), types.FoodsQueryFilters{Search: "catering"}, receiver.ID)
	require.NoError(t, err)
	assert.Len(t, foods, 2)

	foods, err = e.ListAvailable(context.Background(), types.FoodsQueryFilters{Search: "no such dish"}, receiver.ID)
	require.NoError(t, err)
	assert.Len(t, foods, 0)

	foods, err = e.ListAvailable(context.Background(), types.FoodsQueryFilters{Category: "cooked"}, receiver.ID)
	require.NoError(t, err)
	assert.Len(t, foods, 2)
}

func TestListAvailableServesFromCache(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)
	cache := newMapFeedCache()
	e.cache = cache

	first := seedFood(t, ms, donor.ID, 2*time.Hour)

	foods, err := e.ListAvailable(context.Background(), types.FoodsQueryFilters{}, receiver.ID)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Zero(t, cache.hits)

	// Seeded behind the engine's back, so only a live query would see it.
	seedFood(t, ms, donor.ID, 2*time.Hour)

	foods, err = e.ListAvailable(context.Background(), types.FoodsQueryFilters{}, receiver.ID)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, first.ID, foods[0].ID)
	assert.Equal(t, 1, cache.hits)
}

func TestListAvailableCacheSharedAcrossRequesters(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)
	cache := newMapFeedCache()
	e.cache = cache

	seedFood(t, ms, donor.ID, 2*time.Hour)
	mine := seedFood(t, ms, receiver.ID, 2*time.Hour)

	// Receiver's request warms the cache with the full feed.
	foods, err := e.ListAvailable(context.Background(), types.FoodsQueryFilters{}, receiver.ID)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.NotEqual(t, mine.ID, foods[0].ID)

	// The donor hits the same entry and only their own listing is trimmed.
	foods, err = e.ListAvailable(context.Background(), types.FoodsQueryFilters{}, donor.ID)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, mine.ID, foods[0].ID)
	assert.Equal(t, 1, cache.hits)
}

func TestListAvailableCacheInvalidatedOnCreate(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)
	cache := newMapFeedCache()
	e.cache = cache

	seedFood(t, ms, donor.ID, 2*time.Hour)
	_, err := e.ListAvailable(context.Background(), types.FoodsQueryFilters{}, receiver.ID)
	require.NoError(t, err)

	_, err = e.CreateFood(context.Background(), donor.ID, validFoodBody(2*time.Hour))
	require.NoError(t, err)

	foods, err := e.ListAvailable(context.Background(), types.FoodsQueryFilters{}, receiver.ID)
	require.NoError(t, err)
	assert.Len(t, foods, 2)
	assert.Zero(t, cache.hits)
}

func TestListAvailableFilteredQueriesBypassCache(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)
	cache := newMapFeedCache()
	e.cache = cache

	seedFood(t, ms, donor.ID, 2*time.Hour)

	foods, err := e.ListAvailable(context.Background(), types.FoodsQueryFilters{Category: "cooked"}, receiver.ID)
	require.NoError(t, err)
	assert.Len(t, foods, 1)
	assert.Empty(t, cache.data)
}

func TestGetFoodBumpsViewCount(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, _ := seedUsers(t, ms)
	food := seedFood(t, ms, donor.ID, 2*time.Hour)

	got, err := e.GetFood(context.Background(), food.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.ViewCount)

	got, err = e.GetFood(context.Background(), food.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), got.ViewCount)
}

func TestGetFoodNotFound(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)

	_, err := e.GetFood(context.Background(), 999)
	var uErr *FoodUnavailableError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, ReasonNotFound, uErr.Reason)
}

func TestMarkExpiredIsIdempotent(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, _ := seedUsers(t, ms)
	food := seedFood(t, ms, donor.ID, -time.Minute)

	require.NoError(t, e.MarkExpired(context.Background(), food.ID))
	got, err := ms.GetFood(context.Background(), food.ID)
	require.NoError(t, err)
	assert.Equal(t, types.FOOD_EXPIRED, got.Status)

	// second pass is a no-op
	require.NoError(t, e.MarkExpired(context.Background(), food.ID))
	got, err = ms.GetFood(context.Background(), food.ID)
	require.NoError(t, err)
	assert.Equal(t, types.FOOD_EXPIRED, got.Status)
}

func TestMarkExpiredSkipsFutureExpiry(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, _ := seedUsers(t, ms)
	food := seedFood(t, ms, donor.ID, 2*time.Hour)

	require.NoError(t, e.MarkExpired(context.Background(), food.ID))
	got, err := ms.GetFood(context.Background(), food.ID)
	require.NoError(t, err)
	assert.Equal(t, types.FOOD_AVAILABLE, got.Status)
}

func TestMarkExpiredCancelsDanglingBooking(t *testing.T) {
	ms := store.NewMemoryStore()
	e, d := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)
	food := seedFood(t, ms, donor.ID, time.Hour)

	booking, err := e.CreateBooking(context.Background(), food.ID, receiver.ID, nil, nil)
	require.NoError(t, err)

	e.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, e.MarkExpired(context.Background(), food.ID))

	got, err := ms.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_CANCELLED, got.Status)

	expiredEvents := d.byType(EventFoodExpired)
	require.Len(t, expiredEvents, 2)
	recipients := []uint{expiredEvents[0].RecipientID, expiredEvents[1].RecipientID}
	assert.Contains(t, recipients, donor.ID)
	assert.Contains(t, recipients, receiver.ID)
}

func TestSweepExpired(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, _ := seedUsers(t, ms)

	overdue := seedFood(t, ms, donor.ID, -time.Minute)
	fresh := seedFood(t, ms, donor.ID, 2*time.Hour)

	e.SweepExpired(context.Background())

	got, err := ms.GetFood(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, types.FOOD_EXPIRED, got.Status)

	got, err = ms.GetFood(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, types.FOOD_AVAILABLE, got.Status)
}

func TestDeleteFoodOwnerOnly(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)
	food := seedFood(t, ms, donor.ID, 2*time.Hour)

	err := e.DeleteFood(context.Background(), food.ID, receiver.ID)
	var uErr *UnauthorizedActionError
	require.ErrorAs(t, err, &uErr)

	require.NoError(t, e.DeleteFood(context.Background(), food.ID, donor.ID))
	_, err = ms.GetFood(context.Background(), food.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteFoodRefusedWithActiveBooking(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := newTestEngine(ms)
	donor, receiver := seedUsers(t, ms)
	food := seedFood(t, ms, donor.ID, 2*time.Hour)

	booking, err := e.CreateBooking(context.Background(), food.ID, receiver.ID, nil, nil)
	require.NoError(t, err)

	err = e.DeleteFood(context.Background(), food.ID, donor.ID)
	var fErr *FoodUnavailableError
	require.ErrorAs(t, err, &fErr)
	assert.Equal(t, ReasonAlreadyBooked, fErr.Reason)

	// once the booking is cancelled the listing can go
	_, err = e.SetStatus(context.Background(), booking.ID, donor.ID, types.BOOKING_CANCELLED)
	require.NoError(t, err)
	require.NoError(t, e.DeleteFood(context.Background(), food.ID, donor.ID))
}
