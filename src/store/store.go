package store

import (
	"context"
	"errors"
	"fmt"
	"sisaplus/src/models"
	"sisaplus/src/types"
	"time"
)

// ErrNotFound is returned by Get* methods when no row matches.
var ErrNotFound = errors.New("record not found")

// StorageError wraps a lower-layer persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error in %s: %s", e.Op, e.Err.Error())
}

func (e *StorageError) Unwrap() error { return e.Err }

type FoodFilters struct {
	Statuses       []types.FoodStatus
	Category       string
	Search         string
	DonorID        uint
	ExcludeDonorID uint
	ExpiresAfter   *time.Time
	ExpiresBefore  *time.Time
}

type BookingFilters struct {
	FoodID     uint
	ReceiverID uint
	DonorID    uint
	Statuses   []types.BookingStatus
}

// Gateway is the persistence contract consumed by the core. Two adapters
// implement it: the GORM/Postgres store and an in-memory store used by
// tests and dependency-free local runs.
type Gateway interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserFCMToken(ctx context.Context, id uint, token string) error

	GetFood(ctx context.Context, id uint) (*models.Food, error)
	CreateFood(ctx context.Context, food *models.Food) error
	DeleteFood(ctx context.Context, id uint) error
	// ConditionalUpdateFoodStatus performs an atomic compare-and-swap on
	// Food.status and reports whether a row was updated.
	ConditionalUpdateFoodStatus(ctx context.Context, id uint, expected, next types.FoodStatus) (bool, error)
	IncrementFoodViews(ctx context.Context, id uint) error
	QueryFoods(ctx context.Context, filters FoodFilters) ([]models.Food, error)

	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id uint) error
	// ConditionalUpdateBookingStatus is the Booking counterpart of the
	// Food CAS: the status only moves when the row still holds expected.
	ConditionalUpdateBookingStatus(ctx context.Context, id uint, expected, next types.BookingStatus) (bool, error)
	QueryBookings(ctx context.Context, filters BookingFilters) ([]models.Booking, error)
	// ActiveBookingForFood returns the pending or confirmed Booking holding
	// the Food, or nil when the Food is free.
	ActiveBookingForFood(ctx context.Context, foodID uint) (*models.Booking, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
}
