package types

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type FoodStatus string

const (
	FOOD_AVAILABLE FoodStatus = "available"
	FOOD_BOOKED    FoodStatus = "booked"
	FOOD_COMPLETED FoodStatus = "completed"
	FOOD_EXPIRED   FoodStatus = "expired"
	FOOD_CANCELLED FoodStatus = "cancelled"
)

type PriceType string

const (
	PRICE_FREE PriceType = "free"
	PRICE_PAID PriceType = "paid"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_COMPLETED BookingStatus = "completed"
	BOOKING_CANCELLED BookingStatus = "cancelled"
)

// ActiveBookingStatuses are the states in which a Booking still holds its Food.
var ActiveBookingStatuses = []BookingStatus{BOOKING_PENDING, BOOKING_CONFIRMED}

type CreateFoodRequestBody struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	Category      string   `json:"category" binding:"required"`
	Quantity      uint     `json:"quantity" binding:"required"`
	PickupAddress string   `json:"pickup_address" binding:"required"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	PriceType     string   `json:"price_type" binding:"required,oneof=free paid"`
	Price         *float32 `json:"price,omitempty"`
	ExpiresAt     string   `json:"expires_at" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
}

type FoodsQueryFilters struct {
	Category string `form:"category"`
	Search   string `form:"search"`
}

type CreateBookingRequestBody struct {
	FoodID     uint    `json:"food_id" binding:"required"`
	Message    *string `json:"message,omitempty"`
	PickupTime *string `json:"pickup_time,omitempty" binding:"omitempty,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
}

type UpdateBookingStatusRequestBody struct {
	Status string `json:"status" binding:"required,oneof=confirmed cancelled"`
}

type ScanPickupRequestBody struct {
	Code string `json:"code" binding:"required"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type RegisterUserRequestBody struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

type LoginRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type UpdateFCMTokenRequestBody struct {
	Token string `json:"token" binding:"required"`
}

type Claims struct {
	Username string `json:"username"`
	UID      string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}
