package models

import (
	"sisaplus/src/types"
	"time"
)

type Food struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	Title         string           `json:"title,omitempty"`
	Description   string           `json:"description,omitempty"`
	Category      string           `json:"category,omitempty"`
	Quantity      uint             `json:"quantity,omitempty"`
	PickupAddress string           `json:"pickup_address,omitempty"`
	Latitude      *float64         `json:"latitude,omitempty"`
	Longitude     *float64         `json:"longitude,omitempty"`
	PriceType     types.PriceType  `gorm:"default:'free'" json:"price_type,omitempty"`
	Price         *float32         `json:"price,omitempty"`
	Status        types.FoodStatus `gorm:"default:'available'" json:"status,omitempty"`
	ExpiresAt     time.Time        `json:"expires_at,omitempty"`
	DonorID       uint             `json:"donor_id,omitempty"`
	ViewCount     uint             `json:"view_count"`

	Donor    *User     `gorm:"foreignKey:donor_id" json:"donor,omitempty"`
	Bookings []Booking `gorm:"foreignKey:food_id" json:"bookings,omitempty"`

	types.Timestamps
}
