package models

import (
	"sisaplus/src/types"
	"time"
)

type Booking struct {
	ID         uint                `gorm:"primarykey" json:"id"`
	FoodID     uint                `json:"food_id,omitempty"`
	ReceiverID uint                `json:"receiver_id,omitempty"`
	Status     types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	Message    *string             `json:"message,omitempty"`
	PickupTime *time.Time          `json:"pickup_time,omitempty"`

	Food     *Food `gorm:"foreignKey:food_id" json:"food,omitempty"`
	Receiver *User `gorm:"foreignKey:receiver_id" json:"receiver,omitempty"`

	types.Timestamps
}
