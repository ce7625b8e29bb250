package models

import (
	"sisaplus/src/types"
)

type User struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	UID      string `json:"uid,omitempty"`
	FCMToken string `json:"-"`

	Foods    []Food    `gorm:"foreignKey:donor_id" json:"foods,omitempty"`
	Bookings []Booking `gorm:"foreignKey:receiver_id" json:"bookings,omitempty"`

	types.Timestamps
}
