package models

import (
	"sisaplus/src/types"
)

// Notification is a best-effort audit row written for every dispatched
// push event. Delivery failures never fail the originating operation.
type Notification struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	RecipientID uint    `json:"recipient_id,omitempty"`
	Type        string  `json:"type,omitempty"`
	Title       string  `json:"title,omitempty"`
	Body        *string `json:"body,omitempty"`
	RefSource   string  `json:"ref_src,omitempty"`
	RefValue    string  `json:"ref_value,omitempty"`

	Recipient *User `gorm:"foreignKey:recipient_id" json:"-"`

	types.Timestamps
}
