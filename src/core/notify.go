package core

import (
	"context"
	"log"
	"sisaplus/src/lib"
	"sisaplus/src/models"
	"sisaplus/src/store"

	"firebase.google.com/go/v4/messaging"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCompleted = "booking_completed"
	EventFoodExpired      = "food_expired"
)

type Event struct {
	Type        string
	RecipientID uint
	Title       string
	Body        string
	Data        map[string]string
}

// Dispatcher delivers status-change events to users. Emit is
// fire-and-forget: a delivery failure must never fail the operation
// that produced the event.
type Dispatcher interface {
	Emit(ctx context.Context, ev Event)
}

// FCMDispatcher sends events as FCM data messages to the recipient's
// registered device token and writes a best-effort Notification row.
type FCMDispatcher struct {
	store store.Gateway
}

func NewFCMDispatcher(g store.Gateway) *FCMDispatcher {
	return &FCMDispatcher{store: g}
}

func (d *FCMDispatcher) Emit(ctx context.Context, ev Event) {
	go d.send(context.WithoutCancel(ctx), ev)
}

func (d *FCMDispatcher) send(ctx context.Context, ev Event) {
	body := ev.Body
	n := &models.Notification{
		RecipientID: ev.RecipientID,
		Type:        ev.Type,
		Title:       ev.Title,
		Body:        &body,
		RefSource:   "bookings",
		RefValue:    ev.Data["booking_id"],
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		log.Printf("[FCM] could not persist notification: %s\n", err.Error())
	}

	user, err := d.store.GetUser(ctx, ev.RecipientID)
	if err != nil {
		log.Printf("[FCM] could not resolve recipient [%d]: %s\n", ev.RecipientID, err.Error())
		return
	}
	if user.FCMToken == "" {
		log.Printf("[FCM] recipient [%d] has no registered device token. Skipping\n", ev.RecipientID)
		return
	}
	fcm, err := lib.GetFirebaseMessaging()
	if err != nil {
		log.Printf("[FCM] error retrieving messaging client: %s\n", err.Error())
		return
	}
	data := map[string]string{
		"type":  ev.Type,
		"title": ev.Title,
		"body":  ev.Body,
	}
	for k, v := range ev.Data {
		data[k] = v
	}
	res, err := fcm.Send(ctx, &messaging.Message{
		Token: user.FCMToken,
		Data:  data,
	})
	if err != nil {
		log.Printf("[FCM] error sending notification message: %s\n", err.Error())
		return
	}
	log.Printf("[FCM] notification sent to user [%d]: %s\n", ev.RecipientID, res)
}

// NopDispatcher discards events. Used when push delivery is not configured.
type NopDispatcher struct{}

func (NopDispatcher) Emit(ctx context.Context, ev Event) {}
