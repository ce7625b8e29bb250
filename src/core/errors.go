package core

import (
	"fmt"
	"sisaplus/src/types"
	"sort"
	"strings"
)

// UnavailableReason distinguishes why a Food could not be booked, so the
// client can show "already taken" instead of a generic failure.
type UnavailableReason string

const (
	ReasonNotFound      UnavailableReason = "not_found"
	ReasonAlreadyBooked UnavailableReason = "already_booked"
	ReasonExpired       UnavailableReason = "expired"
	ReasonSelfBooking   UnavailableReason = "self_booking"
)

type FoodUnavailableError struct {
	FoodID uint
	Reason UnavailableReason
}

func (e *FoodUnavailableError) Error() string {
	return fmt.Sprintf("food [%d] is not available: %s", e.FoodID, e.Reason)
}

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

type InvalidTransitionError struct {
	From types.BookingStatus
	To   types.BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

type UnauthorizedActionError struct {
	ActorID uint
	Action  string
}

func (e *UnauthorizedActionError) Error() string {
	return fmt.Sprintf("user [%d] is not allowed to %s", e.ActorID, e.Action)
}

type MalformedTokenError struct {
	Err error
}

func (e *MalformedTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed pickup token: %s", e.Err.Error())
	}
	return "malformed pickup token"
}

func (e *MalformedTokenError) Unwrap() error { return e.Err }

type TokenExpiredError struct {
	AgeHours float64
}

func (e *TokenExpiredError) Error() string {
	return fmt.Sprintf("pickup token expired (age %.1fh)", e.AgeHours)
}

type BookingNotFoundError struct {
	BookingID uint
}

func (e *BookingNotFoundError) Error() string {
	return fmt.Sprintf("booking [%d] not found", e.BookingID)
}
