// Package apperror holds the error taxonomy surfaced by the booking core.
// Every failure a caller can see carries a Kind, a stable Code and a
// human-readable Message; storage and network errors are wrapped as Internal
// and never expose their raw text.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	NotFound         Kind = "not_found"
	Conflict         Kind = "conflict"
	Forbidden        Kind = "forbidden"
	InvalidSignature Kind = "invalid_signature"
	Validation       Kind = "validation"
	Internal         Kind = "internal"
)

type Code string

const (
	CodeDishNotFoundInMenu          Code = "DishNotFoundInMenu"
	CodeMenuItemNotFound            Code = "MenuItemNotFound"
	CodeDishQuantityExceedsStock    Code = "DishQuantityExceedsStock"
	CodeRestaurantNotFound          Code = "RestaurantNotFound"
	CodeOrderNotFound               Code = "OrderNotFound"
	CodeBusNotFound                 Code = "BusNotFound"
	CodeSeatAlreadyBooked           Code = "SeatAlreadyBooked"
	CodeBusRouteNotFound            Code = "BusRouteNotFound"
	CodeUserNotFound                Code = "UserNotFound"
	CodeSubscriptionNotFound        Code = "SubscriptionNotFound"
	CodeParkingSpaceNotFound        Code = "ParkingSpaceNotFound"
	CodeParkingSpaceAlreadyReserved Code = "ParkingSpaceAlreadyReserved"
	CodeFacilityNotFound            Code = "FacilityNotFound"
	CodeFacilityAlreadyReserved     Code = "FacilityAlreadyReserved"
	CodeResourceUnavailable         Code = "ResourceUnavailable"
	CodeReservationNotFound         Code = "ReservationNotFound"
	CodePaymentNotFound             Code = "PaymentNotFound"
	CodeInvalidSignature            Code = "InvalidSignature"
	CodeInvalidAmount               Code = "InvalidAmount"
	CodeInvalidStartTime            Code = "InvalidStartTime"
	CodeInvalidStatusTransition     Code = "InvalidStatusTransition"
	CodeDuplicateCode               Code = "DuplicateCode"
	CodeNotOwner                    Code = "NotOwner"
	CodeUnsupportedPaymentMethod    Code = "UnsupportedPaymentMethod"
	CodeAdminRequired               Code = "AdminRequired"
	CodeInvalidRequest              Code = "InvalidRequest"
	CodeInternalError               Code = "InternalError"
)

type Error struct {
	Kind    Kind   `json:"-"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can compare against the prebuilt values below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(err error, kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Internalf(err error, format string, args ...any) *Error {
	return Wrap(err, Internal, CodeInternalError, fmt.Sprintf(format, args...))
}

var (
	ErrDishNotFoundInMenu          = New(NotFound, CodeDishNotFoundInMenu, "dish is not on this restaurant's menu")
	ErrMenuItemNotFound            = New(NotFound, CodeMenuItemNotFound, "menu item no longer exists")
	ErrDishQuantityExceedsStock    = New(Conflict, CodeDishQuantityExceedsStock, "requested quantity exceeds remaining stock")
	ErrRestaurantNotFound          = New(NotFound, CodeRestaurantNotFound, "restaurant not found")
	ErrOrderNotFound               = New(NotFound, CodeOrderNotFound, "order not found")
	ErrBusNotFound                 = New(NotFound, CodeBusNotFound, "bus not found")
	ErrSeatAlreadyBooked           = New(Conflict, CodeSeatAlreadyBooked, "seat is already booked")
	ErrBusRouteNotFound            = New(NotFound, CodeBusRouteNotFound, "bus route not found")
	ErrUserNotFound                = New(NotFound, CodeUserNotFound, "user not found")
	ErrSubscriptionNotFound        = New(NotFound, CodeSubscriptionNotFound, "subscription not found")
	ErrParkingSpaceNotFound        = New(NotFound, CodeParkingSpaceNotFound, "parking space not found")
	ErrParkingSpaceAlreadyReserved = New(Conflict, CodeParkingSpaceAlreadyReserved, "parking space is already reserved for this period")
	ErrFacilityNotFound            = New(NotFound, CodeFacilityNotFound, "facility not found")
	ErrFacilityAlreadyReserved     = New(Conflict, CodeFacilityAlreadyReserved, "facility is already reserved for this period")
	ErrResourceUnavailable         = New(Conflict, CodeResourceUnavailable, "resource is not available")
	ErrReservationNotFound         = New(NotFound, CodeReservationNotFound, "reservation not found")
	ErrPaymentNotFound             = New(NotFound, CodePaymentNotFound, "payment not found")
	ErrInvalidSignature            = New(InvalidSignature, CodeInvalidSignature, "signature verification failed")
	ErrInvalidAmount               = New(Validation, CodeInvalidAmount, "amount does not match payment")
	ErrInvalidStartTime            = New(Validation, CodeInvalidStartTime, "reservations must start on or after the next day")
	ErrInvalidStatusTransition     = New(Conflict, CodeInvalidStatusTransition, "operation not allowed in current status")
	ErrDuplicateCode               = New(Conflict, CodeDuplicateCode, "an item with the same code already exists")
	ErrNotOwner                    = New(Forbidden, CodeNotOwner, "you do not own this resource")
	ErrUnsupportedPaymentMethod    = New(Validation, CodeUnsupportedPaymentMethod, "payment method is not supported")
	ErrAdminRequired               = New(Forbidden, CodeAdminRequired, "this operation requires the admin role")
)

// From converts any error into an *Error. Errors outside the taxonomy become
// Internal with a generic message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, Internal, CodeInternalError, "something went wrong")
}

func KindOf(err error) Kind {
	if e := From(err); e != nil {
		return e.Kind
	}
	return ""
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Forbidden:
		return http.StatusForbidden
	case InvalidSignature:
		return http.StatusUnauthorized
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
