package types

import (
	"slices"
	"time"
)

type AppEnv string

const (
	Local      AppEnv = "local"
	Test       AppEnv = "test"
	Production AppEnv = "production"
)

type Role string

const (
	ROLE_ADMIN Role = "admin"
	ROLE_USER  Role = "user"
)

// AuthContext is the authenticated caller attached to every request by the
// auth middleware.
type AuthContext struct {
	UID         string   `json:"uid"`
	SiteID      string   `json:"site_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func (a AuthContext) IsAdmin() bool {
	return slices.Contains(a.Roles, string(ROLE_ADMIN))
}

func (a AuthContext) CanAccess(ownerID string) bool {
	return a.UID == ownerID || a.IsAdmin()
}

type Rank string

const (
	RANK_BRONZE  Rank = "bronze"
	RANK_SILVER  Rank = "silver"
	RANK_GOLD    Rank = "gold"
	RANK_DIAMOND Rank = "diamond"
)

type OrderStatus string

const (
	ORDER_PENDING   OrderStatus = "PENDING"
	ORDER_PAID      OrderStatus = "PAID"
	ORDER_CANCELLED OrderStatus = "CANCELLED"
)

// ReservationStatus is shared by bus subscriptions, parking subscriptions and
// facility reservations.
type ReservationStatus string

const (
	RESERVATION_PENDING   ReservationStatus = "PENDING"
	RESERVATION_RESERVED  ReservationStatus = "RESERVED"
	RESERVATION_CONFIRMED ReservationStatus = "CONFIRMED"
	RESERVATION_CANCELLED ReservationStatus = "CANCELLED"
	RESERVATION_EXPIRED   ReservationStatus = "EXPIRED"
)

// Active reports whether the record still holds its resource.
func (s ReservationStatus) Active() bool {
	return s == RESERVATION_PENDING || s == RESERVATION_RESERVED || s == RESERVATION_CONFIRMED
}

type PaymentStatus string

const (
	PAYMENT_PENDING PaymentStatus = "pending"
	PAYMENT_SUCCESS PaymentStatus = "success"
	PAYMENT_FAILED  PaymentStatus = "failed"

	// PAYMENT_CANCELLED is a pending payment voided on our side: superseded
	// by a newer attempt or its record was closed.
	PAYMENT_CANCELLED PaymentStatus = "cancelled"

	// PAYMENT_REFUND_REQUIRED means the provider took money for a record
	// that can no longer be paid.
	PAYMENT_REFUND_REQUIRED PaymentStatus = "refund_required"
)

type ResourceStatus string

const (
	RESOURCE_AVAILABLE   ResourceStatus = "available"
	RESOURCE_MAINTENANCE ResourceStatus = "maintenance"
)

type FacilityType string

const (
	FACILITY_ROOM  FacilityType = "room"
	FACILITY_COURT FacilityType = "court"
	FACILITY_GYM   FacilityType = "gym"
	FACILITY_POOL  FacilityType = "pool"
)

type PaymentMethod string

const (
	PAYMENT_VNPAY  PaymentMethod = "vnpay"
	PAYMENT_MOMO   PaymentMethod = "momo"
	PAYMENT_STRIPE PaymentMethod = "stripe"
)

type ReferenceType string

const (
	REFERENCE_ORDER                ReferenceType = "order"
	REFERENCE_BUS_SUBSCRIPTION     ReferenceType = "bus_subscription"
	REFERENCE_PARKING_SUBSCRIPTION ReferenceType = "parking_subscription"
	REFERENCE_FACILITY_RESERVATION ReferenceType = "facility_reservation"
)

type CompletionStatus string

const (
	COMPLETION_APPLIED           CompletionStatus = "applied"
	COMPLETION_ALREADY_PROCESSED CompletionStatus = "already_processed"
	COMPLETION_REFUND_REQUIRED   CompletionStatus = "refund_required"
)

type SimpleRequestParams struct {
	ID string `uri:"id" binding:"required"`
}

type OrderItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequestBody struct {
	RestaurantID string             `json:"restaurant_id" binding:"required"`
	Items        []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Points       int64              `json:"points" binding:"gte=0"`
}

type CreateBusSubscriptionRequestBody struct {
	BusID      string `json:"bus_id" binding:"required"`
	RouteID    string `json:"route_id" binding:"required"`
	SeatNumber int    `json:"seat_number" binding:"required,gt=0"`
	Months     int    `json:"months" binding:"required,gt=0,lte=12"`
	Points     int64  `json:"points" binding:"gte=0"`
}

type CreateParkingSubscriptionRequestBody struct {
	ParkingSpaceID string    `json:"parking_space_id" binding:"required"`
	VehiclePlate   string    `json:"vehicle_plate" binding:"required"`
	StartTime      time.Time `json:"start_time" binding:"required,futuredate"`
	Months         int       `json:"months" binding:"required,gt=0,lte=12"`
	Points         int64     `json:"points" binding:"gte=0"`
}

type CreateFacilityReservationRequestBody struct {
	FacilityID string    `json:"facility_id" binding:"required"`
	StartTime  time.Time `json:"start_time" binding:"required,futuredate"`
	Hours      int       `json:"hours" binding:"required,gt=0,lte=24"`
	Points     int64     `json:"points" binding:"gte=0"`
}

type CreatePaymentRequestBody struct {
	ReferenceType ReferenceType `json:"reference_type" binding:"required,oneof=order bus_subscription parking_subscription facility_reservation"`
	ReferenceID   string        `json:"reference_id" binding:"required"`
	Method        PaymentMethod `json:"method" binding:"required,oneof=vnpay momo stripe"`
	ClientIP      string        `json:"-"`
}

type CreateRestaurantRequestBody struct {
	Name string `json:"name" binding:"required"`
}

type CreateMenuItemRequestBody struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Price        int64  `json:"price" binding:"required,gt=0"`
	Quantity     int64  `json:"quantity" binding:"gte=0"`
}

type CreateFacilityRequestBody struct {
	Name          string       `json:"name" binding:"required"`
	Type          FacilityType `json:"type" binding:"required,oneof=room court gym pool"`
	PricePerHour  int64        `json:"price_per_hour" binding:"gte=0"`
	ServiceCharge int64        `json:"service_charge" binding:"gte=0"`
	VATPercent    int64        `json:"vat_percent" binding:"gte=0,lte=100"`
}

type CreateParkingSpaceRequestBody struct {
	Name          string `json:"name" binding:"required"`
	MonthlyPrice  int64  `json:"monthly_price" binding:"gte=0"`
	ServiceCharge int64  `json:"service_charge" binding:"gte=0"`
	VATPercent    int64  `json:"vat_percent" binding:"gte=0,lte=100"`
}

type CreateBusRouteRequestBody struct {
	Name         string `json:"name" binding:"required"`
	MonthlyPrice int64  `json:"monthly_price" binding:"gte=0"`
}

type CreateBusRequestBody struct {
	Plate   string `json:"plate" binding:"required"`
	RouteID string `json:"route_id" binding:"required"`
	Seats   int    `json:"seats" binding:"required,gt=0,lte=80"`
}

type CheckoutInput struct {
	PaymentID string
	Amount    int64
	OrderInfo string
	ClientIP  string
}

type CheckoutOutput struct {
	PayURL      string `json:"pay_url"`
	ProviderRef string `json:"provider_ref,omitempty"`
}

// CallbackResult is a verified provider notification about a payment.
type CallbackResult struct {
	PaymentID     string
	Method        PaymentMethod
	Success       bool
	Amount        int64
	ProviderTxnID string
	ResultCode    string
	Message       string
}

type VNPayIPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

type ReportLine struct {
	ReferenceType ReferenceType `json:"reference_type"`
	Count         int           `json:"count"`
	Amount        int64         `json:"amount"`
}

type DailyReport struct {
	Day         string       `json:"day"`
	GeneratedAt time.Time    `json:"generated_at"`
	Lines       []ReportLine `json:"lines"`
	Total       int64        `json:"total"`
}

type RestockMenuItemRequestBody struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}
