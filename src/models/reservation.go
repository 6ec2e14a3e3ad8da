package models

import (
	"fms/src/types"
	"time"
)

type ParkingSpace struct {
	ID             string               `json:"id" firestore:"id"`
	SiteID         string               `json:"site_id" firestore:"site_id"`
	Code           string               `json:"code" firestore:"code"`
	Name           string               `json:"name" firestore:"name"`
	Status         types.ResourceStatus `json:"status" firestore:"status"`
	MonthlyPrice   int64                `json:"monthly_price" firestore:"monthly_price"`
	ServiceCharge  int64                `json:"service_charge" firestore:"service_charge"`
	VATPercent     int64                `json:"vat_percent" firestore:"vat_percent"`
	LastReservedAt time.Time            `json:"last_reserved_at" firestore:"last_reserved_at"`
	CreatedAt      time.Time            `json:"created_at" firestore:"created_at"`
}

type ParkingSubscription struct {
	ID             string                  `json:"id" firestore:"id"`
	SiteID         string                  `json:"site_id" firestore:"site_id"`
	ParkingSpaceID string                  `json:"parking_space_id" firestore:"parking_space_id"`
	UserID         string                  `json:"user_id" firestore:"user_id"`
	VehiclePlate   string                  `json:"vehicle_plate" firestore:"vehicle_plate"`
	Status         types.ReservationStatus `json:"status" firestore:"status"`
	Months         int                     `json:"months" firestore:"months"`
	Charges
	StartTime time.Time `json:"start_time" firestore:"start_time"`
	EndTime   time.Time `json:"end_time" firestore:"end_time"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

type Facility struct {
	ID             string               `json:"id" firestore:"id"`
	SiteID         string               `json:"site_id" firestore:"site_id"`
	Code           string               `json:"code" firestore:"code"`
	Name           string               `json:"name" firestore:"name"`
	Type           types.FacilityType   `json:"type" firestore:"type"`
	Status         types.ResourceStatus `json:"status" firestore:"status"`
	PricePerHour   int64                `json:"price_per_hour" firestore:"price_per_hour"`
	ServiceCharge  int64                `json:"service_charge" firestore:"service_charge"`
	VATPercent     int64                `json:"vat_percent" firestore:"vat_percent"`
	LastReservedAt time.Time            `json:"last_reserved_at" firestore:"last_reserved_at"`
	CreatedAt      time.Time            `json:"created_at" firestore:"created_at"`
}

type FacilityReservation struct {
	ID         string                  `json:"id" firestore:"id"`
	SiteID     string                  `json:"site_id" firestore:"site_id"`
	FacilityID string                  `json:"facility_id" firestore:"facility_id"`
	UserID     string                  `json:"user_id" firestore:"user_id"`
	Status     types.ReservationStatus `json:"status" firestore:"status"`
	Hours      int                     `json:"hours" firestore:"hours"`
	Charges
	StartTime time.Time `json:"start_time" firestore:"start_time"`
	EndTime   time.Time `json:"end_time" firestore:"end_time"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}
