package models

import (
	"fms/src/types"
	"time"
)

type Seat struct {
	Number    int  `json:"number" firestore:"number"`
	Available bool `json:"available" firestore:"available"`
}

type Bus struct {
	ID        string    `json:"id" firestore:"id"`
	SiteID    string    `json:"site_id" firestore:"site_id"`
	Plate     string    `json:"plate" firestore:"plate"`
	Code      string    `json:"code" firestore:"code"`
	RouteID   string    `json:"route_id" firestore:"route_id"`
	Seats     []Seat    `json:"seats" firestore:"seats"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

type BusRoute struct {
	ID           string    `json:"id" firestore:"id"`
	SiteID       string    `json:"site_id" firestore:"site_id"`
	Name         string    `json:"name" firestore:"name"`
	Code         string    `json:"code" firestore:"code"`
	MonthlyPrice int64     `json:"monthly_price" firestore:"monthly_price"`
	CreatedAt    time.Time `json:"created_at" firestore:"created_at"`
}

// BusSubscription holds one seat for a number of months. Employee name and
// phone are copied from the user when the subscription is created.
type BusSubscription struct {
	ID            string                  `json:"id" firestore:"id"`
	SiteID        string                  `json:"site_id" firestore:"site_id"`
	BusID         string                  `json:"bus_id" firestore:"bus_id"`
	RouteID       string                  `json:"route_id" firestore:"route_id"`
	UserID        string                  `json:"user_id" firestore:"user_id"`
	SeatNumber    int                     `json:"seat_number" firestore:"seat_number"`
	EmployeeName  string                  `json:"employee_name" firestore:"employee_name"`
	EmployeePhone string                  `json:"employee_phone" firestore:"employee_phone"`
	Status        types.ReservationStatus `json:"status" firestore:"status"`
	Months        int                     `json:"months" firestore:"months"`
	Charges
	StartTime time.Time `json:"start_time" firestore:"start_time"`
	EndTime   time.Time `json:"end_time" firestore:"end_time"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}
