package models

const (
	SitesCollection                = "sites"
	UsersCollection                = "users"
	RestaurantsCollection          = "restaurants"
	MenuItemsCollection            = "menu_items"
	OrdersCollection               = "orders"
	OrderDetailsCollection         = "order_details"
	BusesCollection                = "buses"
	BusRoutesCollection            = "bus_routes"
	BusSubscriptionsCollection     = "bus_subscriptions"
	ParkingSpacesCollection        = "parking_spaces"
	ParkingSubscriptionsCollection = "parking_subscriptions"
	FacilitiesCollection           = "facilities"
	FacilityReservationsCollection = "facility_reservations"
	PaymentsCollection             = "payments"
)

// Charges is the priced breakdown stored on every payable record.
type Charges struct {
	BaseAmount   int64 `json:"base_amount" firestore:"base_amount"`
	VATCharge    int64 `json:"vat_charge" firestore:"vat_charge"`
	Discount     int64 `json:"discount" firestore:"discount"`
	PointsUsed   int64 `json:"points_used" firestore:"points_used"`
	PointsEarned int64 `json:"points_earned" firestore:"points_earned"`
	TotalAmount  int64 `json:"total_amount" firestore:"total_amount"`
}
