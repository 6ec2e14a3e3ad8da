package models

import (
	"fms/src/types"
	"time"
)

type Restaurant struct {
	ID        string               `json:"id" firestore:"id"`
	SiteID    string               `json:"site_id" firestore:"site_id"`
	Name      string               `json:"name" firestore:"name"`
	Code      string               `json:"code" firestore:"code"`
	Status    types.ResourceStatus `json:"status" firestore:"status"`
	CreatedAt time.Time            `json:"created_at" firestore:"created_at"`
}

// MenuItem is a dish on a restaurant menu. Quantity is the remaining stock.
type MenuItem struct {
	ID           string    `json:"id" firestore:"id"`
	SiteID       string    `json:"site_id" firestore:"site_id"`
	RestaurantID string    `json:"restaurant_id" firestore:"restaurant_id"`
	Name         string    `json:"name" firestore:"name"`
	Code         string    `json:"code" firestore:"code"`
	Price        int64     `json:"price" firestore:"price"`
	Quantity     int64     `json:"quantity" firestore:"quantity"`
	CreatedAt    time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" firestore:"updated_at"`
}

type OrderLine struct {
	MenuItemID string `json:"menu_item_id" firestore:"menu_item_id"`
	Name       string `json:"name" firestore:"name"`
	Price      int64  `json:"price" firestore:"price"`
	Quantity   int64  `json:"quantity" firestore:"quantity"`
}

type Order struct {
	ID           string            `json:"id" firestore:"id"`
	SiteID       string            `json:"site_id" firestore:"site_id"`
	RestaurantID string            `json:"restaurant_id" firestore:"restaurant_id"`
	UserID       string            `json:"user_id" firestore:"user_id"`
	Status       types.OrderStatus `json:"status" firestore:"status"`
	Items        []OrderLine       `json:"items" firestore:"items"`
	Charges
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

// OrderDetail is the line snapshot taken when the order is placed. It is
// never rewritten.
type OrderDetail struct {
	ID         string    `json:"id" firestore:"id"`
	SiteID     string    `json:"site_id" firestore:"site_id"`
	OrderID    string    `json:"order_id" firestore:"order_id"`
	MenuItemID string    `json:"menu_item_id" firestore:"menu_item_id"`
	Name       string    `json:"name" firestore:"name"`
	Price      int64     `json:"price" firestore:"price"`
	Quantity   int64     `json:"quantity" firestore:"quantity"`
	CreatedAt  time.Time `json:"created_at" firestore:"created_at"`
}
