package models

import (
	"fms/src/types"
	"time"
)

type Site struct {
	ID        string    `json:"id" firestore:"id"`
	Name      string    `json:"name" firestore:"name"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
}

type User struct {
	ID        string     `json:"id" firestore:"id"`
	SiteID    string     `json:"site_id" firestore:"site_id"`
	Name      string     `json:"name" firestore:"name"`
	Email     string     `json:"email" firestore:"email"`
	Phone     string     `json:"phone" firestore:"phone"`
	Rank      types.Rank `json:"rank" firestore:"rank"`
	Points    int64      `json:"points" firestore:"points"`
	Roles     []string   `json:"roles" firestore:"roles"`
	CreatedAt time.Time  `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" firestore:"updated_at"`
}
