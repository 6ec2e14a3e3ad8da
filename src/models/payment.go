package models

import (
	"fms/src/types"
	"time"
)

// Payment is one attempt to pay for a referenced order, subscription or
// reservation. It leaves pending exactly once.
type Payment struct {
	ID            string              `json:"id" firestore:"id"`
	SiteID        string              `json:"site_id" firestore:"site_id"`
	UserID        string              `json:"user_id" firestore:"user_id"`
	ReferenceID   string              `json:"reference_id" firestore:"reference_id"`
	ReferenceType types.ReferenceType `json:"reference_type" firestore:"reference_type"`
	Method        types.PaymentMethod `json:"method" firestore:"method"`
	Amount        int64               `json:"amount" firestore:"amount"`
	Status        types.PaymentStatus `json:"status" firestore:"status"`
	PayURL        string              `json:"pay_url" firestore:"pay_url"`
	ProviderRef   string              `json:"provider_ref" firestore:"provider_ref"`
	ProviderTxnID string              `json:"provider_txn_id" firestore:"provider_txn_id"`
	Message       string              `json:"message" firestore:"message"`
	CreatedAt     time.Time           `json:"created_at" firestore:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" firestore:"updated_at"`
}
