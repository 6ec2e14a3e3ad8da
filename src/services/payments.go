package services

import (
	"context"
	"errors"
	"fms/src/apperror"
	"fms/src/lib"
	"fms/src/models"
	"fms/src/store"
	"fms/src/types"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Payments struct {
	*deps
	gateways map[types.PaymentMethod]Gateway
	notifier Notifier
}

// payable is the part of an order, subscription or reservation a payment
// needs to know about.
type payable struct {
	collection string
	id         string
	siteID     string
	userID     string
	total      int64
	open       bool
	notFound   *apperror.Error
}

var referenceCollections = map[types.ReferenceType]struct {
	collection string
	notFound   *apperror.Error
}{
	types.REFERENCE_ORDER:                {models.OrdersCollection, apperror.ErrOrderNotFound},
	types.REFERENCE_BUS_SUBSCRIPTION:     {models.BusSubscriptionsCollection, apperror.ErrSubscriptionNotFound},
	types.REFERENCE_PARKING_SUBSCRIPTION: {models.ParkingSubscriptionsCollection, apperror.ErrSubscriptionNotFound},
	types.REFERENCE_FACILITY_RESERVATION: {models.FacilityReservationsCollection, apperror.ErrReservationNotFound},
}

// reservationRecord covers the fields shared by every reservation kind.
type reservationRecord struct {
	ID     string                  `json:"id" firestore:"id"`
	SiteID string                  `json:"site_id" firestore:"site_id"`
	UserID string                  `json:"user_id" firestore:"user_id"`
	Status types.ReservationStatus `json:"status" firestore:"status"`
	models.Charges
}

type getter func(collection, id string, dst any) error

func loadPayable(get getter, refType types.ReferenceType, id string) (payable, error) {
	ref, ok := referenceCollections[refType]
	if !ok {
		return payable{}, apperror.New(apperror.Validation, apperror.CodeInvalidRequest, "unknown reference type")
	}
	p := payable{collection: ref.collection, id: id, notFound: ref.notFound}
	if refType == types.REFERENCE_ORDER {
		var order models.Order
		if err := get(ref.collection, id, &order); err != nil {
			return p, storeError(err, ref.notFound)
		}
		p.siteID, p.userID, p.total = order.SiteID, order.UserID, order.TotalAmount
		p.open = order.Status == types.ORDER_PENDING
		return p, nil
	}
	var rec reservationRecord
	if err := get(ref.collection, id, &rec); err != nil {
		return p, storeError(err, ref.notFound)
	}
	p.siteID, p.userID, p.total = rec.SiteID, rec.UserID, rec.TotalAmount
	p.open = rec.Status == types.RESERVATION_PENDING || rec.Status == types.RESERVATION_RESERVED
	return p, nil
}

// paidStatus is what a settled reference moves to.
func paidStatus(refType types.ReferenceType) any {
	if refType == types.REFERENCE_ORDER {
		return types.ORDER_PAID
	}
	return types.RESERVATION_CONFIRMED
}

type openedPayment struct {
	payment models.Payment
	resumed bool
}

// referencePayments reads the payments of a record that are in one of
// statuses.
func referencePayments(tx store.Tx, refType types.ReferenceType, refID string, statuses ...types.PaymentStatus) ([]models.Payment, error) {
	payments := []models.Payment{}
	if err := tx.Query(models.PaymentsCollection, []store.Filter{
		store.Where("reference_id", store.Eq, refID),
		store.Where("reference_type", store.Eq, refType),
	}, &payments); err != nil {
		return nil, storeError(err, nil)
	}
	matching := payments[:0]
	for _, p := range payments {
		if slices.Contains(statuses, p.Status) {
			matching = append(matching, p)
		}
	}
	return matching, nil
}

// voidPayments cancels payments that are still pending. A provider success
// arriving for one of them later is recorded as refund required.
func voidPayments(tx store.Tx, payments []models.Payment, reason string, now time.Time) error {
	for _, p := range payments {
		if err := tx.Update(models.PaymentsCollection, p.ID, map[string]any{
			"status":     types.PAYMENT_CANCELLED,
			"message":    reason,
			"updated_at": now,
		}); err != nil {
			return storeError(err, apperror.ErrPaymentNotFound)
		}
	}
	return nil
}

func closedReason(status types.ReservationStatus) string {
	if status == types.RESERVATION_EXPIRED {
		return "expired"
	}
	return "cancelled"
}

// Create opens a pending payment for the caller's unpaid record and asks the
// gateway for a checkout URL.
func (p *Payments) Create(ctx context.Context, auth types.AuthContext, body types.CreatePaymentRequestBody) (*models.Payment, error) {
	gateway, ok := p.gateways[body.Method]
	if !ok {
		return nil, apperror.ErrUnsupportedPaymentMethod
	}
	now := p.now().UTC()
	opened, err := store.Transact(ctx, p.store, func(tx store.Tx) (openedPayment, error) {
		ref, err := loadPayable(tx.Get, body.ReferenceType, body.ReferenceID)
		if err != nil {
			return openedPayment{}, err
		}
		if !sameSite(auth, ref.siteID) {
			return openedPayment{}, ref.notFound
		}
		if !auth.CanAccess(ref.userID) {
			return openedPayment{}, apperror.ErrNotOwner
		}
		if !ref.open {
			return openedPayment{}, apperror.ErrInvalidStatusTransition
		}
		if ref.total <= 0 {
			return openedPayment{}, apperror.ErrInvalidAmount
		}
		earlier, err := referencePayments(tx, body.ReferenceType, ref.id, types.PAYMENT_PENDING, types.PAYMENT_SUCCESS)
		if err != nil {
			return openedPayment{}, err
		}
		// one live checkout per record: the same method resumes it, any other
		// method voids it
		var resume *models.Payment
		superseded := []models.Payment{}
		for i, e := range earlier {
			if e.Status == types.PAYMENT_SUCCESS {
				return openedPayment{}, apperror.ErrInvalidStatusTransition
			}
			if resume == nil && e.Method == body.Method && e.PayURL != "" && e.Amount == ref.total {
				resume = &earlier[i]
				continue
			}
			superseded = append(superseded, e)
		}
		if err := voidPayments(tx, superseded, "superseded by "+string(body.Method)+" payment", now); err != nil {
			return openedPayment{}, err
		}
		if resume != nil {
			return openedPayment{payment: *resume, resumed: true}, nil
		}
		payment := models.Payment{
			ID:            uuid.NewString(),
			SiteID:        ref.siteID,
			UserID:        ref.userID,
			ReferenceID:   ref.id,
			ReferenceType: body.ReferenceType,
			Method:        body.Method,
			Amount:        ref.total,
			Status:        types.PAYMENT_PENDING,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Create(models.PaymentsCollection, payment.ID, payment); err != nil {
			return openedPayment{}, storeError(err, nil)
		}
		return openedPayment{payment: payment}, nil
	})
	if err != nil {
		return nil, err
	}
	payment := opened.payment
	if opened.resumed {
		log.Printf("[Payments] resuming %s payment %s for %s %s\n", payment.Method, payment.ID, payment.ReferenceType, payment.ReferenceID)
		return &payment, nil
	}

	out, err := gateway.Checkout(ctx, types.CheckoutInput{
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		OrderInfo: fmt.Sprintf("Payment for %s %s", payment.ReferenceType, payment.ReferenceID),
		ClientIP:  body.ClientIP,
	})
	if err != nil {
		log.Printf("[Payments] %s checkout failed for %s: %s\n", payment.Method, payment.ID, err.Error())
		if uerr := p.store.Update(ctx, models.PaymentsCollection, payment.ID, map[string]any{
			"status":     types.PAYMENT_FAILED,
			"message":    "checkout failed",
			"updated_at": p.now().UTC(),
		}); uerr != nil {
			log.Printf("[Payments] Error marking %s failed: %s\n", payment.ID, uerr.Error())
		}
		return nil, apperror.Internalf(err, "payment provider unavailable")
	}
	payment.PayURL = out.PayURL
	payment.ProviderRef = out.ProviderRef
	if err := p.store.Update(ctx, models.PaymentsCollection, payment.ID, map[string]any{
		"pay_url":      payment.PayURL,
		"provider_ref": payment.ProviderRef,
		"updated_at":   p.now().UTC(),
	}); err != nil {
		return nil, storeError(err, apperror.ErrPaymentNotFound)
	}
	log.Printf("[Payments] %s payment %s opened for %s %s amount=%d\n", payment.Method, payment.ID, payment.ReferenceType, payment.ReferenceID, payment.Amount)
	return &payment, nil
}

type completeInput struct {
	result types.CallbackResult
	now    time.Time
}

type completion struct {
	status  types.CompletionStatus
	payment models.Payment
	user    models.User
}

// Complete applies a verified provider callback. A payment leaves pending
// exactly once; replays and late callbacks report AlreadyProcessed and
// change nothing. Money taken for a record that is no longer open, or on a
// voided payment, is reported as RefundRequired.
func (p *Payments) Complete(ctx context.Context, result types.CallbackResult) (types.CompletionStatus, error) {
	in := completeInput{result: result, now: p.now().UTC()}
	done, err := store.Transact(ctx, p.store, func(tx store.Tx) (completion, error) {
		return settlePayment(tx, in)
	})
	if err != nil {
		return "", err
	}
	switch done.status {
	case types.COMPLETION_ALREADY_PROCESSED:
		log.Printf("[Payments] callback for %s ignored, already %s\n", done.payment.ID, done.payment.Status)
		return done.status, nil
	case types.COMPLETION_REFUND_REQUIRED:
		log.Printf("[Payments] payment %s needs a refund: %s\n", done.payment.ID, done.payment.Message)
	default:
		log.Printf("[Payments] payment %s is now %s\n", done.payment.ID, done.payment.Status)
	}
	p.publish(ctx, lib.TopicPaymentsUpdated, done.payment.ID, Event{
		Type: lib.TopicPaymentsUpdated, ID: done.payment.ID, SiteID: done.payment.SiteID, UserID: done.payment.UserID,
		Status: string(done.payment.Status), Amount: done.payment.Amount, OccurredAt: in.now,
	})
	if done.payment.Status == types.PAYMENT_SUCCESS {
		if err := p.notifier.PaymentConfirmed(ctx, done.user, done.payment); err != nil {
			log.Printf("[Payments] Error notifying %s about %s: %s\n", done.user.ID, done.payment.ID, err.Error())
		}
	}
	return done.status, nil
}

func settlePayment(tx store.Tx, in completeInput) (completion, error) {
	var payment models.Payment
	if err := tx.Get(models.PaymentsCollection, in.result.PaymentID, &payment); err != nil {
		return completion{}, storeError(err, apperror.ErrPaymentNotFound)
	}
	if in.result.Method != "" && in.result.Method != payment.Method {
		return completion{}, apperror.ErrPaymentNotFound
	}
	// failures raised internally carry no amount
	if (in.result.Success || in.result.Amount != 0) && in.result.Amount != payment.Amount {
		return completion{}, apperror.ErrInvalidAmount
	}
	switch {
	case payment.Status == types.PAYMENT_PENDING:
	case payment.Status == types.PAYMENT_CANCELLED && in.result.Success:
		return markRefundRequired(tx, in, payment, "paid after the payment was voided")
	default:
		return completion{status: types.COMPLETION_ALREADY_PROCESSED, payment: payment}, nil
	}

	if !in.result.Success {
		payment.Status = types.PAYMENT_FAILED
		if err := recordResult(tx, in, &payment); err != nil {
			return completion{}, err
		}
		return completion{status: types.COMPLETION_APPLIED, payment: payment}, nil
	}

	ref, err := loadPayable(tx.Get, payment.ReferenceType, payment.ReferenceID)
	if err != nil {
		if apperror.KindOf(err) != apperror.NotFound {
			return completion{}, err
		}
		log.Printf("[Payments] reference %s of %s is gone\n", payment.ReferenceID, payment.ID)
		return markRefundRequired(tx, in, payment, "paid after the record was removed")
	}
	if !ref.open {
		return markRefundRequired(tx, in, payment, "paid after the record was closed")
	}
	var user models.User
	if uerr := tx.Get(models.UsersCollection, payment.UserID, &user); uerr != nil && !errors.Is(uerr, store.ErrNotFound) {
		return completion{}, storeError(uerr, nil)
	}

	payment.Status = types.PAYMENT_SUCCESS
	if err := recordResult(tx, in, &payment); err != nil {
		return completion{}, err
	}
	if err := tx.Update(ref.collection, ref.id, map[string]any{
		"status":     paidStatus(payment.ReferenceType),
		"updated_at": in.now,
	}); err != nil {
		return completion{}, storeError(err, nil)
	}
	return completion{status: types.COMPLETION_APPLIED, payment: payment, user: user}, nil
}

// markRefundRequired keeps the provider's money on record without touching
// the reference.
func markRefundRequired(tx store.Tx, in completeInput, payment models.Payment, reason string) (completion, error) {
	payment.Status = types.PAYMENT_REFUND_REQUIRED
	in.result.Message = reason
	if err := recordResult(tx, in, &payment); err != nil {
		return completion{}, err
	}
	return completion{status: types.COMPLETION_REFUND_REQUIRED, payment: payment}, nil
}

func recordResult(tx store.Tx, in completeInput, payment *models.Payment) error {
	payment.ProviderTxnID = in.result.ProviderTxnID
	payment.Message = in.result.Message
	payment.UpdatedAt = in.now
	if err := tx.Update(models.PaymentsCollection, payment.ID, map[string]any{
		"status":          payment.Status,
		"provider_txn_id": payment.ProviderTxnID,
		"message":         payment.Message,
		"updated_at":      in.now,
	}); err != nil {
		return storeError(err, apperror.ErrPaymentNotFound)
	}
	return nil
}

func (p *Payments) Get(ctx context.Context, auth types.AuthContext, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := p.store.Get(ctx, models.PaymentsCollection, id, &payment); err != nil {
		return nil, storeError(err, apperror.ErrPaymentNotFound)
	}
	if !sameSite(auth, payment.SiteID) {
		return nil, apperror.ErrPaymentNotFound
	}
	if !auth.CanAccess(payment.UserID) {
		return nil, apperror.ErrNotOwner
	}
	return &payment, nil
}

// QRCode renders the checkout URL of a pending payment as an image.
func (p *Payments) QRCode(ctx context.Context, auth types.AuthContext, id string) ([]byte, error) {
	payment, err := p.Get(ctx, auth, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != types.PAYMENT_PENDING || payment.PayURL == "" {
		return nil, apperror.ErrInvalidStatusTransition
	}
	img, err := lib.RenderQRCode(payment.PayURL)
	if err != nil {
		return nil, apperror.Internalf(err, "could not render QR code")
	}
	return img, nil
}
