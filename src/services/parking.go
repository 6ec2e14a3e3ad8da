package services

import (
	"context"
	"fms/src/apperror"
	"fms/src/availability"
	"fms/src/lib"
	"fms/src/models"
	"fms/src/pricing"
	"fms/src/store"
	"fms/src/types"
	"log"
	"time"

	"github.com/google/uuid"
)

type Parking struct {
	*deps
}

// Subscribe rents a parking space for whole calendar months, with the same
// single-unit-of-work conflict check as facilities.
func (p *Parking) Subscribe(ctx context.Context, auth types.AuthContext, body types.CreateParkingSubscriptionRequestBody) (string, error) {
	now := p.now()
	if err := availability.CheckStart(body.StartTime, now, p.loc, auth.IsAdmin()); err != nil {
		return "", err
	}
	in := reserveWindowInput{
		auth:       auth,
		resourceID: body.ParkingSpaceID,
		window:     availability.MonthWindow(body.StartTime.UTC(), body.Months),
		points:     body.Points,
		now:        now.UTC(),
	}
	sub, err := store.Transact(ctx, p.store, func(tx store.Tx) (models.ParkingSubscription, error) {
		return p.reserveSpace(tx, in, body)
	})
	if err != nil {
		return "", err
	}
	log.Printf("[Parking] %s holds %s for %s until %s\n", sub.UserID, sub.ParkingSpaceID, sub.VehiclePlate, sub.EndTime.Format(time.RFC3339))
	p.publish(ctx, lib.TopicReservationsCreated, sub.ID, Event{
		Type: "parking_subscription.created", ID: sub.ID, SiteID: sub.SiteID, UserID: sub.UserID,
		Status: string(sub.Status), Amount: sub.TotalAmount, OccurredAt: in.now,
	})
	return sub.ID, nil
}

func (p *Parking) reserveSpace(tx store.Tx, in reserveWindowInput, body types.CreateParkingSubscriptionRequestBody) (models.ParkingSubscription, error) {
	var space models.ParkingSpace
	if err := tx.Get(models.ParkingSpacesCollection, in.resourceID, &space); err != nil {
		return models.ParkingSubscription{}, storeError(err, apperror.ErrParkingSpaceNotFound)
	}
	if !sameSite(in.auth, space.SiteID) {
		return models.ParkingSubscription{}, apperror.ErrParkingSpaceNotFound
	}
	if space.Status == types.RESOURCE_MAINTENANCE {
		return models.ParkingSubscription{}, apperror.ErrResourceUnavailable
	}
	existing := []models.ParkingSubscription{}
	if err := tx.Query(models.ParkingSubscriptionsCollection, blockingFilters("parking_space_id", space.ID), &existing); err != nil {
		return models.ParkingSubscription{}, storeError(err, nil)
	}
	held := make([]availability.Reservation, 0, len(existing))
	for _, s := range existing {
		held = append(held, availability.Reservation{
			ResourceID: s.ParkingSpaceID,
			Window:     availability.Window{Start: s.StartTime, End: s.EndTime},
			Status:     s.Status,
		})
	}
	if availability.HasConflict(space.ID, in.window, held, availability.Blocking) {
		return models.ParkingSubscription{}, apperror.ErrParkingSpaceAlreadyReserved
	}
	user, err := readUser(tx, in.auth)
	if err != nil {
		return models.ParkingSubscription{}, err
	}

	base, vat := pricing.ReservationCharges(space.MonthlyPrice, body.Months, space.ServiceCharge, space.VATPercent)
	sub := models.ParkingSubscription{
		ID:             uuid.NewString(),
		SiteID:         space.SiteID,
		ParkingSpaceID: space.ID,
		UserID:         user.ID,
		VehiclePlate:   body.VehiclePlate,
		Status:         types.RESERVATION_RESERVED,
		Months:         body.Months,
		Charges:        p.chargesFor(user, base, vat, in.points),
		StartTime:      in.window.Start,
		EndTime:        in.window.End,
		CreatedAt:      in.now,
		UpdatedAt:      in.now,
	}
	if err := tx.Update(models.ParkingSpacesCollection, space.ID, map[string]any{
		"last_reserved_at": in.now,
	}); err != nil {
		return sub, storeError(err, apperror.ErrParkingSpaceNotFound)
	}
	if err := tx.Create(models.ParkingSubscriptionsCollection, sub.ID, sub); err != nil {
		return sub, storeError(err, nil)
	}
	if err := tx.Update(models.UsersCollection, user.ID, map[string]any{
		"points":     pointsAfterCharge(user.Points, sub.Charges),
		"updated_at": in.now,
	}); err != nil {
		return sub, storeError(err, apperror.ErrUserNotFound)
	}
	return sub, nil
}

func (p *Parking) Cancel(ctx context.Context, auth types.AuthContext, id string) error {
	in := cancelInput{auth: auth, id: id, now: p.now().UTC()}
	sub, err := store.Transact(ctx, p.store, func(tx store.Tx) (models.ParkingSubscription, error) {
		return closeParkingSubscription(tx, in, types.RESERVATION_CANCELLED, true)
	})
	if err != nil {
		return err
	}
	p.publish(ctx, lib.TopicReservationsCancelled, sub.ID, Event{
		Type: "parking_subscription.cancelled", ID: sub.ID, SiteID: sub.SiteID, UserID: sub.UserID,
		Status: string(types.RESERVATION_CANCELLED), Amount: sub.TotalAmount, OccurredAt: in.now,
	})
	return nil
}

func closeParkingSubscription(tx store.Tx, in cancelInput, status types.ReservationStatus, byCustomer bool) (models.ParkingSubscription, error) {
	var sub models.ParkingSubscription
	if err := tx.Get(models.ParkingSubscriptionsCollection, in.id, &sub); err != nil {
		return sub, storeError(err, apperror.ErrSubscriptionNotFound)
	}
	if byCustomer {
		if !sameSite(in.auth, sub.SiteID) {
			return sub, apperror.ErrSubscriptionNotFound
		}
		if !in.auth.CanAccess(sub.UserID) {
			return sub, apperror.ErrNotOwner
		}
	}
	if !sub.Status.Active() {
		return sub, apperror.ErrInvalidStatusTransition
	}
	// paid records are only closed by expiry; refunds go through the provider
	if byCustomer && sub.Status == types.RESERVATION_CONFIRMED {
		return sub, apperror.ErrInvalidStatusTransition
	}
	var user models.User
	if byCustomer {
		if err := tx.Get(models.UsersCollection, sub.UserID, &user); err != nil {
			return sub, storeError(err, apperror.ErrUserNotFound)
		}
	}
	open, err := referencePayments(tx, types.REFERENCE_PARKING_SUBSCRIPTION, sub.ID, types.PAYMENT_PENDING)
	if err != nil {
		return sub, err
	}
	if err := tx.Update(models.ParkingSubscriptionsCollection, sub.ID, map[string]any{
		"status":     status,
		"updated_at": in.now,
	}); err != nil {
		return sub, storeError(err, nil)
	}
	if byCustomer {
		if err := tx.Update(models.UsersCollection, user.ID, map[string]any{
			"points":     pointsAfterRefund(user.Points, sub.Charges),
			"updated_at": in.now,
		}); err != nil {
			return sub, storeError(err, nil)
		}
	}
	if err := voidPayments(tx, open, "subscription "+closedReason(status), in.now); err != nil {
		return sub, err
	}
	return sub, nil
}
