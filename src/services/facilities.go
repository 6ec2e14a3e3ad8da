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

type Facilities struct {
	*deps
}

type reserveWindowInput struct {
	auth       types.AuthContext
	resourceID string
	window     availability.Window
	points     int64
	now        time.Time
}

// blockingFilters selects the records of one resource that still hold it.
func blockingFilters(field, resourceID string) []store.Filter {
	return []store.Filter{
		store.Where(field, store.Eq, resourceID),
		store.Where("status", store.In, availability.Blocking.Slice()),
	}
}

// Reserve books a facility for whole hours. The conflict check and the
// insert share one unit of work, and the facility document is rewritten so
// two overlapping requests cannot both commit.
func (f *Facilities) Reserve(ctx context.Context, auth types.AuthContext, body types.CreateFacilityReservationRequestBody) (string, error) {
	now := f.now()
	if err := availability.CheckStart(body.StartTime, now, f.loc, auth.IsAdmin()); err != nil {
		return "", err
	}
	in := reserveWindowInput{
		auth:       auth,
		resourceID: body.FacilityID,
		window:     availability.HourWindow(body.StartTime.UTC(), body.Hours),
		points:     body.Points,
		now:        now.UTC(),
	}
	res, err := store.Transact(ctx, f.store, func(tx store.Tx) (models.FacilityReservation, error) {
		return f.reserveFacility(tx, in, body.Hours)
	})
	if err != nil {
		return "", err
	}
	log.Printf("[Facilities] %s reserved %s from %s to %s\n", res.UserID, res.FacilityID, res.StartTime.Format(time.RFC3339), res.EndTime.Format(time.RFC3339))
	f.publish(ctx, lib.TopicReservationsCreated, res.ID, Event{
		Type: "facility_reservation.created", ID: res.ID, SiteID: res.SiteID, UserID: res.UserID,
		Status: string(res.Status), Amount: res.TotalAmount, OccurredAt: in.now,
	})
	return res.ID, nil
}

func (f *Facilities) reserveFacility(tx store.Tx, in reserveWindowInput, hours int) (models.FacilityReservation, error) {
	var facility models.Facility
	if err := tx.Get(models.FacilitiesCollection, in.resourceID, &facility); err != nil {
		return models.FacilityReservation{}, storeError(err, apperror.ErrFacilityNotFound)
	}
	if !sameSite(in.auth, facility.SiteID) {
		return models.FacilityReservation{}, apperror.ErrFacilityNotFound
	}
	if facility.Status == types.RESOURCE_MAINTENANCE {
		return models.FacilityReservation{}, apperror.ErrResourceUnavailable
	}
	existing := []models.FacilityReservation{}
	if err := tx.Query(models.FacilityReservationsCollection, blockingFilters("facility_id", facility.ID), &existing); err != nil {
		return models.FacilityReservation{}, storeError(err, nil)
	}
	held := make([]availability.Reservation, 0, len(existing))
	for _, r := range existing {
		held = append(held, availability.Reservation{
			ResourceID: r.FacilityID,
			Window:     availability.Window{Start: r.StartTime, End: r.EndTime},
			Status:     r.Status,
		})
	}
	if availability.HasConflict(facility.ID, in.window, held, availability.Blocking) {
		return models.FacilityReservation{}, apperror.ErrFacilityAlreadyReserved
	}
	user, err := readUser(tx, in.auth)
	if err != nil {
		return models.FacilityReservation{}, err
	}

	res := models.FacilityReservation{
		ID:         uuid.NewString(),
		SiteID:     facility.SiteID,
		FacilityID: facility.ID,
		UserID:     user.ID,
		Status:     types.RESERVATION_RESERVED,
		Hours:      hours,
		StartTime:  in.window.Start,
		EndTime:    in.window.End,
		CreatedAt:  in.now,
		UpdatedAt:  in.now,
	}
	// rooms are free
	if facility.Type != types.FACILITY_ROOM {
		base, vat := pricing.ReservationCharges(facility.PricePerHour, hours, facility.ServiceCharge, facility.VATPercent)
		res.Charges = f.chargesFor(user, base, vat, in.points)
	}

	if err := tx.Update(models.FacilitiesCollection, facility.ID, map[string]any{
		"last_reserved_at": in.now,
	}); err != nil {
		return res, storeError(err, apperror.ErrFacilityNotFound)
	}
	if err := tx.Create(models.FacilityReservationsCollection, res.ID, res); err != nil {
		return res, storeError(err, nil)
	}
	if res.PointsUsed != 0 || res.PointsEarned != 0 {
		if err := tx.Update(models.UsersCollection, user.ID, map[string]any{
			"points":     pointsAfterCharge(user.Points, res.Charges),
			"updated_at": in.now,
		}); err != nil {
			return res, storeError(err, apperror.ErrUserNotFound)
		}
	}
	return res, nil
}

// Cancel is allowed for the owner or an admin while the reservation is
// still active.
func (f *Facilities) Cancel(ctx context.Context, auth types.AuthContext, id string) error {
	in := cancelInput{auth: auth, id: id, now: f.now().UTC()}
	res, err := store.Transact(ctx, f.store, func(tx store.Tx) (models.FacilityReservation, error) {
		return closeFacilityReservation(tx, in, types.RESERVATION_CANCELLED, true)
	})
	if err != nil {
		return err
	}
	f.publish(ctx, lib.TopicReservationsCancelled, res.ID, Event{
		Type: "facility_reservation.cancelled", ID: res.ID, SiteID: res.SiteID, UserID: res.UserID,
		Status: string(types.RESERVATION_CANCELLED), Amount: res.TotalAmount, OccurredAt: in.now,
	})
	return nil
}

func closeFacilityReservation(tx store.Tx, in cancelInput, status types.ReservationStatus, byCustomer bool) (models.FacilityReservation, error) {
	var res models.FacilityReservation
	if err := tx.Get(models.FacilityReservationsCollection, in.id, &res); err != nil {
		return res, storeError(err, apperror.ErrReservationNotFound)
	}
	if byCustomer {
		if !sameSite(in.auth, res.SiteID) {
			return res, apperror.ErrReservationNotFound
		}
		if !in.auth.CanAccess(res.UserID) {
			return res, apperror.ErrNotOwner
		}
	}
	if !res.Status.Active() {
		return res, apperror.ErrInvalidStatusTransition
	}
	// paid records are only closed by expiry; refunds go through the provider
	if byCustomer && res.Status == types.RESERVATION_CONFIRMED {
		return res, apperror.ErrInvalidStatusTransition
	}
	refund := byCustomer && (res.PointsUsed != 0 || res.PointsEarned != 0)
	var user models.User
	if refund {
		if err := tx.Get(models.UsersCollection, res.UserID, &user); err != nil {
			return res, storeError(err, apperror.ErrUserNotFound)
		}
	}
	open, err := referencePayments(tx, types.REFERENCE_FACILITY_RESERVATION, res.ID, types.PAYMENT_PENDING)
	if err != nil {
		return res, err
	}
	if err := tx.Update(models.FacilityReservationsCollection, res.ID, map[string]any{
		"status":     status,
		"updated_at": in.now,
	}); err != nil {
		return res, storeError(err, nil)
	}
	if refund {
		if err := tx.Update(models.UsersCollection, user.ID, map[string]any{
			"points":     pointsAfterRefund(user.Points, res.Charges),
			"updated_at": in.now,
		}); err != nil {
			return res, storeError(err, nil)
		}
	}
	if err := voidPayments(tx, open, "reservation "+closedReason(status), in.now); err != nil {
		return res, err
	}
	return res, nil
}
