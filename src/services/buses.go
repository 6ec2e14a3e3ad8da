package services

import (
	"context"
	"errors"
	"fms/src/apperror"
	"fms/src/availability"
	"fms/src/lib"
	"fms/src/models"
	"fms/src/store"
	"fms/src/types"
	"log"
	"time"

	"github.com/google/uuid"
)

type Buses struct {
	*deps
}

type subscribeSeatInput struct {
	auth types.AuthContext
	body types.CreateBusSubscriptionRequestBody
	now  time.Time
	// window starts at the next day boundary
	window availability.Window
}

// Subscribe books one seat on a bus for a number of months. The bus
// document is the serialization point: two requests for the same seat read
// and rewrite the same seat list, so only one commits.
func (b *Buses) Subscribe(ctx context.Context, auth types.AuthContext, body types.CreateBusSubscriptionRequestBody) (string, error) {
	now := b.now()
	in := subscribeSeatInput{
		auth:   auth,
		body:   body,
		now:    now.UTC(),
		window: availability.MonthWindow(availability.NextDayBoundary(now, b.loc), body.Months),
	}
	sub, err := store.Transact(ctx, b.store, func(tx store.Tx) (models.BusSubscription, error) {
		return b.reserveSeat(tx, in)
	})
	if err != nil {
		return "", err
	}
	log.Printf("[Buses] seat %d on bus %s held by %s (%s)\n", sub.SeatNumber, sub.BusID, sub.UserID, sub.ID)
	b.publish(ctx, lib.TopicReservationsCreated, sub.ID, Event{
		Type: "bus_subscription.created", ID: sub.ID, SiteID: sub.SiteID, UserID: sub.UserID,
		Status: string(sub.Status), Amount: sub.TotalAmount, OccurredAt: in.now,
	})
	return sub.ID, nil
}

// takeSeat returns the seat list with number marked taken. ok is false when
// no seat with that number is currently available.
func takeSeat(seats []models.Seat, number int) ([]models.Seat, bool) {
	out := make([]models.Seat, len(seats))
	copy(out, seats)
	for i := range out {
		if out[i].Number == number && out[i].Available {
			out[i].Available = false
			return out, true
		}
	}
	return nil, false
}

func releaseSeat(seats []models.Seat, number int) []models.Seat {
	out := make([]models.Seat, len(seats))
	copy(out, seats)
	for i := range out {
		if out[i].Number == number {
			out[i].Available = true
		}
	}
	return out
}

func (b *Buses) reserveSeat(tx store.Tx, in subscribeSeatInput) (models.BusSubscription, error) {
	var bus models.Bus
	if err := tx.Get(models.BusesCollection, in.body.BusID, &bus); err != nil {
		return models.BusSubscription{}, storeError(err, apperror.ErrBusNotFound)
	}
	if !sameSite(in.auth, bus.SiteID) {
		return models.BusSubscription{}, apperror.ErrBusNotFound
	}
	seats, ok := takeSeat(bus.Seats, in.body.SeatNumber)
	if !ok {
		return models.BusSubscription{}, apperror.ErrSeatAlreadyBooked
	}
	var route models.BusRoute
	if err := tx.Get(models.BusRoutesCollection, in.body.RouteID, &route); err != nil {
		return models.BusSubscription{}, storeError(err, apperror.ErrBusRouteNotFound)
	}
	if bus.RouteID != route.ID {
		return models.BusSubscription{}, apperror.ErrBusRouteNotFound
	}
	user, err := readUser(tx, in.auth)
	if err != nil {
		return models.BusSubscription{}, err
	}

	sub := models.BusSubscription{
		ID:            uuid.NewString(),
		SiteID:        bus.SiteID,
		BusID:         bus.ID,
		RouteID:       route.ID,
		UserID:        user.ID,
		SeatNumber:    in.body.SeatNumber,
		EmployeeName:  user.Name,
		EmployeePhone: user.Phone,
		Status:        types.RESERVATION_PENDING,
		Months:        in.body.Months,
		Charges:       b.chargesFor(user, route.MonthlyPrice*int64(in.body.Months), 0, in.body.Points),
		StartTime:     in.window.Start.UTC(),
		EndTime:       in.window.End.UTC(),
		CreatedAt:     in.now,
		UpdatedAt:     in.now,
	}
	if err := tx.Update(models.BusesCollection, bus.ID, map[string]any{
		"seats":      seats,
		"updated_at": in.now,
	}); err != nil {
		return sub, storeError(err, apperror.ErrBusNotFound)
	}
	if err := tx.Create(models.BusSubscriptionsCollection, sub.ID, sub); err != nil {
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

type cancelInput struct {
	auth types.AuthContext
	id   string
	now  time.Time
}

// Cancel frees the seat and refunds points in the same unit of work.
func (b *Buses) Cancel(ctx context.Context, auth types.AuthContext, id string) error {
	in := cancelInput{auth: auth, id: id, now: b.now().UTC()}
	sub, err := store.Transact(ctx, b.store, func(tx store.Tx) (models.BusSubscription, error) {
		return closeBusSubscription(tx, in, types.RESERVATION_CANCELLED, true)
	})
	if err != nil {
		return err
	}
	b.publish(ctx, lib.TopicReservationsCancelled, sub.ID, Event{
		Type: "bus_subscription.cancelled", ID: sub.ID, SiteID: sub.SiteID, UserID: sub.UserID,
		Status: string(types.RESERVATION_CANCELLED), Amount: sub.TotalAmount, OccurredAt: in.now,
	})
	return nil
}

// closeBusSubscription moves an active subscription to status and releases
// its seat. Owner checks and refunds apply only to customer cancellations.
func closeBusSubscription(tx store.Tx, in cancelInput, status types.ReservationStatus, byCustomer bool) (models.BusSubscription, error) {
	var sub models.BusSubscription
	if err := tx.Get(models.BusSubscriptionsCollection, in.id, &sub); err != nil {
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
	var bus models.Bus
	busErr := tx.Get(models.BusesCollection, sub.BusID, &bus)
	if busErr != nil && !errors.Is(busErr, store.ErrNotFound) {
		return sub, storeError(busErr, nil)
	}
	var user models.User
	if byCustomer {
		if err := tx.Get(models.UsersCollection, sub.UserID, &user); err != nil {
			return sub, storeError(err, apperror.ErrUserNotFound)
		}
	}
	open, err := referencePayments(tx, types.REFERENCE_BUS_SUBSCRIPTION, sub.ID, types.PAYMENT_PENDING)
	if err != nil {
		return sub, err
	}

	if busErr == nil {
		if err := tx.Update(models.BusesCollection, bus.ID, map[string]any{
			"seats":      releaseSeat(bus.Seats, sub.SeatNumber),
			"updated_at": in.now,
		}); err != nil {
			return sub, storeError(err, nil)
		}
	}
	if err := tx.Update(models.BusSubscriptionsCollection, sub.ID, map[string]any{
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
