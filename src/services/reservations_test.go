package services

import (
	"fms/src/apperror"
	"fms/src/models"
	"fms/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) seedBuses() {
	f.put(models.BusRoutesCollection, "rt1", models.BusRoute{ID: "rt1", SiteID: "s1", Name: "Thu Duc", Code: "thu-duc", MonthlyPrice: 300000})
	f.put(models.BusRoutesCollection, "rt2", models.BusRoute{ID: "rt2", SiteID: "s1", Name: "Go Vap", Code: "go-vap", MonthlyPrice: 250000})
	seats := []models.Seat{{Number: 1, Available: true}, {Number: 2, Available: true}, {Number: 3, Available: true}, {Number: 4, Available: true}}
	f.put(models.BusesCollection, "b1", models.Bus{ID: "b1", SiteID: "s1", Plate: "51B-12345", RouteID: "rt1", Seats: seats})
}

func (f *fixture) seat(busID string, number int) models.Seat {
	var bus models.Bus
	f.get(models.BusesCollection, busID, &bus)
	for _, s := range bus.Seats {
		if s.Number == number {
			return s
		}
	}
	f.t.Fatalf("seat %d not found on %s", number, busID)
	return models.Seat{}
}

func (f *fixture) seedFacilities() {
	f.put(models.FacilitiesCollection, "court", models.Facility{ID: "court", SiteID: "s1", Code: "court", Name: "Court", Type: types.FACILITY_COURT, Status: types.RESOURCE_AVAILABLE, PricePerHour: 100000, VATPercent: 10})
	f.put(models.FacilitiesCollection, "room", models.Facility{ID: "room", SiteID: "s1", Code: "room", Name: "Room", Type: types.FACILITY_ROOM, Status: types.RESOURCE_AVAILABLE, PricePerHour: 100000, VATPercent: 10})
	f.put(models.FacilitiesCollection, "pool", models.Facility{ID: "pool", SiteID: "s1", Code: "pool", Name: "Pool", Type: types.FACILITY_POOL, Status: types.RESOURCE_MAINTENANCE, PricePerHour: 50000})
	f.put(models.ParkingSpacesCollection, "p1", models.ParkingSpace{ID: "p1", SiteID: "s1", Code: "p1", Name: "P1", Status: types.RESOURCE_AVAILABLE, MonthlyPrice: 500000, ServiceCharge: 50000, VATPercent: 10})
}

func tomorrowAt(hour int) time.Time {
	return time.Date(2026, 3, 11, hour, 0, 0, 0, ict)
}

func TestBusSubscribeHoldsSeat(t *testing.T) {
	f := newFixture(t)
	f.seedBuses()

	id, err := f.svc.Buses.Subscribe(f.ctx, customer, types.CreateBusSubscriptionRequestBody{
		BusID: "b1", RouteID: "rt1", SeatNumber: 2, Months: 1,
	})
	require.NoError(t, err)

	var sub models.BusSubscription
	f.get(models.BusSubscriptionsCollection, id, &sub)
	assert.Equal(t, types.RESERVATION_PENDING, sub.Status)
	assert.Equal(t, "Lan", sub.EmployeeName)
	assert.Equal(t, "0901", sub.EmployeePhone)
	assert.Equal(t, int64(300000), sub.TotalAmount)
	assert.True(t, sub.StartTime.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, ict)))
	assert.True(t, sub.EndTime.Equal(time.Date(2026, 4, 11, 0, 0, 0, 0, ict)))
	assert.False(t, f.seat("b1", 2).Available)
	assert.Equal(t, int64(30), f.user("u1").Points)

	_, err = f.svc.Buses.Subscribe(f.ctx, stranger, types.CreateBusSubscriptionRequestBody{
		BusID: "b1", RouteID: "rt1", SeatNumber: 2, Months: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrSeatAlreadyBooked)

	_, err = f.svc.Buses.Subscribe(f.ctx, stranger, types.CreateBusSubscriptionRequestBody{
		BusID: "b1", RouteID: "rt1", SeatNumber: 9, Months: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrSeatAlreadyBooked)

	_, err = f.svc.Buses.Subscribe(f.ctx, stranger, types.CreateBusSubscriptionRequestBody{
		BusID: "b1", RouteID: "rt2", SeatNumber: 3, Months: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrBusRouteNotFound)
	assert.True(t, f.seat("b1", 3).Available)

	_, err = f.svc.Buses.Subscribe(f.ctx, stranger, types.CreateBusSubscriptionRequestBody{
		BusID: "b9", RouteID: "rt1", SeatNumber: 1, Months: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrBusNotFound)
}

func TestConcurrentSeatRequestsBookOnce(t *testing.T) {
	f := newFixture(t)
	f.seedBuses()

	errs := runConcurrently(8, func(i int) error {
		_, err := f.svc.Buses.Subscribe(f.ctx, customer, types.CreateBusSubscriptionRequestBody{
			BusID: "b1", RouteID: "rt1", SeatNumber: 1, Months: 1,
		})
		return err
	})
	ok, rejected := countOutcomes(errs, apperror.ErrSeatAlreadyBooked)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, rejected)
	assert.Equal(t, 1, f.store.Len(models.BusSubscriptionsCollection))
}

func TestBusCancelReleasesSeat(t *testing.T) {
	f := newFixture(t)
	f.seedBuses()
	id, err := f.svc.Buses.Subscribe(f.ctx, customer, types.CreateBusSubscriptionRequestBody{
		BusID: "b1", RouteID: "rt1", SeatNumber: 4, Months: 1,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Buses.Cancel(f.ctx, stranger, id), apperror.ErrNotOwner)
	require.NoError(t, f.svc.Buses.Cancel(f.ctx, customer, id))

	var sub models.BusSubscription
	f.get(models.BusSubscriptionsCollection, id, &sub)
	assert.Equal(t, types.RESERVATION_CANCELLED, sub.Status)
	assert.True(t, f.seat("b1", 4).Available)
	assert.Equal(t, int64(0), f.user("u1").Points)
	assert.ErrorIs(t, f.svc.Buses.Cancel(f.ctx, customer, id), apperror.ErrInvalidStatusTransition)
	assert.ErrorIs(t, f.svc.Buses.Cancel(f.ctx, customer, "missing"), apperror.ErrSubscriptionNotFound)

	_, err = f.svc.Buses.Subscribe(f.ctx, stranger, types.CreateBusSubscriptionRequestBody{
		BusID: "b1", RouteID: "rt1", SeatNumber: 4, Months: 1,
	})
	assert.NoError(t, err)
}

func TestFacilityReservationConflicts(t *testing.T) {
	f := newFixture(t)
	f.seedFacilities()

	id, err := f.svc.Facilities.Reserve(f.ctx, customer, types.CreateFacilityReservationRequestBody{
		FacilityID: "court", StartTime: tomorrowAt(10), Hours: 2,
	})
	require.NoError(t, err)

	var res models.FacilityReservation
	f.get(models.FacilityReservationsCollection, id, &res)
	assert.Equal(t, types.RESERVATION_RESERVED, res.Status)
	assert.Equal(t, int64(200000), res.BaseAmount)
	assert.Equal(t, int64(20000), res.VATCharge)
	assert.Equal(t, int64(220000), res.TotalAmount)
	assert.Equal(t, int64(22), f.user("u1").Points)

	var court models.Facility
	f.get(models.FacilitiesCollection, "court", &court)
	assert.False(t, court.LastReservedAt.IsZero())

	_, err = f.svc.Facilities.Reserve(f.ctx, stranger, types.CreateFacilityReservationRequestBody{
		FacilityID: "court", StartTime: tomorrowAt(11), Hours: 2,
	})
	assert.ErrorIs(t, err, apperror.ErrFacilityAlreadyReserved)

	// half-open windows: back to back is fine
	_, err = f.svc.Facilities.Reserve(f.ctx, stranger, types.CreateFacilityReservationRequestBody{
		FacilityID: "court", StartTime: tomorrowAt(12), Hours: 1,
	})
	assert.NoError(t, err)

	_, err = f.svc.Facilities.Reserve(f.ctx, stranger, types.CreateFacilityReservationRequestBody{
		FacilityID: "gym", StartTime: tomorrowAt(12), Hours: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrFacilityNotFound)

	_, err = f.svc.Facilities.Reserve(f.ctx, stranger, types.CreateFacilityReservationRequestBody{
		FacilityID: "pool", StartTime: tomorrowAt(12), Hours: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrResourceUnavailable)
}

func TestConcurrentFacilityReservationsDoNotOverlap(t *testing.T) {
	f := newFixture(t)
	f.seedFacilities()

	errs := runConcurrently(10, func(i int) error {
		_, err := f.svc.Facilities.Reserve(f.ctx, customer, types.CreateFacilityReservationRequestBody{
			FacilityID: "court", StartTime: tomorrowAt(8 + i%2), Hours: 2,
		})
		return err
	})
	ok, rejected := countOutcomes(errs, apperror.ErrFacilityAlreadyReserved)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, rejected)
}

func TestFacilityStartPolicy(t *testing.T) {
	f := newFixture(t)
	f.seedFacilities()

	_, err := f.svc.Facilities.Reserve(f.ctx, customer, types.CreateFacilityReservationRequestBody{
		FacilityID: "court", StartTime: time.Date(2026, 3, 10, 15, 0, 0, 0, ict), Hours: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidStartTime)

	_, err = f.svc.Facilities.Reserve(f.ctx, admin, types.CreateFacilityReservationRequestBody{
		FacilityID: "court", StartTime: time.Date(2026, 3, 10, 15, 0, 0, 0, ict), Hours: 1,
	})
	assert.NoError(t, err)

	_, err = f.svc.Facilities.Reserve(f.ctx, customer, types.CreateFacilityReservationRequestBody{
		FacilityID: "court", StartTime: tomorrowAt(0), Hours: 1,
	})
	assert.NoError(t, err)
}

func TestRoomsAreFree(t *testing.T) {
	f := newFixture(t)
	f.seedFacilities()
	f.setPoints("u1", types.RANK_GOLD, 40)

	id, err := f.svc.Facilities.Reserve(f.ctx, customer, types.CreateFacilityReservationRequestBody{
		FacilityID: "room", StartTime: tomorrowAt(9), Hours: 3, Points: 20,
	})
	require.NoError(t, err)
	var res models.FacilityReservation
	f.get(models.FacilityReservationsCollection, id, &res)
	assert.Equal(t, models.Charges{}, res.Charges)
	assert.Equal(t, int64(40), f.user("u1").Points)
}

func TestFacilityCancelFreesWindow(t *testing.T) {
	f := newFixture(t)
	f.seedFacilities()
	id, err := f.svc.Facilities.Reserve(f.ctx, customer, types.CreateFacilityReservationRequestBody{
		FacilityID: "court", StartTime: tomorrowAt(10), Hours: 2,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Facilities.Cancel(f.ctx, stranger, id), apperror.ErrNotOwner)
	require.NoError(t, f.svc.Facilities.Cancel(f.ctx, admin, id))
	assert.Equal(t, int64(0), f.user("u1").Points)
	assert.Equal(t, 1, f.events.count("reservations.cancelled"))

	_, err = f.svc.Facilities.Reserve(f.ctx, stranger, types.CreateFacilityReservationRequestBody{
		FacilityID: "court", StartTime: tomorrowAt(10), Hours: 2,
	})
	assert.NoError(t, err)
}

func TestParkingSubscriptionMonths(t *testing.T) {
	f := newFixture(t)
	f.seedFacilities()

	id, err := f.svc.Parking.Subscribe(f.ctx, customer, types.CreateParkingSubscriptionRequestBody{
		ParkingSpaceID: "p1", VehiclePlate: "59A-00001", StartTime: tomorrowAt(0), Months: 2,
	})
	require.NoError(t, err)
	var sub models.ParkingSubscription
	f.get(models.ParkingSubscriptionsCollection, id, &sub)
	assert.Equal(t, types.RESERVATION_RESERVED, sub.Status)
	assert.Equal(t, int64(1050000), sub.BaseAmount)
	assert.Equal(t, int64(1155000), sub.TotalAmount)
	assert.True(t, sub.EndTime.Equal(time.Date(2026, 5, 11, 0, 0, 0, 0, ict)))
	assert.Equal(t, int64(115), f.user("u1").Points)

	_, err = f.svc.Parking.Subscribe(f.ctx, stranger, types.CreateParkingSubscriptionRequestBody{
		ParkingSpaceID: "p1", VehiclePlate: "59A-00002", StartTime: time.Date(2026, 4, 1, 0, 0, 0, 0, ict), Months: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrParkingSpaceAlreadyReserved)

	_, err = f.svc.Parking.Subscribe(f.ctx, stranger, types.CreateParkingSubscriptionRequestBody{
		ParkingSpaceID: "p1", VehiclePlate: "59A-00002", StartTime: time.Date(2026, 5, 11, 0, 0, 0, 0, ict), Months: 1,
	})
	assert.NoError(t, err)

	_, err = f.svc.Parking.Subscribe(f.ctx, stranger, types.CreateParkingSubscriptionRequestBody{
		ParkingSpaceID: "p9", VehiclePlate: "59A-00002", StartTime: tomorrowAt(0), Months: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrParkingSpaceNotFound)

	_, err = f.svc.Parking.Subscribe(f.ctx, stranger, types.CreateParkingSubscriptionRequestBody{
		ParkingSpaceID: "p1", VehiclePlate: "59A-00002", StartTime: f.now, Months: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidStartTime)
}

func TestConcurrentParkingSubscriptions(t *testing.T) {
	f := newFixture(t)
	f.seedFacilities()

	errs := runConcurrently(6, func(i int) error {
		_, err := f.svc.Parking.Subscribe(f.ctx, stranger, types.CreateParkingSubscriptionRequestBody{
			ParkingSpaceID: "p1", VehiclePlate: "59A-00003", StartTime: tomorrowAt(0), Months: 1,
		})
		return err
	})
	ok, rejected := countOutcomes(errs, apperror.ErrParkingSpaceAlreadyReserved)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 5, rejected)
}

func TestParkingCancel(t *testing.T) {
	f := newFixture(t)
	f.seedFacilities()
	id, err := f.svc.Parking.Subscribe(f.ctx, customer, types.CreateParkingSubscriptionRequestBody{
		ParkingSpaceID: "p1", VehiclePlate: "59A-00001", StartTime: tomorrowAt(0), Months: 1,
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Parking.Cancel(f.ctx, customer, id))

	var sub models.ParkingSubscription
	f.get(models.ParkingSubscriptionsCollection, id, &sub)
	assert.Equal(t, types.RESERVATION_CANCELLED, sub.Status)
	assert.Equal(t, int64(0), f.user("u1").Points)
	assert.ErrorIs(t, f.svc.Parking.Cancel(f.ctx, customer, id), apperror.ErrInvalidStatusTransition)
}
