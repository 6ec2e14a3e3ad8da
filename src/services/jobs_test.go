package services

import (
	"fms/src/models"
	"fms/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestExpireReservations(t *testing.T) {
	f := newFixture(t)
	f.seedBuses()
	f.seedFacilities()

	resID, err := f.svc.Facilities.Reserve(f.ctx, customer, types.CreateFacilityReservationRequestBody{
		FacilityID: "court", StartTime: tomorrowAt(10), Hours: 2,
	})
	require.NoError(t, err)
	courtPayment, err := f.svc.Payments.Create(f.ctx, customer, types.CreatePaymentRequestBody{
		ReferenceType: types.REFERENCE_FACILITY_RESERVATION, ReferenceID: resID, Method: types.PAYMENT_VNPAY,
	})
	require.NoError(t, err)
	subID, err := f.svc.Buses.Subscribe(f.ctx, customer, types.CreateBusSubscriptionRequestBody{
		BusID: "b1", RouteID: "rt1", SeatNumber: 3, Months: 1,
	})
	require.NoError(t, err)
	parkID, err := f.svc.Parking.Subscribe(f.ctx, customer, types.CreateParkingSubscriptionRequestBody{
		ParkingSpaceID: "p1", VehiclePlate: "59A-00001", StartTime: tomorrowAt(0), Months: 1,
	})
	require.NoError(t, err)
	pointsBefore := f.user("u1").Points

	n, err := f.svc.Jobs.ExpireReservations(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.now = time.Date(2026, 3, 12, 9, 0, 0, 0, ict)
	n, err = f.svc.Jobs.ExpireReservations(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	var res models.FacilityReservation
	f.get(models.FacilityReservationsCollection, resID, &res)
	assert.Equal(t, types.RESERVATION_EXPIRED, res.Status)
	voided := f.payment(courtPayment.ID)
	assert.Equal(t, types.PAYMENT_CANCELLED, voided.Status)
	assert.Equal(t, "reservation expired", voided.Message)

	f.now = time.Date(2026, 4, 20, 9, 0, 0, 0, ict)
	n, err = f.svc.Jobs.ExpireReservations(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var sub models.BusSubscription
	f.get(models.BusSubscriptionsCollection, subID, &sub)
	assert.Equal(t, types.RESERVATION_EXPIRED, sub.Status)
	assert.True(t, f.seat("b1", 3).Available)
	var park models.ParkingSubscription
	f.get(models.ParkingSubscriptionsCollection, parkID, &park)
	assert.Equal(t, types.RESERVATION_EXPIRED, park.Status)

	// expiry is not a refund
	assert.Equal(t, pointsBefore, f.user("u1").Points)
}

func TestFailStalePayments(t *testing.T) {
	f := newFixture(t)
	orderID := f.placeOrder()
	p := f.payOrder(orderID)

	n, err := f.svc.Jobs.FailStalePayments(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.now = f.now.Add(31 * time.Minute)
	n, err = f.svc.Jobs.FailStalePayments(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, types.PAYMENT_FAILED, f.payment(p.ID).Status)

	status, err := f.svc.Payments.Complete(f.ctx, types.CallbackResult{
		PaymentID: p.ID, Method: types.PAYMENT_VNPAY, Success: true, Amount: 5500,
	})
	require.NoError(t, err)
	assert.Equal(t, types.COMPLETION_ALREADY_PROCESSED, status)
	var order models.Order
	f.get(models.OrdersCollection, orderID, &order)
	assert.Equal(t, types.ORDER_PENDING, order.Status)
}

func TestRecalculateRanks(t *testing.T) {
	f := newFixture(t)
	f.setPoints("u1", types.RANK_BRONZE, 1500)
	f.setPoints("u2", types.RANK_DIAMOND, 10)

	n, err := f.svc.Jobs.RecalculateRanks(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, types.RANK_SILVER, f.user("u1").Rank)
	assert.Equal(t, types.RANK_BRONZE, f.user("u2").Rank)

	n, err = f.svc.Jobs.RecalculateRanks(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDailyReport(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 2; i++ {
		p := f.payOrder(f.placeOrder())
		_, err := f.svc.Payments.Complete(f.ctx, types.CallbackResult{
			PaymentID: p.ID, Method: types.PAYMENT_VNPAY, Success: true, Amount: p.Amount,
		})
		require.NoError(t, err)
	}
	f.payOrder(f.placeOrder())

	report, err := f.svc.Jobs.DailyReport(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", report.Day)
	require.Len(t, report.Lines, 1)
	assert.Equal(t, types.REFERENCE_ORDER, report.Lines[0].ReferenceType)
	assert.Equal(t, 2, report.Lines[0].Count)
	assert.Equal(t, int64(11000), report.Total)

	require.Len(t, f.reports.keys, 1)
	assert.Equal(t, "daily/2026-03-10.json", f.reports.keys[0])
	body := f.reports.bodies[0]
	assert.Equal(t, int64(11000), gjson.GetBytes(body, "total").Int())
	assert.Equal(t, "order", gjson.GetBytes(body, "lines.0.reference_type").String())

	f.now = f.now.Add(24 * time.Hour)
	require.NoError(t, f.svc.Jobs.RunDailyReport(f.ctx))
	assert.Equal(t, "daily/2026-03-10.json", f.reports.keys[1])

	empty, err := f.svc.Jobs.DailyReport(f.ctx, f.now)
	require.NoError(t, err)
	assert.Empty(t, empty.Lines)
	assert.Equal(t, int64(0), empty.Total)
}
