package services

import (
	"context"
	"encoding/json"
	"fms/src/availability"
	"fms/src/models"
	"fms/src/store"
	"fms/src/types"
	"log"
	"time"
)

// Jobs are the periodic sweeps run by the scheduler. Each record is handled
// in its own unit of work, so one bad record never blocks the rest.
type Jobs struct {
	*deps
	payments   *Payments
	reports    ReportUploader
	pendingTTL time.Duration
}

type expiry struct {
	collection string
	close      func(tx store.Tx, in cancelInput) error
}

var expiries = []expiry{
	{models.FacilityReservationsCollection, func(tx store.Tx, in cancelInput) error {
		_, err := closeFacilityReservation(tx, in, types.RESERVATION_EXPIRED, false)
		return err
	}},
	{models.ParkingSubscriptionsCollection, func(tx store.Tx, in cancelInput) error {
		_, err := closeParkingSubscription(tx, in, types.RESERVATION_EXPIRED, false)
		return err
	}},
	{models.BusSubscriptionsCollection, func(tx store.Tx, in cancelInput) error {
		_, err := closeBusSubscription(tx, in, types.RESERVATION_EXPIRED, false)
		return err
	}},
}

type idOnly struct {
	ID string `json:"id" firestore:"id"`
}

// ExpireReservations moves every active record whose window has ended to
// EXPIRED. Bus seats are released on the way. It returns how many records
// changed.
func (j *Jobs) ExpireReservations(ctx context.Context) (int, error) {
	now := j.now().UTC()
	expired := 0
	for _, e := range expiries {
		due := []idOnly{}
		if err := j.store.Query(ctx, e.collection, []store.Filter{
			store.Where("status", store.In, availability.Blocking.Slice()),
			store.Where("end_time", store.Lte, now),
		}, &due); err != nil {
			log.Printf("[Jobs] Error listing %s: %s\n", e.collection, err.Error())
			return expired, storeError(err, nil)
		}
		for _, d := range due {
			in := cancelInput{id: d.ID, now: now}
			err := j.store.RunTransaction(ctx, func(_ context.Context, tx store.Tx) error {
				return e.close(tx, in)
			})
			if err != nil {
				log.Printf("[Jobs] Error expiring %s/%s: %s\n", e.collection, d.ID, err.Error())
				continue
			}
			expired++
		}
	}
	if expired > 0 {
		log.Printf("[Jobs] expired %d reservations\n", expired)
	}
	return expired, nil
}

// FailStalePayments gives up on payments left pending longer than the TTL.
// It goes through Payments.Complete so a callback racing with the sweep is
// applied at most once.
func (j *Jobs) FailStalePayments(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.pendingTTL)
	stale := []models.Payment{}
	if err := j.store.Query(ctx, models.PaymentsCollection, []store.Filter{
		store.Where("status", store.Eq, types.PAYMENT_PENDING),
		store.Where("created_at", store.Lt, cutoff),
	}, &stale); err != nil {
		return 0, storeError(err, nil)
	}
	failed := 0
	for _, p := range stale {
		status, err := j.payments.Complete(ctx, types.CallbackResult{
			PaymentID: p.ID,
			Method:    p.Method,
			Success:   false,
			Message:   "payment window expired",
		})
		if err != nil {
			log.Printf("[Jobs] Error failing payment %s: %s\n", p.ID, err.Error())
			continue
		}
		if status == types.COMPLETION_APPLIED {
			failed++
		}
	}
	return failed, nil
}

// RecalculateRanks sets every user's rank from their points balance.
func (j *Jobs) RecalculateRanks(ctx context.Context) (int, error) {
	users := []models.User{}
	if err := j.store.Query(ctx, models.UsersCollection, nil, &users); err != nil {
		return 0, storeError(err, nil)
	}
	changed := 0
	now := j.now().UTC()
	for _, u := range users {
		rank := j.policy.RankForPoints(u.Points)
		if rank == u.Rank {
			continue
		}
		if err := j.store.Update(ctx, models.UsersCollection, u.ID, map[string]any{
			"rank":       rank,
			"updated_at": now,
		}); err != nil {
			log.Printf("[Jobs] Error updating rank of %s: %s\n", u.ID, err.Error())
			continue
		}
		changed++
	}
	return changed, nil
}

var reportOrder = []types.ReferenceType{
	types.REFERENCE_ORDER,
	types.REFERENCE_BUS_SUBSCRIPTION,
	types.REFERENCE_PARKING_SUBSCRIPTION,
	types.REFERENCE_FACILITY_RESERVATION,
}

// DailyReport totals the payments that succeeded on day (local calendar day)
// and uploads the result as JSON when an uploader is configured.
func (j *Jobs) DailyReport(ctx context.Context, day time.Time) (*types.DailyReport, error) {
	local := day.In(j.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, j.loc)
	end := start.AddDate(0, 0, 1)

	paid := []models.Payment{}
	if err := j.store.Query(ctx, models.PaymentsCollection, []store.Filter{
		store.Where("status", store.Eq, types.PAYMENT_SUCCESS),
		store.Where("updated_at", store.Gte, start.UTC()),
		store.Where("updated_at", store.Lt, end.UTC()),
	}, &paid); err != nil {
		return nil, storeError(err, nil)
	}

	lines := map[types.ReferenceType]*types.ReportLine{}
	report := &types.DailyReport{
		Day:         start.Format("2006-01-02"),
		GeneratedAt: j.now().UTC(),
		Lines:       []types.ReportLine{},
	}
	for _, p := range paid {
		line, ok := lines[p.ReferenceType]
		if !ok {
			line = &types.ReportLine{ReferenceType: p.ReferenceType}
			lines[p.ReferenceType] = line
		}
		line.Count++
		line.Amount += p.Amount
		report.Total += p.Amount
	}
	for _, rt := range reportOrder {
		if line, ok := lines[rt]; ok {
			report.Lines = append(report.Lines, *line)
		}
	}

	if j.reports == nil {
		return report, nil
	}
	body, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	key, err := j.reports.Upload(ctx, "daily/"+report.Day+".json", body, "application/json")
	if err != nil {
		log.Printf("[Jobs] Error uploading report for %s: %s\n", report.Day, err.Error())
		return report, err
	}
	log.Printf("[Jobs] report for %s uploaded to %s (total=%d)\n", report.Day, key, report.Total)
	return report, nil
}

// RunDailyReport reports on yesterday.
func (j *Jobs) RunDailyReport(ctx context.Context) error {
	_, err := j.DailyReport(ctx, j.now().In(j.loc).AddDate(0, 0, -1))
	return err
}
