// Package services holds the booking engines. Every operation that touches a
// shared resource (menu stock, a bus seat list, a facility or parking window,
// a pending payment) runs as one unit of work on the store; everything else is
// a plain point write.
package services

import (
	"context"
	"errors"
	"fms/src/apperror"
	"fms/src/models"
	"fms/src/pricing"
	"fms/src/store"
	"fms/src/types"
	"log"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

type MenuCache interface {
	GetMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, bool, error)
	SetMenu(ctx context.Context, restaurantID string, items []models.MenuItem) error
	Invalidate(ctx context.Context, restaurantID string) error
}

type Gateway interface {
	Method() types.PaymentMethod
	Checkout(ctx context.Context, in types.CheckoutInput) (*types.CheckoutOutput, error)
}

type Notifier interface {
	PaymentConfirmed(ctx context.Context, user models.User, payment models.Payment) error
}

type ReportUploader interface {
	Upload(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

type Options struct {
	Store             store.Store
	Policy            pricing.Policy
	FoodVATPercent    int64
	Location          *time.Location
	PendingPaymentTTL time.Duration
	Publisher         Publisher
	Cache             MenuCache
	Gateways          []Gateway
	Notifier          Notifier
	Reports           ReportUploader
	Now               func() time.Time
}

type Services struct {
	Orders     *Orders
	Buses      *Buses
	Parking    *Parking
	Facilities *Facilities
	Payments   *Payments
	Catalog    *Catalog
	Jobs       *Jobs
}

// deps is shared by every engine.
type deps struct {
	store     store.Store
	policy    pricing.Policy
	loc       *time.Location
	now       func() time.Time
	publisher Publisher
	cache     MenuCache
}

func New(opts Options) *Services {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Policy.ExchangeValue == 0 {
		opts.Policy = pricing.DefaultPolicy()
	}
	if opts.PendingPaymentTTL == 0 {
		opts.PendingPaymentTTL = 30 * time.Minute
	}
	if opts.Publisher == nil {
		opts.Publisher = noopPublisher{}
	}
	if opts.Cache == nil {
		opts.Cache = noopCache{}
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	d := &deps{
		store:     opts.Store,
		policy:    opts.Policy,
		loc:       opts.Location,
		now:       opts.Now,
		publisher: opts.Publisher,
		cache:     opts.Cache,
	}
	gateways := map[types.PaymentMethod]Gateway{}
	for _, g := range opts.Gateways {
		gateways[g.Method()] = g
	}
	payments := &Payments{deps: d, gateways: gateways, notifier: opts.Notifier}
	return &Services{
		Orders:     &Orders{deps: d, foodVAT: opts.FoodVATPercent},
		Buses:      &Buses{deps: d},
		Parking:    &Parking{deps: d},
		Facilities: &Facilities{deps: d},
		Payments:   payments,
		Catalog:    &Catalog{deps: d},
		Jobs:       &Jobs{deps: d, payments: payments, reports: opts.Reports, pendingTTL: opts.PendingPaymentTTL},
	}
}

func (d *deps) publish(ctx context.Context, topic, key string, payload any) {
	if err := d.publisher.Publish(ctx, topic, key, payload); err != nil {
		log.Printf("[Events] Error publishing %s for %s: %s\n", topic, key, err.Error())
	}
}

// storeError maps a store failure to the taxonomy. notFound is used for
// store.ErrNotFound; errors already in the taxonomy pass through.
func storeError(err error, notFound *apperror.Error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if notFound != nil && errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	log.Printf("[Store] %s\n", err.Error())
	return apperror.Internalf(err, "storage failure")
}

// sameSite reports whether a document is visible to the caller's tenant.
// Callers without a site (service accounts) see every site.
func sameSite(auth types.AuthContext, siteID string) bool {
	return auth.SiteID == "" || siteID == "" || auth.SiteID == siteID
}

func readUser(tx store.Tx, auth types.AuthContext) (models.User, error) {
	var user models.User
	if err := tx.Get(models.UsersCollection, auth.UID, &user); err != nil {
		return user, storeError(err, apperror.ErrUserNotFound)
	}
	if !sameSite(auth, user.SiteID) {
		return user, apperror.ErrUserNotFound
	}
	return user, nil
}

// redeemable never lets a request spend more points than the user holds.
func redeemable(user models.User, requested int64) int64 {
	return max(0, min(requested, user.Points))
}

// chargesFor prices amount for user and returns the stored breakdown.
func (d *deps) chargesFor(user models.User, base, vat, pointsRequested int64) models.Charges {
	res := d.policy.ComputePayment(base+vat, user.Rank, redeemable(user, pointsRequested))
	return models.Charges{
		BaseAmount:   base,
		VATCharge:    vat,
		Discount:     res.Discount,
		PointsUsed:   res.FinalPointsUsed,
		PointsEarned: res.PointsEarned,
		TotalAmount:  res.FinalAmount,
	}
}

func pointsAfterCharge(points int64, c models.Charges) int64 {
	return points - c.PointsUsed + c.PointsEarned
}

func pointsAfterRefund(points int64, c models.Charges) int64 {
	return max(0, points+c.PointsUsed-c.PointsEarned)
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	return nil
}

type noopCache struct{}

func (noopCache) GetMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, bool, error) {
	return nil, false, nil
}

func (noopCache) SetMenu(ctx context.Context, restaurantID string, items []models.MenuItem) error {
	return nil
}

func (noopCache) Invalidate(ctx context.Context, restaurantID string) error {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) PaymentConfirmed(ctx context.Context, user models.User, payment models.Payment) error {
	return nil
}
