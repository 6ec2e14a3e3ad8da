package services

import (
	"context"
	"fms/src/apperror"
	"fms/src/models"
	"fms/src/store"
	"fms/src/types"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Catalog manages the bookable things. Everything here is admin only.
type Catalog struct {
	*deps
}

type createDocInput struct {
	collection string
	id         string
	code       string
	// scope is the field the code must be unique within, with its value
	scopeField string
	scopeValue string
	doc        any
}

// createUnique inserts doc unless another document in the same scope
// already uses its code.
func createUnique(tx store.Tx, in createDocInput) (string, error) {
	existing := []map[string]any{}
	if err := tx.Query(in.collection, []store.Filter{
		store.Where(in.scopeField, store.Eq, in.scopeValue),
		store.Where("code", store.Eq, in.code),
	}, &existing); err != nil {
		return "", storeError(err, nil)
	}
	if len(existing) > 0 {
		return "", apperror.ErrDuplicateCode
	}
	if err := tx.Create(in.collection, in.id, in.doc); err != nil {
		return "", storeError(err, nil)
	}
	return in.id, nil
}

func (c *Catalog) create(ctx context.Context, in createDocInput) (string, error) {
	id, err := store.Transact(ctx, c.store, func(tx store.Tx) (string, error) {
		return createUnique(tx, in)
	})
	if err != nil {
		return "", err
	}
	log.Printf("[Catalog] created %s/%s (%s)\n", in.collection, id, in.code)
	return id, nil
}

func requireAdmin(auth types.AuthContext) error {
	if !auth.IsAdmin() {
		return apperror.ErrAdminRequired
	}
	return nil
}

func (c *Catalog) CreateRestaurant(ctx context.Context, auth types.AuthContext, body types.CreateRestaurantRequestBody) (string, error) {
	if err := requireAdmin(auth); err != nil {
		return "", err
	}
	r := models.Restaurant{
		ID:        uuid.NewString(),
		SiteID:    auth.SiteID,
		Name:      body.Name,
		Code:      slug.Make(body.Name),
		Status:    types.RESOURCE_AVAILABLE,
		CreatedAt: c.now().UTC(),
	}
	return c.create(ctx, createDocInput{
		collection: models.RestaurantsCollection, id: r.ID, code: r.Code,
		scopeField: "site_id", scopeValue: r.SiteID, doc: r,
	})
}

// CreateMenuItem adds a dish. Codes are unique per restaurant.
func (c *Catalog) CreateMenuItem(ctx context.Context, auth types.AuthContext, body types.CreateMenuItemRequestBody) (string, error) {
	if err := requireAdmin(auth); err != nil {
		return "", err
	}
	var restaurant models.Restaurant
	if err := c.store.Get(ctx, models.RestaurantsCollection, body.RestaurantID, &restaurant); err != nil {
		return "", storeError(err, apperror.ErrRestaurantNotFound)
	}
	if !sameSite(auth, restaurant.SiteID) {
		return "", apperror.ErrRestaurantNotFound
	}
	now := c.now().UTC()
	item := models.MenuItem{
		ID:           uuid.NewString(),
		SiteID:       restaurant.SiteID,
		RestaurantID: restaurant.ID,
		Name:         body.Name,
		Code:         slug.Make(body.Name),
		Price:        body.Price,
		Quantity:     body.Quantity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := c.create(ctx, createDocInput{
		collection: models.MenuItemsCollection, id: item.ID, code: item.Code,
		scopeField: "restaurant_id", scopeValue: restaurant.ID, doc: item,
	})
	if err != nil {
		return "", err
	}
	c.invalidateMenu(ctx, restaurant.ID)
	return id, nil
}

type restockInput struct {
	auth       types.AuthContext
	menuItemID string
	quantity   int64
	now        time.Time
}

// RestockMenuItem adds to the remaining stock of a dish. It runs as a unit of
// work so it cannot lose a concurrent order's decrement.
func (c *Catalog) RestockMenuItem(ctx context.Context, auth types.AuthContext, id string, body types.RestockMenuItemRequestBody) (*models.MenuItem, error) {
	if err := requireAdmin(auth); err != nil {
		return nil, err
	}
	in := restockInput{auth: auth, menuItemID: id, quantity: body.Quantity, now: c.now().UTC()}
	item, err := store.Transact(ctx, c.store, func(tx store.Tx) (models.MenuItem, error) {
		return restock(tx, in)
	})
	if err != nil {
		return nil, err
	}
	c.invalidateMenu(ctx, item.RestaurantID)
	return &item, nil
}

func restock(tx store.Tx, in restockInput) (models.MenuItem, error) {
	var item models.MenuItem
	if err := tx.Get(models.MenuItemsCollection, in.menuItemID, &item); err != nil {
		return item, storeError(err, apperror.ErrMenuItemNotFound)
	}
	if !sameSite(in.auth, item.SiteID) {
		return item, apperror.ErrMenuItemNotFound
	}
	item.Quantity += in.quantity
	item.UpdatedAt = in.now
	if err := tx.Update(models.MenuItemsCollection, item.ID, map[string]any{
		"quantity":   item.Quantity,
		"updated_at": in.now,
	}); err != nil {
		return item, storeError(err, apperror.ErrMenuItemNotFound)
	}
	return item, nil
}

func (c *Catalog) invalidateMenu(ctx context.Context, restaurantID string) {
	if err := c.cache.Invalidate(ctx, restaurantID); err != nil {
		log.Printf("[Catalog] Error invalidating menu %s: %s\n", restaurantID, err.Error())
	}
}

func (c *Catalog) CreateFacility(ctx context.Context, auth types.AuthContext, body types.CreateFacilityRequestBody) (string, error) {
	if err := requireAdmin(auth); err != nil {
		return "", err
	}
	f := models.Facility{
		ID:            uuid.NewString(),
		SiteID:        auth.SiteID,
		Code:          slug.Make(body.Name),
		Name:          body.Name,
		Type:          body.Type,
		Status:        types.RESOURCE_AVAILABLE,
		PricePerHour:  body.PricePerHour,
		ServiceCharge: body.ServiceCharge,
		VATPercent:    body.VATPercent,
		CreatedAt:     c.now().UTC(),
	}
	return c.create(ctx, createDocInput{
		collection: models.FacilitiesCollection, id: f.ID, code: f.Code,
		scopeField: "site_id", scopeValue: f.SiteID, doc: f,
	})
}

func (c *Catalog) CreateParkingSpace(ctx context.Context, auth types.AuthContext, body types.CreateParkingSpaceRequestBody) (string, error) {
	if err := requireAdmin(auth); err != nil {
		return "", err
	}
	s := models.ParkingSpace{
		ID:            uuid.NewString(),
		SiteID:        auth.SiteID,
		Code:          slug.Make(body.Name),
		Name:          body.Name,
		Status:        types.RESOURCE_AVAILABLE,
		MonthlyPrice:  body.MonthlyPrice,
		ServiceCharge: body.ServiceCharge,
		VATPercent:    body.VATPercent,
		CreatedAt:     c.now().UTC(),
	}
	return c.create(ctx, createDocInput{
		collection: models.ParkingSpacesCollection, id: s.ID, code: s.Code,
		scopeField: "site_id", scopeValue: s.SiteID, doc: s,
	})
}

func (c *Catalog) CreateRoute(ctx context.Context, auth types.AuthContext, body types.CreateBusRouteRequestBody) (string, error) {
	if err := requireAdmin(auth); err != nil {
		return "", err
	}
	r := models.BusRoute{
		ID:           uuid.NewString(),
		SiteID:       auth.SiteID,
		Name:         body.Name,
		Code:         slug.Make(body.Name),
		MonthlyPrice: body.MonthlyPrice,
		CreatedAt:    c.now().UTC(),
	}
	return c.create(ctx, createDocInput{
		collection: models.BusRoutesCollection, id: r.ID, code: r.Code,
		scopeField: "site_id", scopeValue: r.SiteID, doc: r,
	})
}

// CreateBus registers a bus on a route with seats numbered from 1, all
// available.
func (c *Catalog) CreateBus(ctx context.Context, auth types.AuthContext, body types.CreateBusRequestBody) (string, error) {
	if err := requireAdmin(auth); err != nil {
		return "", err
	}
	var route models.BusRoute
	if err := c.store.Get(ctx, models.BusRoutesCollection, body.RouteID, &route); err != nil {
		return "", storeError(err, apperror.ErrBusRouteNotFound)
	}
	if !sameSite(auth, route.SiteID) {
		return "", apperror.ErrBusRouteNotFound
	}
	now := c.now().UTC()
	bus := models.Bus{
		ID:        uuid.NewString(),
		SiteID:    route.SiteID,
		Plate:     body.Plate,
		Code:      slug.Make(body.Plate),
		RouteID:   route.ID,
		Seats:     make([]models.Seat, body.Seats),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range bus.Seats {
		bus.Seats[i] = models.Seat{Number: i + 1, Available: true}
	}
	return c.create(ctx, createDocInput{
		collection: models.BusesCollection, id: bus.ID, code: bus.Code,
		scopeField: "site_id", scopeValue: bus.SiteID, doc: bus,
	})
}
