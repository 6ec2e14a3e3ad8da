package services

import (
	"fms/src/apperror"
	"fms/src/models"
	"fms/src/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Catalog.CreateRestaurant(f.ctx, customer, types.CreateRestaurantRequestBody{Name: "Canteen"})
	assert.ErrorIs(t, err, apperror.ErrAdminRequired)
	_, err = f.svc.Catalog.CreateFacility(f.ctx, customer, types.CreateFacilityRequestBody{Name: "Court A", Type: types.FACILITY_COURT})
	assert.ErrorIs(t, err, apperror.ErrAdminRequired)
	_, err = f.svc.Catalog.RestockMenuItem(f.ctx, customer, "m-a", types.RestockMenuItemRequestBody{Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrAdminRequired)
}

func TestCatalogDuplicateCodes(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.Catalog.CreateFacility(f.ctx, admin, types.CreateFacilityRequestBody{
		Name: "Tennis Court A", Type: types.FACILITY_COURT, PricePerHour: 120000, VATPercent: 10,
	})
	require.NoError(t, err)
	var facility models.Facility
	f.get(models.FacilitiesCollection, id, &facility)
	assert.Equal(t, "tennis-court-a", facility.Code)
	assert.Equal(t, "s1", facility.SiteID)
	assert.Equal(t, types.RESOURCE_AVAILABLE, facility.Status)

	_, err = f.svc.Catalog.CreateFacility(f.ctx, admin, types.CreateFacilityRequestBody{
		Name: "tennis court a", Type: types.FACILITY_COURT,
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicateCode)

	// another site may reuse the code
	other := types.AuthContext{UID: "admin2", SiteID: "s2", Roles: []string{"admin"}}
	_, err = f.svc.Catalog.CreateFacility(f.ctx, other, types.CreateFacilityRequestBody{
		Name: "Tennis Court A", Type: types.FACILITY_COURT,
	})
	assert.NoError(t, err)

	_, err = f.svc.Catalog.CreateParkingSpace(f.ctx, admin, types.CreateParkingSpaceRequestBody{Name: "B1-01", MonthlyPrice: 500000})
	require.NoError(t, err)
	_, err = f.svc.Catalog.CreateParkingSpace(f.ctx, admin, types.CreateParkingSpaceRequestBody{Name: "b1 01"})
	assert.ErrorIs(t, err, apperror.ErrDuplicateCode)
}

func TestCatalogMenuAndRestock(t *testing.T) {
	f := newFixture(t)
	restaurantID, err := f.svc.Catalog.CreateRestaurant(f.ctx, admin, types.CreateRestaurantRequestBody{Name: "Canteen"})
	require.NoError(t, err)

	_, err = f.svc.Catalog.CreateMenuItem(f.ctx, admin, types.CreateMenuItemRequestBody{
		RestaurantID: "missing", Name: "Pho", Price: 40000,
	})
	assert.ErrorIs(t, err, apperror.ErrRestaurantNotFound)

	itemID, err := f.svc.Catalog.CreateMenuItem(f.ctx, admin, types.CreateMenuItemRequestBody{
		RestaurantID: restaurantID, Name: "Com Tam", Price: 40000, Quantity: 1,
	})
	require.NoError(t, err)
	_, err = f.svc.Catalog.CreateMenuItem(f.ctx, admin, types.CreateMenuItemRequestBody{
		RestaurantID: restaurantID, Name: "Com tam", Price: 45000,
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicateCode)

	menu, err := f.svc.Orders.Menu(f.ctx, customer, restaurantID)
	require.NoError(t, err)
	require.Len(t, menu, 1)

	item, err := f.svc.Catalog.RestockMenuItem(f.ctx, admin, itemID, types.RestockMenuItemRequestBody{Quantity: 9})
	require.NoError(t, err)
	assert.Equal(t, int64(10), item.Quantity)
	assert.Equal(t, int64(10), f.stock(itemID))
	_, cached, _ := f.cache.GetMenu(f.ctx, restaurantID)
	assert.False(t, cached)

	_, err = f.svc.Catalog.RestockMenuItem(f.ctx, admin, "missing", types.RestockMenuItemRequestBody{Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrMenuItemNotFound)
}

func TestCatalogCreateBus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Catalog.CreateBus(f.ctx, admin, types.CreateBusRequestBody{Plate: "51B-1", RouteID: "missing", Seats: 4})
	assert.ErrorIs(t, err, apperror.ErrBusRouteNotFound)

	routeID, err := f.svc.Catalog.CreateRoute(f.ctx, admin, types.CreateBusRouteRequestBody{Name: "District 7", MonthlyPrice: 350000})
	require.NoError(t, err)
	busID, err := f.svc.Catalog.CreateBus(f.ctx, admin, types.CreateBusRequestBody{Plate: "51B-99999", RouteID: routeID, Seats: 16})
	require.NoError(t, err)

	var bus models.Bus
	f.get(models.BusesCollection, busID, &bus)
	require.Len(t, bus.Seats, 16)
	assert.Equal(t, 1, bus.Seats[0].Number)
	assert.Equal(t, 16, bus.Seats[15].Number)
	for _, s := range bus.Seats {
		assert.True(t, s.Available)
	}

	_, err = f.svc.Buses.Subscribe(f.ctx, customer, types.CreateBusSubscriptionRequestBody{
		BusID: busID, RouteID: routeID, SeatNumber: 16, Months: 3,
	})
	assert.NoError(t, err)
}
