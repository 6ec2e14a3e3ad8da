package services

import (
	"context"
	"errors"
	"fms/src/apperror"
	"fms/src/lib"
	"fms/src/models"
	"fms/src/store"
	"fms/src/types"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Orders struct {
	*deps
	foodVAT int64
}

// Event is the payload published for every committed state change.
type Event struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	SiteID     string    `json:"site_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NormalizeName folds case and whitespace so "  Pho   BO " matches "pho bo".
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// orderLine is a requested dish resolved against the menu snapshot.
type orderLine struct {
	menuItemID string
	quantity   int64
}

type placeOrderInput struct {
	auth         types.AuthContext
	restaurantID string
	lines        []orderLine
	points       int64
	foodVAT      int64
	now          time.Time
}

// Menu returns the restaurant's menu, from cache when possible.
func (o *Orders) Menu(ctx context.Context, auth types.AuthContext, restaurantID string) ([]models.MenuItem, error) {
	var restaurant models.Restaurant
	if err := o.store.Get(ctx, models.RestaurantsCollection, restaurantID, &restaurant); err != nil {
		return nil, storeError(err, apperror.ErrRestaurantNotFound)
	}
	if !sameSite(auth, restaurant.SiteID) {
		return nil, apperror.ErrRestaurantNotFound
	}
	items, ok, err := o.cache.GetMenu(ctx, restaurantID)
	if err != nil {
		log.Printf("[Orders] menu cache read failed for %s: %s\n", restaurantID, err.Error())
	}
	if ok {
		return items, nil
	}
	items = []models.MenuItem{}
	if err := o.store.Query(ctx, models.MenuItemsCollection, []store.Filter{
		store.Where("restaurant_id", store.Eq, restaurantID),
	}, &items); err != nil {
		return nil, storeError(err, nil)
	}
	if err := o.cache.SetMenu(ctx, restaurantID, items); err != nil {
		log.Printf("[Orders] menu cache write failed for %s: %s\n", restaurantID, err.Error())
	}
	return items, nil
}

// resolveLines matches requested names against the snapshot. Repeated
// dishes are merged into one line.
func resolveLines(menu []models.MenuItem, items []types.OrderItemRequest) ([]orderLine, error) {
	byName := make(map[string]string, len(menu))
	for _, m := range menu {
		byName[NormalizeName(m.Name)] = m.ID
	}
	lines := []orderLine{}
	index := map[string]int{}
	for _, item := range items {
		id, ok := byName[NormalizeName(item.Name)]
		if !ok {
			return nil, apperror.ErrDishNotFoundInMenu
		}
		if i, seen := index[id]; seen {
			lines[i].quantity += item.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, orderLine{menuItemID: id, quantity: item.Quantity})
	}
	return lines, nil
}

// Create places an order: stock is re-read and decremented, the order and
// its detail snapshot are written and the user's points settle, all in one
// unit of work.
func (o *Orders) Create(ctx context.Context, auth types.AuthContext, body types.CreateOrderRequestBody) (string, error) {
	menu, err := o.Menu(ctx, auth, body.RestaurantID)
	if err != nil {
		return "", err
	}
	lines, err := resolveLines(menu, body.Items)
	if err != nil {
		return "", err
	}
	in := placeOrderInput{
		auth:         auth,
		restaurantID: body.RestaurantID,
		lines:        lines,
		points:       body.Points,
		foodVAT:      o.foodVAT,
		now:          o.now().UTC(),
	}
	order, err := store.Transact(ctx, o.store, func(tx store.Tx) (models.Order, error) {
		return o.placeOrder(tx, in)
	})
	if err != nil {
		return "", err
	}
	log.Printf("[Orders] order %s placed by %s total=%d\n", order.ID, auth.UID, order.TotalAmount)
	o.publish(ctx, lib.TopicOrdersCreated, order.ID, Event{
		Type: lib.TopicOrdersCreated, ID: order.ID, SiteID: order.SiteID, UserID: order.UserID,
		Status: string(order.Status), Amount: order.TotalAmount, OccurredAt: in.now,
	})
	return order.ID, nil
}

func (o *Orders) placeOrder(tx store.Tx, in placeOrderInput) (models.Order, error) {
	user, err := readUser(tx, in.auth)
	if err != nil {
		return models.Order{}, err
	}
	fresh := make([]models.MenuItem, len(in.lines))
	for i, line := range in.lines {
		if err := tx.Get(models.MenuItemsCollection, line.menuItemID, &fresh[i]); err != nil {
			return models.Order{}, storeError(err, apperror.ErrMenuItemNotFound)
		}
		if fresh[i].RestaurantID != in.restaurantID {
			return models.Order{}, apperror.ErrMenuItemNotFound
		}
		if line.quantity > fresh[i].Quantity {
			return models.Order{}, apperror.ErrDishQuantityExceedsStock
		}
	}

	order := models.Order{
		ID:           uuid.NewString(),
		SiteID:       user.SiteID,
		RestaurantID: in.restaurantID,
		UserID:       user.ID,
		Status:       types.ORDER_PENDING,
		Items:        make([]models.OrderLine, 0, len(in.lines)),
		CreatedAt:    in.now,
		UpdatedAt:    in.now,
	}
	var base int64
	for i, line := range in.lines {
		base += fresh[i].Price * line.quantity
		order.Items = append(order.Items, models.OrderLine{
			MenuItemID: fresh[i].ID,
			Name:       fresh[i].Name,
			Price:      fresh[i].Price,
			Quantity:   line.quantity,
		})
	}
	order.Charges = o.chargesFor(user, base, base*in.foodVAT/100, in.points)

	for i, line := range in.lines {
		if err := tx.Update(models.MenuItemsCollection, fresh[i].ID, map[string]any{
			"quantity":   fresh[i].Quantity - line.quantity,
			"updated_at": in.now,
		}); err != nil {
			return models.Order{}, storeError(err, apperror.ErrMenuItemNotFound)
		}
	}
	if err := tx.Create(models.OrdersCollection, order.ID, order); err != nil {
		return models.Order{}, storeError(err, nil)
	}
	for _, item := range order.Items {
		detail := models.OrderDetail{
			ID:         uuid.NewString(),
			SiteID:     order.SiteID,
			OrderID:    order.ID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			CreatedAt:  in.now,
		}
		if err := tx.Create(models.OrderDetailsCollection, detail.ID, detail); err != nil {
			return models.Order{}, storeError(err, nil)
		}
	}
	if err := tx.Update(models.UsersCollection, user.ID, map[string]any{
		"points":     pointsAfterCharge(user.Points, order.Charges),
		"updated_at": in.now,
	}); err != nil {
		return models.Order{}, storeError(err, apperror.ErrUserNotFound)
	}
	return order, nil
}

func (o *Orders) Get(ctx context.Context, auth types.AuthContext, id string) (*models.Order, error) {
	var order models.Order
	if err := o.store.Get(ctx, models.OrdersCollection, id, &order); err != nil {
		return nil, storeError(err, apperror.ErrOrderNotFound)
	}
	if !sameSite(auth, order.SiteID) {
		return nil, apperror.ErrOrderNotFound
	}
	if !auth.CanAccess(order.UserID) {
		return nil, apperror.ErrNotOwner
	}
	return &order, nil
}

// ListMine returns the caller's orders, newest first.
func (o *Orders) ListMine(ctx context.Context, auth types.AuthContext) ([]models.Order, error) {
	orders := []models.Order{}
	if err := o.store.Query(ctx, models.OrdersCollection, []store.Filter{
		store.Where("user_id", store.Eq, auth.UID),
	}, &orders); err != nil {
		return nil, storeError(err, nil)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

type cancelOrderInput struct {
	auth    types.AuthContext
	orderID string
	now     time.Time
}

// Cancel returns stock and points of a pending order.
func (o *Orders) Cancel(ctx context.Context, auth types.AuthContext, id string) error {
	in := cancelOrderInput{auth: auth, orderID: id, now: o.now().UTC()}
	order, err := store.Transact(ctx, o.store, func(tx store.Tx) (models.Order, error) {
		return cancelOrder(tx, in)
	})
	if err != nil {
		return err
	}
	o.publish(ctx, lib.TopicOrdersCancelled, order.ID, Event{
		Type: lib.TopicOrdersCancelled, ID: order.ID, SiteID: order.SiteID, UserID: order.UserID,
		Status: string(types.ORDER_CANCELLED), Amount: order.TotalAmount, OccurredAt: in.now,
	})
	return nil
}

func cancelOrder(tx store.Tx, in cancelOrderInput) (models.Order, error) {
	var order models.Order
	if err := tx.Get(models.OrdersCollection, in.orderID, &order); err != nil {
		return order, storeError(err, apperror.ErrOrderNotFound)
	}
	if !sameSite(in.auth, order.SiteID) {
		return order, apperror.ErrOrderNotFound
	}
	if !in.auth.CanAccess(order.UserID) {
		return order, apperror.ErrNotOwner
	}
	if order.Status != types.ORDER_PENDING {
		return order, apperror.ErrInvalidStatusTransition
	}
	var user models.User
	if err := tx.Get(models.UsersCollection, order.UserID, &user); err != nil {
		return order, storeError(err, apperror.ErrUserNotFound)
	}
	stock := map[string]models.MenuItem{}
	for _, item := range order.Items {
		var m models.MenuItem
		err := tx.Get(models.MenuItemsCollection, item.MenuItemID, &m)
		if err == nil {
			stock[m.ID] = m
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return order, storeError(err, nil)
		}
		log.Printf("[Orders] menu item %s gone, not restocking for order %s\n", item.MenuItemID, order.ID)
	}
	open, err := referencePayments(tx, types.REFERENCE_ORDER, order.ID, types.PAYMENT_PENDING)
	if err != nil {
		return order, err
	}

	for _, item := range order.Items {
		m, ok := stock[item.MenuItemID]
		if !ok {
			continue
		}
		m.Quantity += item.Quantity
		stock[item.MenuItemID] = m
		if err := tx.Update(models.MenuItemsCollection, m.ID, map[string]any{
			"quantity":   m.Quantity,
			"updated_at": in.now,
		}); err != nil {
			return order, storeError(err, nil)
		}
	}
	if err := tx.Update(models.OrdersCollection, order.ID, map[string]any{
		"status":     types.ORDER_CANCELLED,
		"updated_at": in.now,
	}); err != nil {
		return order, storeError(err, nil)
	}
	if err := tx.Update(models.UsersCollection, user.ID, map[string]any{
		"points":     pointsAfterRefund(user.Points, order.Charges),
		"updated_at": in.now,
	}); err != nil {
		return order, storeError(err, nil)
	}
	if err := voidPayments(tx, open, "order cancelled", in.now); err != nil {
		return order, err
	}
	return order, nil
}
