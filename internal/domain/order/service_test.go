package order

import (
	"context"
	"errors"
	"testing"

	"github.com/example/dessert-shop/internal/domain/cart"
	"github.com/example/dessert-shop/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore wraps a real store and fails selected operations.
type failingStore struct {
	store.Store
	createErr error
	updateErr error
}

func (fs *failingStore) Create(ctx context.Context, collection string, data any) (string, error) {
	if fs.createErr != nil {
		return "", fs.createErr
	}
	return fs.Store.Create(ctx, collection, data)
}

func (fs *failingStore) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	if fs.updateErr != nil {
		return fs.updateErr
	}
	return fs.Store.UpdateFields(ctx, collection, id, fields)
}

type recordingPublisher struct {
	events []Event
}

func (rp *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	rp.events = append(rp.events, event.(Event))
	return nil
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *recordingPublisher) {
	t.Helper()
	ms := store.NewMemoryStore()
	hub := store.NewHub(ms)
	t.Cleanup(hub.Close)
	ms.SetNotifier(hub)
	pub := &recordingPublisher{}
	return NewService(ms, hub, pub), ms, pub
}

func newTestCart(t *testing.T, lines ...cart.Line) *cart.Session {
	t.Helper()
	sess, err := cart.OpenSession(context.Background(), "sess-1", cart.NewDocStorage(store.NewMemoryStore()))
	require.NoError(t, err)
	for _, l := range lines {
		require.NoError(t, sess.AddLine(context.Background(), l, l.Qty))
	}
	return sess
}

var testAddress = Address{Name: "Jane", Line1: "12 Baker St", City: "Kochi", Phone: "9876543210"}

// ============================================
// Place
// ============================================

func TestService_Place_Success(t *testing.T) {
	svc, ms, pub := newTestService(t)
	ctx := context.Background()

	sess := newTestCart(t,
		cart.Line{ItemID: "a", Name: "Brownie", Price: 50, Qty: 2, ShopID: "shop-1"},
		cart.Line{ItemID: "b", Name: "Eclair", Price: 30, Qty: 1, ShopID: "shop-1"},
	)

	o, err := svc.Place(ctx, sess, testAddress, "cust-1")

	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "cust-1", o.CustomerID)
	assert.Equal(t, "shop-1", o.ShopID)
	assert.Equal(t, int64(130), o.Total)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Empty(t, o.DeliveryID)
	require.Len(t, o.Items, 2)
	assert.Equal(t, Line{ItemID: "a", Name: "Brownie", Price: 50, Qty: 2}, o.Items[0])

	// The cart is cleared only after the order is persisted.
	assert.Equal(t, 0, sess.Count())

	// And the document actually landed in the store.
	doc, err := ms.Get(ctx, store.CollectionOrders, o.ID)
	require.NoError(t, err)
	stored, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(130), stored.Total)

	require.Len(t, pub.events, 1)
	assert.Equal(t, EventOrderPlaced, pub.events[0].Type)
	assert.Equal(t, o.ID, pub.events[0].Placed.OrderID)
}

func TestService_Place_EmptyCart(t *testing.T) {
	svc, ms, pub := newTestService(t)
	ctx := context.Background()

	sess := newTestCart(t)

	o, err := svc.Place(ctx, sess, testAddress, "cust-1")

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, o)
	assert.Empty(t, pub.events)

	// No write happened.
	docs, err := ms.Query(ctx, store.CollectionOrders)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestService_Place_MissingAddress(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess := newTestCart(t, cart.Line{ItemID: "a", Price: 50, Qty: 1})

	o, err := svc.Place(ctx, sess, Address{Name: "Jane"}, "")

	assert.ErrorIs(t, err, ErrMissingAddress)
	assert.Nil(t, o)
	// The basket is untouched so the customer can fix the form and retry.
	assert.Equal(t, 1, sess.Count())
}

func TestService_Place_StoreFailureKeepsCart(t *testing.T) {
	ms := store.NewMemoryStore()
	fs := &failingStore{Store: ms, createErr: errors.New("store unavailable")}
	hub := store.NewHub(fs)
	defer hub.Close()
	svc := NewService(fs, hub, nil)
	ctx := context.Background()

	sess := newTestCart(t, cart.Line{ItemID: "a", Price: 50, Qty: 2})

	o, err := svc.Place(ctx, sess, testAddress, "cust-1")

	assert.Error(t, err)
	assert.Nil(t, o)
	assert.Equal(t, 2, sess.Count())
}

func TestService_Place_AnonymousCustomer(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess := newTestCart(t, cart.Line{ItemID: "a", Price: 50, Qty: 1, ShopID: "shop-1"})

	o, err := svc.Place(ctx, sess, testAddress, "")

	require.NoError(t, err)
	assert.Empty(t, o.CustomerID)
}

// ============================================
// Transition
// ============================================

func placeTestOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	sess := newTestCart(t, cart.Line{ItemID: "a", Name: "Brownie", Price: 50, Qty: 2, ShopID: "shop-1"})
	o, err := svc.Place(context.Background(), sess, testAddress, "cust-1")
	require.NoError(t, err)
	return o
}

func TestService_Transition_HappyPath(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	o := placeTestOrder(t, svc)

	shop := Actor{ID: "shop-1", Role: RoleShop}
	agent := Actor{ID: "agent-d", Role: RoleDelivery}

	o2, err := svc.Transition(ctx, o.ID, shop, StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, o2.Status)

	o3, err := svc.Transition(ctx, o.ID, shop, StatusReady)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, o3.Status)

	o4, err := svc.Transition(ctx, o.ID, agent, StatusOnTheWay)
	require.NoError(t, err)
	assert.Equal(t, StatusOnTheWay, o4.Status)
	assert.Equal(t, "agent-d", o4.DeliveryID)

	o5, err := svc.Transition(ctx, o.ID, agent, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, o5.Status)

	// Placed + four status changes.
	require.Len(t, pub.events, 5)
	last := pub.events[4]
	assert.Equal(t, EventOrderStatusChanged, last.Type)
	assert.Equal(t, StatusOnTheWay, last.StatusChanged.From)
	assert.Equal(t, StatusDelivered, last.StatusChanged.To)
}

func TestService_Transition_BackwardFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	o := placeTestOrder(t, svc)

	shop := Actor{ID: "shop-1", Role: RoleShop}
	_, err := svc.Transition(ctx, o.ID, shop, StatusPreparing)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, o.ID, shop, StatusReady)
	require.NoError(t, err)

	// ready -> preparing moves backward.
	_, err = svc.Transition(ctx, o.ID, shop, StatusPreparing)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_Transition_SkippingFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	o := placeTestOrder(t, svc)

	_, err := svc.Transition(ctx, o.ID, Actor{ID: "shop-1", Role: RoleShop}, StatusReady)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Transition(ctx, o.ID, Actor{ID: "agent-d", Role: RoleDelivery}, StatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_Transition_TerminalStateFrozen(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	o := placeTestOrder(t, svc)

	shop := Actor{ID: "shop-1", Role: RoleShop}
	agent := Actor{ID: "agent-d", Role: RoleDelivery}
	for _, target := range []Status{StatusPreparing, StatusReady} {
		_, err := svc.Transition(ctx, o.ID, shop, target)
		require.NoError(t, err)
	}
	for _, target := range []Status{StatusOnTheWay, StatusDelivered} {
		_, err := svc.Transition(ctx, o.ID, agent, target)
		require.NoError(t, err)
	}

	_, err := svc.Transition(ctx, o.ID, agent, StatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_Transition_ShopStepsRequireOwningShop(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	o := placeTestOrder(t, svc)

	// A different shop.
	_, err := svc.Transition(ctx, o.ID, Actor{ID: "shop-2", Role: RoleShop}, StatusPreparing)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Right id, wrong role.
	_, err = svc.Transition(ctx, o.ID, Actor{ID: "shop-1", Role: RoleDelivery}, StatusPreparing)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// A customer cannot advance fulfillment at all.
	_, err = svc.Transition(ctx, o.ID, Actor{ID: "cust-1", Role: RoleCustomer}, StatusPreparing)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_Transition_AcceptAssignsAgentAndLocksOut(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	o := placeTestOrder(t, svc)

	shop := Actor{ID: "shop-1", Role: RoleShop}
	_, err := svc.Transition(ctx, o.ID, shop, StatusPreparing)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, o.ID, shop, StatusReady)
	require.NoError(t, err)

	// Agent D accepts.
	o2, err := svc.Transition(ctx, o.ID, Actor{ID: "agent-d", Role: RoleDelivery}, StatusOnTheWay)
	require.NoError(t, err)
	assert.Equal(t, "agent-d", o2.DeliveryID)

	// Agent E raced on the same order: the order already moved on.
	_, err = svc.Transition(ctx, o.ID, Actor{ID: "agent-e", Role: RoleDelivery}, StatusOnTheWay)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// And E cannot complete D's delivery.
	_, err = svc.Transition(ctx, o.ID, Actor{ID: "agent-e", Role: RoleDelivery}, StatusDelivered)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// A shop cannot complete the delivery either.
	_, err = svc.Transition(ctx, o.ID, shop, StatusDelivered)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Transition(ctx, o.ID, Actor{ID: "agent-d", Role: RoleDelivery}, StatusDelivered)
	assert.NoError(t, err)
}

func TestService_Transition_OrderNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Transition(context.Background(), "missing", Actor{ID: "shop-1", Role: RoleShop}, StatusPreparing)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestService_Transition_StoreFailure(t *testing.T) {
	ms := store.NewMemoryStore()
	fs := &failingStore{Store: ms}
	hub := store.NewHub(fs)
	defer hub.Close()
	svc := NewService(fs, hub, nil)
	ctx := context.Background()
	o := placeTestOrder(t, svc)

	fs.updateErr = errors.New("store unavailable")

	_, err := svc.Transition(ctx, o.ID, Actor{ID: "shop-1", Role: RoleShop}, StatusPreparing)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidTransition)

	// The stored order is untouched.
	fs.updateErr = nil
	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, got.Status)
}

// ============================================
// Queries
// ============================================

func TestService_ListByShopAndCustomer(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess1 := newTestCart(t, cart.Line{ItemID: "a", Price: 50, Qty: 1, ShopID: "shop-1"})
	_, err := svc.Place(ctx, sess1, testAddress, "cust-1")
	require.NoError(t, err)

	sess2 := newTestCart(t, cart.Line{ItemID: "b", Price: 30, Qty: 1, ShopID: "shop-2"})
	_, err = svc.Place(ctx, sess2, testAddress, "cust-1")
	require.NoError(t, err)

	byShop, err := svc.ListByShop(ctx, "shop-1")
	require.NoError(t, err)
	require.Len(t, byShop, 1)
	assert.Equal(t, "shop-1", byShop[0].ShopID)

	byCustomer, err := svc.ListByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)
}

func TestService_ListForDelivery(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	shop := Actor{ID: "shop-1", Role: RoleShop}
	agentD := Actor{ID: "agent-d", Role: RoleDelivery}

	// One order ready for pickup.
	ready := placeTestOrder(t, svc)
	_, err := svc.Transition(ctx, ready.ID, shop, StatusPreparing)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, ready.ID, shop, StatusReady)
	require.NoError(t, err)

	// One order still being prepared.
	placed := placeTestOrder(t, svc)
	_ = placed

	// One order on the way with agent D.
	inflight := placeTestOrder(t, svc)
	for _, step := range []Status{StatusPreparing, StatusReady} {
		_, err = svc.Transition(ctx, inflight.ID, shop, step)
		require.NoError(t, err)
	}
	_, err = svc.Transition(ctx, inflight.ID, agentD, StatusOnTheWay)
	require.NoError(t, err)

	view, err := svc.ListForDelivery(ctx, "agent-d")
	require.NoError(t, err)
	assert.Len(t, view, 2)

	// Another agent only sees the ready order.
	other, err := svc.ListForDelivery(ctx, "agent-e")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, ready.ID, other[0].ID)
}

// ============================================
// End-to-end scenario
// ============================================

func TestEndToEnd_PlaceAndFulfill(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sess := newTestCart(t,
		cart.Line{ItemID: "a", Price: 50, Qty: 2, ShopID: "shop-1"},
		cart.Line{ItemID: "b", Price: 30, Qty: 1, ShopID: "shop-1"},
	)
	require.Equal(t, int64(130), sess.Total())

	o, err := svc.Place(ctx, sess, testAddress, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(130), o.Total)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, 0, sess.Count())

	shop := Actor{ID: "shop-1", Role: RoleShop}
	for _, step := range []Status{StatusPreparing, StatusReady} {
		_, err = svc.Transition(ctx, o.ID, shop, step)
		require.NoError(t, err)
	}

	got, err := svc.Transition(ctx, o.ID, Actor{ID: "agent-d", Role: RoleDelivery}, StatusOnTheWay)
	require.NoError(t, err)
	assert.Equal(t, "agent-d", got.DeliveryID)
	assert.Equal(t, StatusOnTheWay, got.Status)

	_, err = svc.Transition(ctx, o.ID, Actor{ID: "agent-e", Role: RoleDelivery}, StatusOnTheWay)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
