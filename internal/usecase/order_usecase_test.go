package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
	"bookstore/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// OrderTxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す。
// Returnでエラーを指定すればfnを実行せずそのまま返す（競合の再現用）。
type OrderTxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *OrderTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Repos)
}

type OrderTxReposMock struct {
	carts      repo.CartRepository
	cartItems  repo.CartItemRepository
	books      repo.BookRepository
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository

	// OrderUsecase では使わないが TxRepos interface を満たすために保持
	users repo.UserRepository
}

func (r *OrderTxReposMock) Users() repo.UserRepository           { return r.users }
func (r *OrderTxReposMock) Books() repo.BookRepository           { return r.books }
func (r *OrderTxReposMock) Carts() repo.CartRepository           { return r.carts }
func (r *OrderTxReposMock) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *OrderTxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *OrderTxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }

// =====================
// Repository mocks（衝突回避の命名）
// =====================

type OrderUserRepoMock struct{ mock.Mock }

func (m *OrderUserRepoMock) Create(ctx context.Context, user *model.User) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderUserRepoMock) FindByID(ctx context.Context, userID int64) (model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *OrderUserRepoMock) FindByEmail(ctx context.Context, email string) (model.User, error) {
	panic("not used in OrderUsecase tests")
}

type OrderCartRepoMock struct{ mock.Mock }

func (m *OrderCartRepoMock) Create(ctx context.Context, cart model.Cart) (model.Cart, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderCartRepoMock) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderCartRepoMock) FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

type OrderCartItemRepoMock struct{ mock.Mock }

func (m *OrderCartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *OrderCartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderCartItemRepoMock) UpsertByCartAndBook(ctx context.Context, cartID int64, bookID int64, addQty int64) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderCartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderCartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderCartItemRepoMock) DeleteByIDs(ctx context.Context, cartItemIDs []int64) error {
	args := m.Called(ctx, cartItemIDs)
	return args.Error(0)
}

func (m *OrderCartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	panic("not used in OrderUsecase tests")
}

type OrderBookRepoMock struct{ mock.Mock }

func (m *OrderBookRepoMock) List(ctx context.Context, page int, limit int) ([]model.Book, int64, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderBookRepoMock) Search(ctx context.Context, spec repo.BookSpecification, page int, limit int) ([]model.Book, int64, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderBookRepoMock) FindByID(ctx context.Context, id int64) (model.Book, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(model.Book)
	return b, args.Error(1)
}

func (m *OrderBookRepoMock) ListByCategoryID(ctx context.Context, categoryID int64) ([]model.Book, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderBookRepoMock) Create(ctx context.Context, b model.Book) (model.Book, error) {
	panic("not used in OrderUsecase tests")
}

func (m *OrderBookRepoMock) Update(ctx context.Context, b model.Book) error {
	panic("not used in OrderUsecase tests")
}

func (m *OrderBookRepoMock) SoftDelete(ctx context.Context, id int64) error {
	panic("not used in OrderUsecase tests")
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByUserAndID(ctx context.Context, userID int64, orderID int64) (model.Order, error) {
	args := m.Called(ctx, userID, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	args := m.Called(ctx, status)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

// =====================
// Cache / Events mocks
// =====================

type OrderCacheMock struct{ mock.Mock }

func (m *OrderCacheMock) Get(ctx context.Context, orderID int64) (usecase.OrderOutput, bool, error) {
	args := m.Called(ctx, orderID)
	out, _ := args.Get(0).(usecase.OrderOutput)
	return out, args.Bool(1), args.Error(2)
}

func (m *OrderCacheMock) Set(ctx context.Context, out usecase.OrderOutput) error {
	args := m.Called(ctx, out)
	return args.Error(0)
}

func (m *OrderCacheMock) Delete(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type OrderEventsMock struct{ mock.Mock }

func (m *OrderEventsMock) OrderCreated(ctx context.Context, out usecase.OrderOutput) error {
	args := m.Called(ctx, out)
	return args.Error(0)
}

func (m *OrderEventsMock) OrderStatusChanged(ctx context.Context, out usecase.OrderOutput, previous string) error {
	args := m.Called(ctx, out, previous)
	return args.Error(0)
}

// =====================
// Helpers
// =====================

func assertHTTPStatus(t *testing.T, err error, wantStatus int) {
	t.Helper()
	if assert.Error(t, err) {
		he, ok := usecase.AsHTTPError(err)
		if assert.True(t, ok, "err=%v want *HTTPError", err) {
			assert.Equal(t, wantStatus, he.Status)
		}
	}
}

type orderMocks struct {
	tx         *OrderTxManagerMock
	users      *OrderUserRepoMock
	carts      *OrderCartRepoMock
	cartItems  *OrderCartItemRepoMock
	books      *OrderBookRepoMock
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
}

func newOrderMocks() orderMocks {
	m := orderMocks{
		tx:         new(OrderTxManagerMock),
		users:      new(OrderUserRepoMock),
		carts:      new(OrderCartRepoMock),
		cartItems:  new(OrderCartItemRepoMock),
		books:      new(OrderBookRepoMock),
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
	}
	m.tx.Repos = &OrderTxReposMock{
		users:      m.users,
		carts:      m.carts,
		cartItems:  m.cartItems,
		books:      m.books,
		orders:     m.orders,
		orderItems: m.orderItems,
	}
	return m
}

func (m orderMocks) usecase() *usecase.OrderUsecase {
	return usecase.NewOrderUsecase(m.tx, m.users, nil, nil, nil)
}

// =====================
// PlaceOrder tests
// =====================

func TestOrderUsecase_PlaceOrder_Success_SnapshotsPricesAndDrainsCart(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()

	userID := int64(1)
	cartID := int64(7)
	orderID := int64(100)

	m.users.On("FindByID", mock.Anything, userID).Return(model.User{ID: userID}, nil)
	m.tx.On("WithinTx", mock.Anything).Return(nil)

	m.carts.On("FindByUserIDForUpdate", mock.Anything, userID).Return(model.Cart{ID: cartID, UserID: userID}, nil)
	m.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{
		{ID: 1, CartID: cartID, BookID: 10, Quantity: 2},
		{ID: 2, CartID: cartID, BookID: 11, Quantity: 3},
	}, nil)
	m.books.On("FindByID", mock.Anything, int64(10)).Return(model.Book{ID: 10, Price: decimal.NewFromInt(10)}, nil)
	m.books.On("FindByID", mock.Anything, int64(11)).Return(model.Book{ID: 11, Price: decimal.NewFromInt(5)}, nil)

	// 注文はPENDINGで作られ、合計は 2*10 + 3*5 = 35
	m.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == userID &&
			o.Status == model.OrderStatusPending &&
			o.Total.Equal(decimal.NewFromInt(35))
	})).Return(orderID, nil)

	m.orderItems.On("CreateBulk", mock.Anything, orderID, mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 2 &&
			items[0].Price.Equal(decimal.NewFromInt(20)) &&
			items[1].Price.Equal(decimal.NewFromInt(15))
	})).Return(nil)

	// ロック中に読んだ明細だけが消費される
	m.cartItems.On("DeleteByIDs", mock.Anything, []int64{1, 2}).Return(nil)

	m.orderItems.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{
		{ID: 1000, OrderID: orderID, BookID: 10, Quantity: 2, Price: decimal.NewFromInt(20)},
		{ID: 1001, OrderID: orderID, BookID: 11, Quantity: 3, Price: decimal.NewFromInt(15)},
	}, nil)

	uc := m.usecase()

	out, err := uc.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{ShippingAddress: "東京都千代田区1-1-1"})
	assert.NoError(t, err)
	assert.Equal(t, orderID, out.ID)
	assert.Equal(t, string(model.OrderStatusPending), out.Status)
	assert.True(t, out.Total.Equal(decimal.NewFromInt(35)), "total=%s", out.Total)
	assert.Equal(t, 2, len(out.Items))

	m.tx.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.orderItems.AssertExpectations(t)
	m.cartItems.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_EmptyCart_BadRequest(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()

	userID := int64(1)
	cartID := int64(7)

	m.users.On("FindByID", mock.Anything, userID).Return(model.User{ID: userID}, nil)
	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.carts.On("FindByUserIDForUpdate", mock.Anything, userID).Return(model.Cart{ID: cartID, UserID: userID}, nil)
	m.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{}, nil)

	uc := m.usecase()

	_, err := uc.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{ShippingAddress: "somewhere"})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	// 空カートで注文が作られてはいけない
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_BlankAddress_BadRequest(t *testing.T) {
	m := newOrderMocks()
	uc := m.usecase()

	_, err := uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{ShippingAddress: "   "})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestOrderUsecase_PlaceOrder_UserNotFound(t *testing.T) {
	m := newOrderMocks()
	m.users.On("FindByID", mock.Anything, int64(999)).Return(model.User{}, repo.ErrNotFound)

	uc := m.usecase()

	_, err := uc.PlaceOrder(context.Background(), 999, usecase.PlaceOrderInput{ShippingAddress: "somewhere"})
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_PlaceOrder_CartNotFound(t *testing.T) {
	m := newOrderMocks()
	userID := int64(1)

	m.users.On("FindByID", mock.Anything, userID).Return(model.User{ID: userID}, nil)
	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.carts.On("FindByUserIDForUpdate", mock.Anything, userID).Return(model.Cart{}, repo.ErrNotFound)

	uc := m.usecase()

	_, err := uc.PlaceOrder(context.Background(), userID, usecase.PlaceOrderInput{ShippingAddress: "somewhere"})
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_PlaceOrder_RetriesOnceOnConflict(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()

	userID := int64(1)
	cartID := int64(7)
	orderID := int64(100)

	m.users.On("FindByID", mock.Anything, userID).Return(model.User{ID: userID}, nil)

	// 1回目は直列化失敗、2回目で成功
	m.tx.On("WithinTx", mock.Anything).Return(repo.ErrConflict).Once()
	m.tx.On("WithinTx", mock.Anything).Return(nil).Once()

	m.carts.On("FindByUserIDForUpdate", mock.Anything, userID).Return(model.Cart{ID: cartID, UserID: userID}, nil)
	m.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{
		{ID: 1, CartID: cartID, BookID: 10, Quantity: 1},
	}, nil)
	m.books.On("FindByID", mock.Anything, int64(10)).Return(model.Book{ID: 10, Price: decimal.NewFromInt(10)}, nil)
	m.orders.On("Create", mock.Anything, mock.Anything).Return(orderID, nil)
	m.orderItems.On("CreateBulk", mock.Anything, orderID, mock.Anything).Return(nil)
	m.cartItems.On("DeleteByIDs", mock.Anything, []int64{1}).Return(nil)
	m.orderItems.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{
		{ID: 1000, OrderID: orderID, BookID: 10, Quantity: 1, Price: decimal.NewFromInt(10)},
	}, nil)

	uc := m.usecase()

	out, err := uc.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{ShippingAddress: "somewhere"})
	assert.NoError(t, err)
	assert.Equal(t, orderID, out.ID)

	m.tx.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_MidSequenceFailure_RollsBackWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()

	userID := int64(1)
	cartID := int64(7)
	orderID := int64(100)

	m.users.On("FindByID", mock.Anything, userID).Return(model.User{ID: userID}, nil)
	m.tx.On("WithinTx", mock.Anything).Return(nil)

	m.carts.On("FindByUserIDForUpdate", mock.Anything, userID).Return(model.Cart{ID: cartID, UserID: userID}, nil)
	m.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{
		{ID: 1, CartID: cartID, BookID: 10, Quantity: 2},
	}, nil)
	m.books.On("FindByID", mock.Anything, int64(10)).Return(model.Book{ID: 10, Price: decimal.NewFromInt(10)}, nil)
	m.orders.On("Create", mock.Anything, mock.Anything).Return(orderID, nil)

	// 明細書き込みの途中失敗。トランザクションごと失敗する
	m.orderItems.On("CreateBulk", mock.Anything, orderID, mock.Anything).Return(errors.New("connection reset"))

	cache := new(OrderCacheMock)
	events := new(OrderEventsMock)

	uc := usecase.NewOrderUsecase(m.tx, m.users, cache, events, nil)

	_, err := uc.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{ShippingAddress: "somewhere"})
	assertHTTPStatus(t, err, http.StatusInternalServerError)

	// ロールバックされた注文に副作用が漏れてはいけない
	m.cartItems.AssertNotCalled(t, "DeleteByIDs", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "OrderCreated", mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestOrderUsecase_PlaceOrder_ConflictTwice_Conflict(t *testing.T) {
	m := newOrderMocks()
	userID := int64(1)

	m.users.On("FindByID", mock.Anything, userID).Return(model.User{ID: userID}, nil)
	m.tx.On("WithinTx", mock.Anything).Return(repo.ErrConflict).Twice()

	uc := m.usecase()

	_, err := uc.PlaceOrder(context.Background(), userID, usecase.PlaceOrderInput{ShippingAddress: "somewhere"})
	assertHTTPStatus(t, err, http.StatusConflict)

	m.tx.AssertExpectations(t)
}

// =====================
// UpdateOrderStatus tests
// =====================

func TestOrderUsecase_UpdateOrderStatus_InvalidStatus(t *testing.T) {
	m := newOrderMocks()
	uc := m.usecase()

	_, err := uc.UpdateOrderStatus(context.Background(), 1, usecase.UpdateOrderStatusInput{Status: "XXX"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestOrderUsecase_UpdateOrderStatus_NotFound(t *testing.T) {
	m := newOrderMocks()
	orderID := int64(99)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{}, repo.ErrNotFound)

	uc := m.usecase()

	_, err := uc.UpdateOrderStatus(context.Background(), orderID, usecase.UpdateOrderStatusInput{Status: "SHIPPED"})
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_UpdateOrderStatus_SameStatus_NoOp(t *testing.T) {
	m := newOrderMocks()
	orderID := int64(1)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{
		ID: orderID, UserID: 1, Status: model.OrderStatusShipped,
	}, nil)
	m.orderItems.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{}, nil)

	uc := m.usecase()

	out, err := uc.UpdateOrderStatus(context.Background(), orderID, usecase.UpdateOrderStatusInput{Status: "shipped"})
	assert.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusShipped), out.Status)

	// 同一ステータスへの更新は書き込みなしで成功する
	m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_UpdateOrderStatus_TerminalGuard(t *testing.T) {
	m := newOrderMocks()
	orderID := int64(1)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{
		ID: orderID, UserID: 1, Status: model.OrderStatusDelivered,
	}, nil)
	m.orderItems.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{}, nil)

	uc := m.usecase()

	_, err := uc.UpdateOrderStatus(context.Background(), orderID, usecase.UpdateOrderStatusInput{Status: "CANCELLED"})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_UpdateOrderStatus_Success_InvalidatesCacheAndPublishes(t *testing.T) {
	ctx := context.Background()
	m := newOrderMocks()
	orderID := int64(1)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByID", mock.Anything, orderID).Return(model.Order{
		ID: orderID, UserID: 1, Status: model.OrderStatusPending,
	}, nil)
	m.orderItems.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{}, nil)
	m.orders.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusShipped).Return(nil)

	cache := new(OrderCacheMock)
	events := new(OrderEventsMock)
	cache.On("Delete", mock.Anything, orderID).Return(nil)
	events.On("OrderStatusChanged", mock.Anything, mock.MatchedBy(func(out usecase.OrderOutput) bool {
		return out.Status == string(model.OrderStatusShipped)
	}), string(model.OrderStatusPending)).Return(nil)

	uc := usecase.NewOrderUsecase(m.tx, m.users, cache, events, nil)

	out, err := uc.UpdateOrderStatus(ctx, orderID, usecase.UpdateOrderStatusInput{Status: "SHIPPED"})
	assert.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusShipped), out.Status)

	m.orders.AssertExpectations(t)
	cache.AssertExpectations(t)
	events.AssertExpectations(t)
}

// =====================
// Read path tests
// =====================

func TestOrderUsecase_GetMyOrderDetail_OtherUsersOrder_NotFound(t *testing.T) {
	m := newOrderMocks()

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	// 所有者スコープ付きの取得なので他人の注文はヒットしない
	m.orders.On("FindByUserAndID", mock.Anything, int64(2), int64(1)).Return(model.Order{}, repo.ErrNotFound)

	uc := m.usecase()

	_, err := uc.GetMyOrderDetail(context.Background(), 2, 1)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_GetMyOrderDetail_CacheHit_EnforcesOwnership(t *testing.T) {
	m := newOrderMocks()

	cache := new(OrderCacheMock)
	cache.On("Get", mock.Anything, int64(1)).Return(usecase.OrderOutput{ID: 1, UserID: 42}, true, nil)

	uc := usecase.NewOrderUsecase(m.tx, m.users, cache, nil, nil)

	// キャッシュにあっても他人の注文なら存在しない扱い
	_, err := uc.GetMyOrderDetail(context.Background(), 7, 1)
	assertHTTPStatus(t, err, http.StatusNotFound)

	m.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestOrderUsecase_GetMyOrderDetail_CacheMiss_LoadsAndCaches(t *testing.T) {
	m := newOrderMocks()
	orderID := int64(1)
	userID := int64(7)

	cache := new(OrderCacheMock)
	cache.On("Get", mock.Anything, orderID).Return(usecase.OrderOutput{}, false, nil)
	cache.On("Set", mock.Anything, mock.MatchedBy(func(out usecase.OrderOutput) bool {
		return out.ID == orderID && out.UserID == userID
	})).Return(nil)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByUserAndID", mock.Anything, userID, orderID).Return(model.Order{
		ID: orderID, UserID: userID, Status: model.OrderStatusPending,
	}, nil)
	m.orderItems.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{
		{ID: 10, OrderID: orderID, BookID: 3, Quantity: 1, Price: decimal.NewFromInt(8)},
	}, nil)

	uc := usecase.NewOrderUsecase(m.tx, m.users, cache, nil, nil)

	out, err := uc.GetMyOrderDetail(context.Background(), userID, orderID)
	assert.NoError(t, err)
	assert.True(t, out.Total.Equal(decimal.NewFromInt(8)))

	cache.AssertExpectations(t)
}

func TestOrderUsecase_GetOrderItemFromOrder_ItemNotInOrder(t *testing.T) {
	m := newOrderMocks()
	orderID := int64(1)
	userID := int64(7)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("FindByUserAndID", mock.Anything, userID, orderID).Return(model.Order{
		ID: orderID, UserID: userID, Status: model.OrderStatusPending,
	}, nil)
	m.orderItems.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{
		{ID: 10, OrderID: orderID, BookID: 3, Quantity: 1, Price: decimal.NewFromInt(8)},
	}, nil)

	uc := m.usecase()

	_, err := uc.GetOrderItemFromOrder(context.Background(), userID, orderID, 9999)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_ListMyOrders_Success(t *testing.T) {
	m := newOrderMocks()
	userID := int64(7)

	m.tx.On("WithinTx", mock.Anything).Return(nil)
	m.orders.On("ListByUserID", mock.Anything, userID).Return([]model.Order{
		{ID: 1, UserID: userID, Status: model.OrderStatusPending},
		{ID: 2, UserID: userID, Status: model.OrderStatusDelivered},
	}, nil)
	m.orderItems.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{}, nil)
	m.orderItems.On("ListByOrderID", mock.Anything, int64(2)).Return([]model.OrderItem{}, nil)

	uc := m.usecase()

	outs, err := uc.ListMyOrders(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(outs))
}

func TestOrderUsecase_ListOrdersByStatus_InvalidStatus(t *testing.T) {
	m := newOrderMocks()
	uc := m.usecase()

	_, err := uc.ListOrdersByStatus(context.Background(), "UNKNOWN")
	assertHTTPStatus(t, err, http.StatusBadRequest)
}
