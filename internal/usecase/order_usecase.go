package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/shopspring/decimal"
)

// 注文ビューの読み取りキャッシュ。注文の明細は作成後不変なので
// ステータス変更時にだけ無効化すればよい。
type OrderViewCache interface {
	Get(ctx context.Context, orderID int64) (OrderOutput, bool, error)
	Set(ctx context.Context, out OrderOutput) error
	Delete(ctx context.Context, orderID int64) error
}

// 注文イベントの発行先。発行失敗で注文処理は失敗させない。
type OrderEventPublisher interface {
	OrderCreated(ctx context.Context, out OrderOutput) error
	OrderStatusChanged(ctx context.Context, out OrderOutput, previous string) error
}

type OrderUsecase struct {
	tx       repo.TransactionManager
	userRepo repo.UserRepository
	cache    OrderViewCache
	events   OrderEventPublisher
	logger   *slog.Logger
}

// cache/eventsはnil可（無効化）。
func NewOrderUsecase(
	tx repo.TransactionManager,
	userRepo repo.UserRepository,
	cache OrderViewCache,
	events OrderEventPublisher,
	logger *slog.Logger,
) *OrderUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderUsecase{
		tx:       tx,
		userRepo: userRepo,
		cache:    cache,
		events:   events,
		logger:   logger,
	}
}

type PlaceOrderInput struct {
	ShippingAddress string
}

type UpdateOrderStatusInput struct {
	Status string
}

type OrderItemOutput struct {
	ID       int64           `json:"id"`
	BookID   int64           `json:"book_id"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"user_id"`
	Status          string            `json:"status"`
	ShippingAddress string            `json:"shipping_address"`
	OrderDate       time.Time         `json:"order_date"`
	Total           decimal.Decimal   `json:"total"`
	Items           []OrderItemOutput `json:"items"`
}

// PlaceOrder はカートの中身を注文に変換する。
// 注文行・明細行の作成とカート明細の削除は1トランザクションで、
// 途中で失敗したら全部ロールバックされる。競合は1回だけリトライ。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	addr := strings.TrimSpace(in.ShippingAddress)
	if addr == "" || len(addr) > 500 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping_address")
	}

	//ユーザー存在確認
	if _, err := u.userRepo.FindByID(ctx, userID); err != nil {
		if err == repo.ErrNotFound {
			return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out, err := u.placeOrderOnce(ctx, userID, addr)
	if errors.Is(err, repo.ErrConflict) {
		// 同一カートへの同時注文。1回だけ透過リトライする。
		out, err = u.placeOrderOnce(ctx, userID, addr)
	}
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return OrderOutput{}, he
		}
		if errors.Is(err, repo.ErrConflict) {
			return OrderOutput{}, NewHTTPError(http.StatusConflict, "conflict")
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if u.events != nil {
		if err := u.events.OrderCreated(ctx, out); err != nil {
			u.logger.Warn("order created event publish failed",
				"order_id", out.ID, "error", err)
		}
	}
	if u.cache != nil {
		if err := u.cache.Set(ctx, out); err != nil {
			u.logger.Warn("order view cache set failed",
				"order_id", out.ID, "error", err)
		}
	}

	return out, nil
}

func (u *OrderUsecase) placeOrderOnce(ctx context.Context, userID int64, shippingAddress string) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// カートを行ロック付きで取得。同一ユーザーの同時注文はここで直列化され、
		// 負けた方は空カートを見ることになる。
		cart, err := r.Carts().FindByUserIDForUpdate(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return err
		}
		// 空カートの注文は受けない
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		now := time.Now()
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		consumedIDs := make([]int64, 0, len(cartItems))
		total := decimal.Zero

		for _, ci := range cartItems {
			b, err := r.Books().FindByID(ctx, ci.BookID)
			if err == repo.ErrNotFound {
				// カートに入れた後に書籍が消された
				return NewHTTPError(http.StatusBadRequest, "invalid cart item")
			}
			if err != nil {
				return err
			}

			// この瞬間の価格でスナップショット
			price := b.Price.Mul(decimal.NewFromInt(ci.Quantity))
			orderItems = append(orderItems, model.OrderItem{
				BookID:   ci.BookID,
				Quantity: ci.Quantity,
				Price:    price,
			})
			consumedIDs = append(consumedIDs, ci.ID)
			total = total.Add(price)
		}

		order := model.Order{
			UserID:          userID,
			OrderDate:       now,
			ShippingAddress: shippingAddress,
			Status:          model.OrderStatusPending,
			Total:           total,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return err
		}

		// 消費した明細だけを削除。カート自体は残すし、
		// ロック取得後に追加された明細も残る。
		if err := r.CartItems().DeleteByIDs(ctx, consumedIDs); err != nil {
			return err
		}

		created, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		order.ID = orderID
		out = toOrderOutput(order, created)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// UpdateOrderStatus は検証済みの遷移だけを適用する。
// 同じステータスへの更新は冪等に成功させる。DELIVERED/CANCELLEDは終端。
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, orderID int64, in UpdateOrderStatusInput) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !newStatus.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out OrderOutput
	var previous model.OrderStatus
	changed := false

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		// すでに同じなら何もしない
		if o.Status == newStatus {
			out = toOrderOutput(o, items)
			return nil
		}
		// 終端ガード
		if o.Status.Terminal() {
			return NewHTTPError(http.StatusBadRequest, "status is final")
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return err
		}

		previous = o.Status
		changed = true
		o.Status = newStatus
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return OrderOutput{}, he
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if changed {
		if u.cache != nil {
			if err := u.cache.Delete(ctx, orderID); err != nil {
				u.logger.Warn("order view cache invalidate failed",
					"order_id", orderID, "error", err)
			}
		}
		if u.events != nil {
			if err := u.events.OrderStatusChanged(ctx, out, string(previous)); err != nil {
				u.logger.Warn("order status event publish failed",
					"order_id", orderID, "error", err)
			}
		}
	}

	return out, nil
}

// 自分の注文履歴
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByUserID(ctx, userID)
		if err != nil {
			return err
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return err
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return []OrderOutput{}, he
		}
		return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return outs, nil
}

// ステータスで絞った一覧（管理者用）
func (u *OrderUsecase) ListOrdersByStatus(ctx context.Context, status string) ([]OrderOutput, error) {
	s := model.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !s.Valid() {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByStatus(ctx, s)
		if err != nil {
			return err
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return err
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return []OrderOutput{}, he
		}
		return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return outs, nil
}

// 自分の注文詳細。他人の注文は「存在しない扱い」。
func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	// キャッシュヒットでも所有チェックは必ず通す
	if u.cache != nil {
		if cached, ok, err := u.cache.Get(ctx, orderID); err == nil && ok {
			if cached.UserID != userID {
				return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
			}
			return cached, nil
		}
	}

	out, err := u.loadOrderForUser(ctx, userID, orderID)
	if err != nil {
		return OrderOutput{}, err
	}

	if u.cache != nil {
		if err := u.cache.Set(ctx, out); err != nil {
			u.logger.Warn("order view cache set failed",
				"order_id", orderID, "error", err)
		}
	}
	return out, nil
}

// 注文の明細一覧（所有者スコープ）
func (u *OrderUsecase) GetOrderItems(ctx context.Context, userID int64, orderID int64) ([]OrderItemOutput, error) {
	out, err := u.GetMyOrderDetail(ctx, userID, orderID)
	if err != nil {
		return []OrderItemOutput{}, err
	}
	return out.Items, nil
}

// 注文内の明細1件（所有者スコープ）
func (u *OrderUsecase) GetOrderItemFromOrder(ctx context.Context, userID int64, orderID int64, itemID int64) (OrderItemOutput, error) {
	if itemID <= 0 {
		return OrderItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	out, err := u.GetMyOrderDetail(ctx, userID, orderID)
	if err != nil {
		return OrderItemOutput{}, err
	}

	for _, it := range out.Items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return OrderItemOutput{}, NewHTTPError(http.StatusNotFound, "not found")
}

func (u *OrderUsecase) loadOrderForUser(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByUserAndID(ctx, userID, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return OrderOutput{}, he
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	// 0件でも合計はゼロ値から積む
	total := decimal.Zero

	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:       it.ID,
			BookID:   it.BookID,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
		total = total.Add(it.Price)
	}

	return OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		OrderDate:       o.OrderDate,
		Total:           total,
		Items:           outItems,
	}
}
