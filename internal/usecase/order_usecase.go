package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/event"
	"foodorder/internal/payment"
	repo "foodorder/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 注文まわりのメトリクス
type OrderMetrics interface {
	OrderPlaced()
	PaymentConfirmed(source string)
	OrderRemoved(reason string)
	GatewayCall(operation string, d time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) OrderPlaced()                             {}
func (nopMetrics) PaymentConfirmed(string)                  {}
func (nopMetrics) OrderRemoved(string)                      {}
func (nopMetrics) GatewayCall(string, time.Duration, error) {}

const (
	sourceClient  = "client"
	sourceWebhook = "webhook"

	reasonCancelled      = "cancelled"
	reasonSessionExpired = "session_expired"
	reasonGatewayFailure = "gateway_failure"
)

type OrderOptions struct {
	FrontendURL string
	Currency    string
	DeliveryFee decimal.Decimal
	// true ならクライアントのsuccessをゲートウェイで確認し、支払い済みの注文は消さない
	VerifyWithGateway bool
	// true ならステータスを遷移表で検証する。false は任意の文字列で上書き
	StrictStatus bool
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	gateway   payment.Gateway
	publisher event.Publisher
	metrics   OrderMetrics
	log       *zap.Logger
	opts      OrderOptions
	dedup     EventDeduper

	newID func() string
	now   func() time.Time
}

// DI
func NewOrderUsecase(
	tx repo.TransactionManager,
	gateway payment.Gateway,
	publisher event.Publisher,
	metrics OrderMetrics,
	log *zap.Logger,
	opts OrderOptions,
) *OrderUsecase {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	opts.FrontendURL = strings.TrimRight(opts.FrontendURL, "/")

	return &OrderUsecase{
		tx:        tx,
		gateway:   gateway,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		opts:      opts,
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
}

type PlaceOrderInput struct {
	Items   model.OrderItems
	Amount  decimal.Decimal
	Address model.Address
}

type PlaceOrderOutput struct {
	OrderID    string
	SessionURL string
}

// 注文作成 → カートを空に → 決済セッション発行
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (PlaceOrderOutput, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return PlaceOrderOutput{}, NewError(KindUnauthorized, "unauthorized", nil)
	}
	if err := validateItems(in.Items); err != nil {
		return PlaceOrderOutput{}, err
	}
	if in.Amount.IsNegative() {
		return PlaceOrderOutput{}, validationError("invalid amount")
	}

	// 金額は信用して保存する。ずれていたら記録だけ
	expected := payment.ExpectedTotal(in.Items, u.opts.DeliveryFee)
	if !expected.Equal(in.Amount) {
		u.log.Warn("order amount differs from item total",
			zap.String("user_id", userID),
			zap.String("amount", in.Amount.String()),
			zap.String("expected", expected.String()),
		)
	}

	address := in.Address
	if address == nil {
		address = model.Address{}
	}
	order := model.Order{
		ID:        u.newID(),
		UserID:    userID,
		Items:     in.Items,
		Amount:    in.Amount,
		Address:   address,
		Status:    model.OrderStatusFoodProcessing,
		Payment:   false,
		CreatedAt: u.now(),
	}

	//注文保存とカートクリアは同じトランザクション
	var snapshot model.CartData
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		snapshot = cart.Clone()

		if err := r.Orders().Create(ctx, order); err != nil {
			return err
		}
		return r.Carts().Clear(ctx, userID)
	})
	if err != nil {
		u.log.Error("place order: persist failed", zap.String("user_id", userID), zap.Error(err))
		return PlaceOrderOutput{}, dbError(err)
	}

	successURL, cancelURL := payment.RedirectURLs(u.opts.FrontendURL, order.ID)
	start := u.now()
	session, err := u.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		OrderID:        order.ID,
		LineItems:      payment.BuildLineItems(order.Items, u.opts.DeliveryFee, u.opts.Currency),
		SuccessURL:     successURL,
		CancelURL:      cancelURL,
		IdempotencyKey: order.ID,
	})
	if err == nil && session.URL == "" {
		err = errors.New("gateway returned a session without url")
	}
	u.metrics.GatewayCall("create_session", u.now().Sub(start), err)
	if err != nil {
		u.log.Error("place order: checkout session failed",
			zap.String("order_id", order.ID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		u.compensatePlaceOrder(ctx, order, snapshot)
		return PlaceOrderOutput{}, NewError(KindGateway, "payment gateway error", err)
	}

	// 失敗しても注文は生きている（webhookでセッションIDが分かる）
	if err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.Orders().SetSessionID(ctx, order.ID, session.ID)
	}); err != nil {
		u.log.Warn("place order: save session id failed",
			zap.String("order_id", order.ID),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	} else {
		order.SessionID = session.ID
	}

	u.metrics.OrderPlaced()
	u.publish(ctx, event.TypeOrderPlaced, order)
	u.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("session_id", session.ID),
	)

	return PlaceOrderOutput{OrderID: order.ID, SessionURL: session.URL}, nil
}

// 決済セッションが作れなかったら注文を消してカートを戻す
func (u *OrderUsecase) compensatePlaceOrder(ctx context.Context, order model.Order, snapshot model.CartData) {
	// リクエストがキャンセルされていても戻す
	cctx := context.WithoutCancel(ctx)
	err := u.tx.WithinTx(cctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().DeleteUnpaid(cctx, order.ID); err != nil {
			return err
		}
		if len(snapshot) == 0 {
			return nil
		}
		return r.Carts().Save(cctx, order.UserID, snapshot)
	})
	if err != nil {
		u.log.Error("place order: compensation failed",
			zap.String("order_id", order.ID),
			zap.String("user_id", order.UserID),
			zap.Error(err),
		)
		return
	}
	u.metrics.OrderRemoved(reasonGatewayFailure)
}

func validateItems(items model.OrderItems) error {
	if len(items) == 0 {
		return validationError("items required")
	}
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return validationError("invalid item name")
		}
		if it.Price.IsNegative() {
			return validationError("invalid item price")
		}
		if it.Quantity < 1 {
			return validationError("invalid item quantity")
		}
	}
	return nil
}

type VerifyOrderOutput struct {
	Paid bool
}

// 決済画面からの戻り。successはクライアント申告
func (u *OrderUsecase) VerifyOrder(ctx context.Context, orderID string, success bool) (VerifyOrderOutput, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return VerifyOrderOutput{}, validationError("orderId required")
	}

	o, err := u.findOrder(ctx, orderID)
	if err != nil {
		return VerifyOrderOutput{}, err
	}

	if !success {
		keepPaid := u.opts.VerifyWithGateway
		if keepPaid && o.Payment {
			return VerifyOrderOutput{Paid: true}, nil
		}
		paid, err := u.removeOrder(ctx, orderID, model.ActorClient, reasonCancelled, keepPaid)
		if err != nil {
			return VerifyOrderOutput{}, err
		}
		return VerifyOrderOutput{Paid: paid}, nil
	}

	if o.Payment {
		return VerifyOrderOutput{Paid: true}, nil
	}

	if u.opts.VerifyWithGateway {
		paid, err := u.sessionPaid(ctx, o)
		if err != nil {
			return VerifyOrderOutput{}, err
		}
		if !paid {
			return VerifyOrderOutput{Paid: false}, nil
		}
	}

	if _, err := u.confirmPayment(ctx, orderID, model.ActorClient, sourceClient); err != nil {
		return VerifyOrderOutput{}, err
	}
	return VerifyOrderOutput{Paid: true}, nil
}

func (u *OrderUsecase) sessionPaid(ctx context.Context, o model.Order) (bool, error) {
	start := u.now()
	s, err := u.gateway.GetCheckoutSession(ctx, o.SessionID)
	if errors.Is(err, payment.ErrSessionNotFound) {
		u.metrics.GatewayCall("get_session", u.now().Sub(start), nil)
		u.log.Warn("verify order: no checkout session", zap.String("order_id", o.ID))
		return false, nil
	}
	u.metrics.GatewayCall("get_session", u.now().Sub(start), err)
	if err != nil {
		u.log.Error("verify order: session lookup failed",
			zap.String("order_id", o.ID),
			zap.String("session_id", o.SessionID),
			zap.Error(err),
		)
		return false, NewError(KindGateway, "payment gateway error", err)
	}
	if s.OrderID != "" && s.OrderID != o.ID {
		u.log.Warn("verify order: session belongs to another order",
			zap.String("order_id", o.ID),
			zap.String("session_order_id", s.OrderID),
		)
		return false, nil
	}
	return s.Paid, nil
}

// 処理済みwebhookイベントの記録
type EventDeduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string) error
}

// WithEventDeduper は再送イベントを読み飛ばすストアを設定する
func (u *OrderUsecase) WithEventDeduper(d EventDeduper) *OrderUsecase {
	u.dedup = d
	return u
}

// webhookで届いた決済結果を反映する
func (u *OrderUsecase) HandlePaymentEvent(ctx context.Context, evt payment.Event) error {
	if evt.Kind == payment.EventIgnored {
		return nil
	}
	if evt.OrderID == "" {
		u.log.Warn("payment event without order id", zap.String("event_id", evt.ID), zap.String("type", evt.Type))
		return nil
	}

	// 見られなくても処理は続ける（反映自体は冪等）
	if u.dedup != nil && evt.ID != "" {
		seen, err := u.dedup.Seen(ctx, evt.ID)
		if err != nil {
			u.log.Warn("event dedup lookup failed", zap.String("event_id", evt.ID), zap.Error(err))
		} else if seen {
			u.log.Debug("payment event already handled", zap.String("event_id", evt.ID))
			return nil
		}
	}

	var err error
	switch evt.Kind {
	case payment.EventPaymentSucceeded:
		_, err = u.confirmPayment(ctx, evt.OrderID, model.ActorGateway, sourceWebhook)
	case payment.EventPaymentFailed:
		_, err = u.removeOrder(ctx, evt.OrderID, model.ActorGateway, reasonSessionExpired, true)
	}

	// 知らない注文は受け取ったことにする（再送させない）
	if e, ok := AsError(err); ok && e.Kind == KindNotFound {
		u.log.Info("payment event for unknown order", zap.String("event_id", evt.ID), zap.String("order_id", evt.OrderID))
		err = nil
	}
	if err != nil {
		return err
	}

	if u.dedup != nil && evt.ID != "" {
		if err := u.dedup.Remember(ctx, evt.ID); err != nil {
			u.log.Warn("event dedup store failed", zap.String("event_id", evt.ID), zap.Error(err))
		}
	}
	return nil
}

// payment false -> true。すでに支払い済みなら何もしない
func (u *OrderUsecase) confirmPayment(ctx context.Context, orderID, actor, source string) (model.Order, error) {
	var (
		o       model.Order
		updated bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		updated, err = r.Orders().MarkPaid(ctx, orderID)
		if err != nil {
			return dbError(err)
		}

		o, err = r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "order not found", err)
		}
		if err != nil {
			return dbError(err)
		}
		if !updated {
			return nil
		}

		// 監査ログ（CONFIRM_PAYMENT）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor,
			Action:       model.AuditActionConfirmPayment,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   `{"payment":false}`,
			AfterJSON:    `{"payment":true}`,
			CreatedAt:    u.now(),
		}); err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		u.logFailure("confirm payment", orderID, err)
		return model.Order{}, err
	}

	if updated {
		u.metrics.PaymentConfirmed(source)
		u.publish(ctx, event.TypeOrderPaid, o)
		u.log.Info("order paid", zap.String("order_id", orderID), zap.String("source", source))
	}
	return o, nil
}

// 未払いなら消す。戻り値は支払い済みだったかどうか
func (u *OrderUsecase) removeOrder(ctx context.Context, orderID, actor, reason string, keepPaid bool) (bool, error) {
	var (
		removed model.Order
		deleted bool
		paid    bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "order not found", err)
		}
		if err != nil {
			return dbError(err)
		}

		if keepPaid {
			deleted, err = r.Orders().DeleteUnpaid(ctx, orderID)
		} else {
			deleted, err = r.Orders().Delete(ctx, orderID)
		}
		if err != nil {
			return dbError(err)
		}
		if !deleted {
			if !keepPaid {
				return NewError(KindNotFound, "order not found", repo.ErrNotFound)
			}
			//間に支払いが確定した
			paid = true
			return nil
		}
		removed = o

		// 監査ログ（REMOVE_ORDER）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor,
			Action:       model.AuditActionRemoveOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   auditJSON(map[string]any{"status": o.Status, "payment": o.Payment}),
			AfterJSON:    `{}`,
			CreatedAt:    u.now(),
		}); err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		u.logFailure("remove order", orderID, err)
		return false, err
	}

	if deleted {
		u.metrics.OrderRemoved(reason)
		u.publish(ctx, event.TypeOrderRemoved, removed)
		u.log.Info("unpaid order removed", zap.String("order_id", orderID), zap.String("reason", reason))
	}
	return paid, nil
}

// 自分の注文一覧
func (u *OrderUsecase) UserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []model.Order{}, NewError(KindUnauthorized, "unauthorized", nil)
	}

	var out []model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByUserID(ctx, userID)
		if err != nil {
			return dbError(err)
		}
		out = orders
		return nil
	})
	if err != nil {
		u.log.Error("user orders failed", zap.String("user_id", userID), zap.Error(err))
		return []model.Order{}, err
	}
	if out == nil {
		out = []model.Order{}
	}
	return out, nil
}

// 管理者用の全件
func (u *OrderUsecase) ListOrders(ctx context.Context) ([]model.Order, error) {
	var out []model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListAll(ctx)
		if err != nil {
			return dbError(err)
		}
		out = orders
		return nil
	})
	if err != nil {
		u.log.Error("list orders failed", zap.Error(err))
		return []model.Order{}, err
	}
	if out == nil {
		out = []model.Order{}
	}
	return out, nil
}

// ステータス更新。StrictStatus のときだけ遷移表で検証する
func (u *OrderUsecase) UpdateStatus(ctx context.Context, actorID, orderID, status string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return validationError("orderId required")
	}
	if strings.TrimSpace(status) == "" {
		return validationError("status required")
	}
	// 既定では送られた文字列をそのまま保存する
	next := model.OrderStatus(status)
	if u.opts.StrictStatus {
		parsed, err := model.ParseOrderStatus(status)
		if err != nil {
			return NewError(KindValidation, "invalid status", err)
		}
		next = parsed
	}
	if strings.TrimSpace(actorID) == "" {
		actorID = "admin"
	}

	var (
		updated model.Order
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "order not found", err)
		}
		if err != nil {
			return dbError(err)
		}

		if u.opts.StrictStatus {
			if err := model.CanTransition(o.Status, next, o.Payment); err != nil {
				return NewError(KindValidation, "invalid status transition", err)
			}
		}
		// すでに同じなら何もしない
		if o.Status == next {
			return nil
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, next); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "order not found", err)
			}
			return dbError(err)
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   auditJSON(map[string]any{"status": o.Status}),
			AfterJSON:    auditJSON(map[string]any{"status": next}),
			CreatedAt:    u.now(),
		}); err != nil {
			return dbError(err)
		}

		o.Status = next
		updated = o
		changed = true
		return nil
	})
	if err != nil {
		u.logFailure("update status", orderID, err)
		return err
	}

	if changed {
		u.publish(ctx, event.TypeOrderStatusUpdated, updated)
	}
	return nil
}

func (u *OrderUsecase) findOrder(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		o, err = r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "order not found", err)
		}
		if err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		u.logFailure("find order", orderID, err)
		return model.Order{}, err
	}
	return o, nil
}

// イベント送信の失敗は注文処理を止めない
func (u *OrderUsecase) publish(ctx context.Context, t event.Type, o model.Order) {
	if err := u.publisher.Publish(ctx, event.NewOrderEvent(t, o, u.now())); err != nil {
		u.log.Warn("publish order event failed",
			zap.String("type", string(t)),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

func (u *OrderUsecase) logFailure(op, orderID string, err error) {
	if e, ok := AsError(err); ok && (e.Kind == KindNotFound || e.Kind == KindValidation) {
		u.log.Info(op+" rejected", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	u.log.Error(op+" failed", zap.String("order_id", orderID), zap.Error(err))
}

// ステータスは任意の文字列なのでエスケープして埋め込む
func auditJSON(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
