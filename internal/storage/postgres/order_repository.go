package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// CreateWithAdjustments сохраняет заказ с позициями и применяет списания
// остатков в одной транзакции. Несовпадение версии любой строки или уход
// shop-остатка в минус откатывает всё.
func (r *orderRepository) CreateWithAdjustments(order domain.Order, adjustments []domain.StockAdjustment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, channel, shop_id, shipping_name, shipping_address,
			subtotal_minor, discount_minor, grand_total_minor, total_cost_minor, total_profit_minor,
			status, stock_returned, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		order.ID, order.CustomerID, string(order.Channel), order.ShopID,
		order.ShippingName, order.ShippingAddress,
		order.SubtotalMinor, order.DiscountMinor, order.GrandTotalMinor,
		order.TotalCostMinor, order.TotalProfitMinor,
		string(order.Status), order.StockReturned, order.Version,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, stock_item_id, qty, qty_backordered,
				unit_price_minor, unit_cost_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			item.ID, order.ID, item.StockItemID, item.Qty, item.QtyBackordered,
			item.UnitPriceMinor, item.UnitCostMinor, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = applyAdjustmentsTx(ctx, tx, adjustments); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, selectOrderQuery+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	orders, _, err := r.List(domain.OrderFilter{CustomerID: customerID, Limit: limit})
	return orders, err
}

// List возвращает страницу заказов по фильтру и общее число совпадений.
func (r *orderRepository) List(filter domain.OrderFilter) ([]domain.Order, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	where, args := buildOrderFilter(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := selectOrderQuery + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
		orders[i].Items = items
	}

	return orders, total, nil
}

// SaveStatusWithReturns меняет статус и флаг возврата заказа (optimistic
// locking по version) и в той же транзакции применяет возвраты остатков.
func (r *orderRepository) SaveStatusWithReturns(order domain.Order, returns []domain.StockAdjustment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    stock_returned = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`,
		string(order.Status), order.StockReturned, order.UpdatedAt,
		order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := orderExistsTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrVersionConflict
	}

	if err = applyAdjustmentsTx(ctx, tx, returns); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save order status: %w", err)
	}

	return nil
}

func (r *orderRepository) SumFulfilledProfit(customerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var sum int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_profit_minor), 0)
		FROM orders
		WHERE customer_id = $1
		  AND status = $2
	`, customerID, string(domain.OrderStatusFulfilled)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum fulfilled profit: %w", err)
	}

	return sum, nil
}

const selectOrderQuery = `
	SELECT id, customer_id, channel, shop_id, shipping_name, shipping_address,
	       subtotal_minor, discount_minor, grand_total_minor, total_cost_minor, total_profit_minor,
	       status, stock_returned, version, created_at, updated_at
	FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepository) scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order   domain.Order
		channel string
		status  string
	)
	if err := row.Scan(
		&order.ID, &order.CustomerID, &channel, &order.ShopID,
		&order.ShippingName, &order.ShippingAddress,
		&order.SubtotalMinor, &order.DiscountMinor, &order.GrandTotalMinor,
		&order.TotalCostMinor, &order.TotalProfitMinor,
		&status, &order.StockReturned, &order.Version,
		&order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Channel = domain.Channel(channel)
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func buildOrderFilter(filter domain.OrderFilter) (string, []any) {
	conds := make([]string, 0, 6)
	args := make([]any, 0, 6)

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Channel != "" {
		add("channel = $%d", string(filter.Channel))
	}
	if filter.ShopID != "" {
		add("shop_id = $%d", filter.ShopID)
	}
	if filter.CustomerID != "" {
		add("customer_id = $%d", filter.CustomerID)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, stock_item_id, qty, qty_backordered,
		       unit_price_minor, unit_cost_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.StockItemID, &item.Qty, &item.QtyBackordered,
			&item.UnitPriceMinor, &item.UnitCostMinor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

// applyAdjustmentsTx применяет изменения остатков внутри открытой транзакции.
// ExpectedVersion < 0 отключает проверку версии для конкретной строки.
func applyAdjustmentsTx(ctx context.Context, tx *sql.Tx, adjustments []domain.StockAdjustment) error {
	for _, adj := range adjustments {
		if adj.Delta == 0 {
			continue
		}
		switch adj.Channel {
		case domain.ChannelWeb:
			if err := adjustCentralTx(ctx, tx, adj); err != nil {
				return err
			}
		case domain.ChannelShop:
			if err := adjustShopTx(ctx, tx, adj); err != nil {
				return err
			}
		default:
			return domain.ErrChannelInvalid
		}
	}
	return nil
}

func adjustCentralTx(ctx context.Context, tx *sql.Tx, adj domain.StockAdjustment) error {
	query := `
		UPDATE stock_items
		SET quantity = quantity + $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $2`
	args := []any{adj.Delta, adj.StockItemID}
	if adj.ExpectedVersion >= 0 {
		query += ` AND version = $3`
		args = append(args, adj.ExpectedVersion)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("adjust central stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM stock_items WHERE id = $1`, adj.StockItemID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("check stock item exists: %w", err)
		}
		return domain.ErrStockChanged
	}
	return nil
}

func adjustShopTx(ctx context.Context, tx *sql.Tx, adj domain.StockAdjustment) error {
	// qty_on_hand магазина защищён и CHECK-ограничением, и предикатом:
	// конкурентное списание проявляется как ноль затронутых строк.
	query := `
		UPDATE shop_stock
		SET qty_on_hand = qty_on_hand + $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE shop_id = $2
		  AND stock_item_id = $3
		  AND qty_on_hand + $1 >= 0`
	args := []any{adj.Delta, adj.ShopID, adj.StockItemID}
	if adj.ExpectedVersion >= 0 {
		query += ` AND version = $4`
		args = append(args, adj.ExpectedVersion)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("adjust shop stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var id string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM shop_stock WHERE shop_id = $1 AND stock_item_id = $2
		`, adj.ShopID, adj.StockItemID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrShopStockNotFound
		}
		if err != nil {
			return fmt.Errorf("check shop stock exists: %w", err)
		}
		return domain.ErrStockChanged
	}
	return nil
}

func orderExistsTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
