package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type stockRepository struct {
	db *sql.DB
}

// NewStockRepository создаёт PostgreSQL-реализацию StockRepository.
func NewStockRepository(store *Store) domain.StockRepository {
	return &stockRepository{db: store.DB()}
}

const selectStockItemQuery = `
	SELECT id, name, category, buy_price_minor, sell_price_minor, quantity,
	       description, image_url, version, created_at, updated_at
	FROM stock_items`

func (r *stockRepository) GetStockItem(id string) (domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	item, err := scanStockItem(r.db.QueryRowContext(ctx, selectStockItemQuery+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockItem{}, domain.ErrItemNotFound
		}
		return domain.StockItem{}, fmt.Errorf("select stock item: %w", err)
	}
	return item, nil
}

// GetStockItems возвращает найденные товары; отсутствующие id опускаются.
func (r *stockRepository) GetStockItems(ids []string) ([]domain.StockItem, error) {
	if len(ids) == 0 {
		return []domain.StockItem{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx,
		selectStockItemQuery+` WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("select stock items: %w", err)
	}
	defer rows.Close()

	return collectStockItems(rows)
}

func (r *stockRepository) ListStockItems(category domain.StockCategory) ([]domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := selectStockItemQuery
	args := []any{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, string(category))
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	defer rows.Close()

	return collectStockItems(rows)
}

func (r *stockRepository) CreateStockItem(item domain.StockItem) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_items (
			id, name, category, buy_price_minor, sell_price_minor, quantity,
			description, image_url, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		item.ID, item.Name, string(item.Category), item.BuyPriceMinor, item.SellPriceMinor,
		item.Quantity, item.Description, item.ImageURL, item.Version,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert stock item: %w", err)
	}
	return nil
}

// SaveStockItem применяет обновление с optimistic locking по version.
func (r *stockRepository) SaveStockItem(item domain.StockItem) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE stock_items
		SET name = $1,
		    category = $2,
		    buy_price_minor = $3,
		    sell_price_minor = $4,
		    quantity = $5,
		    description = $6,
		    image_url = $7,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $8
		  AND version = $9
	`,
		item.Name, string(item.Category), item.BuyPriceMinor, item.SellPriceMinor,
		item.Quantity, item.Description, item.ImageURL,
		item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("update stock item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var id string
		err := r.db.QueryRowContext(ctx, `SELECT id FROM stock_items WHERE id = $1`, item.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("check stock item exists: %w", err)
		}
		return domain.ErrVersionConflict
	}
	return nil
}

const selectShopStockQuery = `
	SELECT id, shop_id, stock_item_id, qty_on_hand, low_stock_threshold,
	       inherited_buy_price_minor, inherited_sell_price_minor, version, created_at, updated_at
	FROM shop_stock`

// GetShopStock возвращает строки остатков магазина; пары без строки опускаются.
func (r *stockRepository) GetShopStock(shopID string, stockItemIDs []string) ([]domain.ShopStock, error) {
	if len(stockItemIDs) == 0 {
		return []domain.ShopStock{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	placeholders := make([]string, 0, len(stockItemIDs))
	args := []any{shopID}
	for _, id := range stockItemIDs {
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx,
		selectShopStockQuery+` WHERE shop_id = $1 AND stock_item_id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("select shop stock: %w", err)
	}
	defer rows.Close()

	return collectShopStock(rows)
}

func (r *stockRepository) ListShopStock(shopID string) ([]domain.ShopStock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		selectShopStockQuery+` WHERE shop_id = $1 ORDER BY stock_item_id ASC`, shopID)
	if err != nil {
		return nil, fmt.Errorf("list shop stock: %w", err)
	}
	defer rows.Close()

	return collectShopStock(rows)
}

// Transfer атомарно перемещает товар с центрального склада в магазин.
func (r *stockRepository) Transfer(req domain.TransferRequest) (domain.ShopStock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ShopStock{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var item domain.StockItem
	item, err = scanStockItem(tx.QueryRowContext(ctx,
		selectStockItemQuery+` WHERE id = $1 FOR UPDATE`, req.StockItemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ShopStock{}, domain.ErrItemNotFound
		}
		return domain.ShopStock{}, fmt.Errorf("select stock item for transfer: %w", err)
	}
	if item.Quantity < req.Qty {
		err = domain.ErrInsufficientStock
		return domain.ShopStock{}, err
	}

	var shopID string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM shops WHERE id = $1`, req.ShopID).Scan(&shopID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrShopNotFound
		}
		return domain.ShopStock{}, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE stock_items
		SET quantity = quantity - $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $2
	`, req.Qty, req.StockItemID); err != nil {
		return domain.ShopStock{}, fmt.Errorf("decrement central stock: %w", err)
	}

	// Первая передача заводит строку и снимает цены с каталога; повторная
	// только добавляет количество и обновляет порог.
	var row domain.ShopStock
	row, err = scanShopStock(tx.QueryRowContext(ctx, `
		INSERT INTO shop_stock (
			id, shop_id, stock_item_id, qty_on_hand, low_stock_threshold,
			inherited_buy_price_minor, inherited_sell_price_minor, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,0,NOW(),NOW())
		ON CONFLICT (shop_id, stock_item_id) DO UPDATE
		SET qty_on_hand = shop_stock.qty_on_hand + EXCLUDED.qty_on_hand,
		    low_stock_threshold = EXCLUDED.low_stock_threshold,
		    version = shop_stock.version + 1,
		    updated_at = NOW()
		RETURNING id, shop_id, stock_item_id, qty_on_hand, low_stock_threshold,
		          inherited_buy_price_minor, inherited_sell_price_minor, version, created_at, updated_at
	`,
		uuid.NewString(), req.ShopID, req.StockItemID, req.Qty, req.LowStockThreshold,
		item.BuyPriceMinor, item.SellPriceMinor,
	))
	if err != nil {
		return domain.ShopStock{}, fmt.Errorf("upsert shop stock: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.ShopStock{}, fmt.Errorf("commit transfer: %w", err)
	}

	return row, nil
}

// SaveShopStockPrices обновляет унаследованные цены строки остатка.
func (r *stockRepository) SaveShopStockPrices(shopStockID string, buyMinor, sellMinor int64) (domain.ShopStock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row, err := scanShopStock(r.db.QueryRowContext(ctx, `
		UPDATE shop_stock
		SET inherited_buy_price_minor = $1,
		    inherited_sell_price_minor = $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $3
		RETURNING id, shop_id, stock_item_id, qty_on_hand, low_stock_threshold,
		          inherited_buy_price_minor, inherited_sell_price_minor, version, created_at, updated_at
	`, buyMinor, sellMinor, shopStockID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ShopStock{}, domain.ErrShopStockNotFound
		}
		return domain.ShopStock{}, fmt.Errorf("update shop stock prices: %w", err)
	}
	return row, nil
}

func scanStockItem(row rowScanner) (domain.StockItem, error) {
	var (
		item     domain.StockItem
		category string
	)
	if err := row.Scan(
		&item.ID, &item.Name, &category, &item.BuyPriceMinor, &item.SellPriceMinor,
		&item.Quantity, &item.Description, &item.ImageURL, &item.Version,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return domain.StockItem{}, err
	}
	item.Category = domain.StockCategory(category)
	return item, nil
}

func collectStockItems(rows *sql.Rows) ([]domain.StockItem, error) {
	items := make([]domain.StockItem, 0)
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock items: %w", err)
	}
	return items, nil
}

func scanShopStock(row rowScanner) (domain.ShopStock, error) {
	var s domain.ShopStock
	if err := row.Scan(
		&s.ID, &s.ShopID, &s.StockItemID, &s.QtyOnHand, &s.LowStockThreshold,
		&s.InheritedBuyPriceMinor, &s.InheritedSellPriceMinor, &s.Version,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return domain.ShopStock{}, err
	}
	return s, nil
}

func collectShopStock(rows *sql.Rows) ([]domain.ShopStock, error) {
	result := make([]domain.ShopStock, 0)
	for rows.Next() {
		row, err := scanShopStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop stock: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shop stock: %w", err)
	}
	return result, nil
}

var _ domain.StockRepository = (*stockRepository)(nil)
