package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type basketRepository struct {
	db *sql.DB
}

// NewBasketRepository создаёт PostgreSQL-реализацию BasketRepository.
func NewBasketRepository(store *Store) domain.BasketRepository {
	return &basketRepository{db: store.DB()}
}

// Get возвращает корзину по токену; отсутствующая корзина читается как пустая.
func (r *basketRepository) Get(token string) (domain.Basket, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	basket := domain.Basket{Token: token, Lines: []domain.BasketLine{}}

	if err := r.db.QueryRowContext(ctx, `
		SELECT updated_at FROM baskets WHERE token = $1
	`, token).Scan(&basket.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return basket, nil
		}
		return domain.Basket{}, fmt.Errorf("select basket: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT stock_item_id, name, unit_price_minor, qty
		FROM basket_lines
		WHERE basket_token = $1
		ORDER BY position ASC
	`, token)
	if err != nil {
		return domain.Basket{}, fmt.Errorf("select basket lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.BasketLine
		if err := rows.Scan(&line.StockItemID, &line.Name, &line.UnitPriceMinor, &line.Qty); err != nil {
			return domain.Basket{}, fmt.Errorf("scan basket line: %w", err)
		}
		basket.Lines = append(basket.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Basket{}, fmt.Errorf("iterate basket lines: %w", err)
	}

	return basket, nil
}

// Save перезаписывает корзину целиком: состояние строго per-visitor, поэтому
// replace-all дешевле дифференциальных апдейтов.
func (r *basketRepository) Save(basket domain.Basket) error {
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

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO baskets (token, updated_at)
		VALUES ($1, NOW())
		ON CONFLICT (token) DO UPDATE SET updated_at = NOW()
	`, basket.Token); err != nil {
		return fmt.Errorf("upsert basket: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM basket_lines WHERE basket_token = $1
	`, basket.Token); err != nil {
		return fmt.Errorf("clear basket lines: %w", err)
	}

	for i, line := range basket.Lines {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO basket_lines (basket_token, stock_item_id, name, unit_price_minor, qty, position)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, basket.Token, line.StockItemID, line.Name, line.UnitPriceMinor, line.Qty, i); err != nil {
			return fmt.Errorf("insert basket line: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save basket: %w", err)
	}
	return nil
}

// Clear удаляет корзину; строки уходят каскадом.
func (r *basketRepository) Clear(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM baskets WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete basket: %w", err)
	}
	return nil
}

var _ domain.BasketRepository = (*basketRepository)(nil)
