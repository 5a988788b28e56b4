package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type shopRepository struct {
	db *sql.DB
}

// NewShopRepository создаёт PostgreSQL-реализацию ShopRepository.
func NewShopRepository(store *Store) domain.ShopRepository {
	return &shopRepository{db: store.DB()}
}

func (r *shopRepository) Create(shop domain.Shop) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shops (id, name, address, proprietor_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, shop.ID, shop.Name, shop.Address, shop.ProprietorID, shop.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert shop: %w", err)
	}
	return nil
}

func (r *shopRepository) Get(id string) (domain.Shop, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var shop domain.Shop
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, address, proprietor_id, created_at
		FROM shops
		WHERE id = $1
	`, id).Scan(&shop.ID, &shop.Name, &shop.Address, &shop.ProprietorID, &shop.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Shop{}, domain.ErrShopNotFound
		}
		return domain.Shop{}, fmt.Errorf("select shop: %w", err)
	}
	return shop, nil
}

func (r *shopRepository) List() ([]domain.Shop, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, proprietor_id, created_at
		FROM shops
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	shops := make([]domain.Shop, 0)
	for rows.Next() {
		var shop domain.Shop
		if err := rows.Scan(&shop.ID, &shop.Name, &shop.Address, &shop.ProprietorID, &shop.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, shop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shops: %w", err)
	}
	return shops, nil
}

var _ domain.ShopRepository = (*shopRepository)(nil)
