package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type loyaltyRepository struct {
	db *sql.DB
}

// NewLoyaltyRepository создаёт PostgreSQL-реализацию LoyaltyRepository.
func NewLoyaltyRepository(store *Store) domain.LoyaltyRepository {
	return &loyaltyRepository{db: store.DB()}
}

func (r *loyaltyRepository) GetByCustomer(customerID string) (domain.LoyaltyProfile, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		profile domain.LoyaltyProfile
		tier    string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, lifetime_profit_minor, tier, version, created_at, updated_at
		FROM loyalty_profiles
		WHERE customer_id = $1
	`, customerID).Scan(
		&profile.ID, &profile.CustomerID, &profile.LifetimeProfitMinor,
		&tier, &profile.Version, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LoyaltyProfile{}, domain.ErrProfileNotFound
		}
		return domain.LoyaltyProfile{}, fmt.Errorf("select loyalty profile: %w", err)
	}
	profile.Tier = domain.Tier(tier)
	return profile, nil
}

func (r *loyaltyRepository) Create(profile domain.LoyaltyProfile) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loyalty_profiles (
			id, customer_id, lifetime_profit_minor, tier, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		profile.ID, profile.CustomerID, profile.LifetimeProfitMinor,
		string(profile.Tier), profile.Version, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert loyalty profile: %w", err)
	}
	return nil
}

// Save применяет обновление с optimistic locking по version.
func (r *loyaltyRepository) Save(profile domain.LoyaltyProfile) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE loyalty_profiles
		SET lifetime_profit_minor = $1,
		    tier = $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $3
		  AND version = $4
	`,
		profile.LifetimeProfitMinor, string(profile.Tier),
		profile.ID, profile.Version,
	)
	if err != nil {
		return fmt.Errorf("update loyalty profile: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var id string
		err := r.db.QueryRowContext(ctx, `SELECT id FROM loyalty_profiles WHERE id = $1`, profile.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProfileNotFound
		}
		if err != nil {
			return fmt.Errorf("check loyalty profile exists: %w", err)
		}
		return domain.ErrVersionConflict
	}
	return nil
}

var _ domain.LoyaltyRepository = (*loyaltyRepository)(nil)
