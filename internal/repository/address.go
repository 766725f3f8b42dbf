package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarulabs/taru-api/internal/model"
)

type AddressRepository interface {
	Create(ctx context.Context, address *model.Address) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	Update(ctx context.Context, address *model.Address) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type pgAddressRepo struct{ pool *pgxpool.Pool }

func NewAddressRepository(pool *pgxpool.Pool) AddressRepository {
	return &pgAddressRepo{pool: pool}
}

const addressColumns = `id, user_id, type, first_name, last_name, company,
	address_line_1, address_line_2, city, state, postal_code, country, phone,
	is_default, created_at`

func scanAddress(row pgx.Row) (*model.Address, error) {
	a := &model.Address{}
	err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.FirstName, &a.LastName, &a.Company,
		&a.AddressLine1, &a.AddressLine2, &a.City, &a.State, &a.PostalCode,
		&a.Country, &a.Phone, &a.IsDefault, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts the address; marking it default clears any previous default
// in the same transaction.
func (r *pgAddressRepo) Create(ctx context.Context, address *model.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if address.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`,
			address.UserID); err != nil {
			return fmt.Errorf("clear default address: %w", err)
		}
	}

	address.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO addresses (id, user_id, type, first_name, last_name, company,
			address_line_1, address_line_2, city, state, postal_code, country, phone,
			is_default, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		 RETURNING created_at`,
		address.ID, address.UserID, address.Type, address.FirstName, address.LastName,
		address.Company, address.AddressLine1, address.AddressLine2, address.City,
		address.State, address.PostalCode, address.Country, address.Phone, address.IsDefault,
	).Scan(&address.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit address: %w", err)
	}
	return nil
}

func (r *pgAddressRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Address, error) {
	a, err := scanAddress(r.pool.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

func (r *pgAddressRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []model.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, *a)
	}
	return addresses, nil
}

func (r *pgAddressRepo) Update(ctx context.Context, address *model.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if address.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE addresses SET is_default = FALSE
			 WHERE user_id = $1 AND is_default AND id <> $2`,
			address.UserID, address.ID); err != nil {
			return fmt.Errorf("clear default address: %w", err)
		}
	}

	ct, err := tx.Exec(ctx,
		`UPDATE addresses SET type=$3, first_name=$4, last_name=$5, company=$6,
			address_line_1=$7, address_line_2=$8, city=$9, state=$10,
			postal_code=$11, country=$12, phone=$13, is_default=$14
		 WHERE id = $1 AND user_id = $2`,
		address.ID, address.UserID, address.Type, address.FirstName, address.LastName,
		address.Company, address.AddressLine1, address.AddressLine2, address.City,
		address.State, address.PostalCode, address.Country, address.Phone, address.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit address: %w", err)
	}
	return nil
}

func (r *pgAddressRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
