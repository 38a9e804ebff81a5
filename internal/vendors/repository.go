package vendors

import (
	"context"
	"errors"
	"fmt"

	"voicecommerce_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for ticket vendors.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a vendors repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertAll persists the ranked vendor list. The (ticket_id, place_id)
// uniqueness constraint makes re-discovery idempotent: an existing row keeps
// its id and gets fresh details plus the new rank. The persisted id is written
// back into the slice so callers always reference the stored rows, not the
// ids discovery minted in memory.
func (r *Repository) UpsertAll(ctx context.Context, list []Vendor) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO ticket_vendors (id, ticket_id, place_id, name, address, phone, rating, rating_count, lat, lng, open_now, rank)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (ticket_id, place_id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, phone = EXCLUDED.phone,
			rating = EXCLUDED.rating, rating_count = EXCLUDED.rating_count,
			lat = EXCLUDED.lat, lng = EXCLUDED.lng, open_now = EXCLUDED.open_now,
			rank = EXCLUDED.rank
		RETURNING id`

	for i := range list {
		v := &list[i]
		if err := tx.QueryRow(ctx, query,
			v.ID, v.TicketID, v.PlaceID, v.Name, v.Address, v.Phone,
			v.Rating, v.RatingCount, v.Lat, v.Lng, v.OpenNow, v.Rank,
		).Scan(&v.ID); err != nil {
			return fmt.Errorf("failed to upsert vendor %s: %w", v.PlaceID, err)
		}
	}

	return tx.Commit(ctx)
}

// ListByTicket returns the ticket's vendors ordered by rank.
func (r *Repository) ListByTicket(ctx context.Context, ticketID string) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ticket_id, place_id, name, address, phone, rating, rating_count, lat, lng, open_now, rank
		FROM ticket_vendors WHERE ticket_id = $1 ORDER BY rank`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.TicketID, &v.PlaceID, &v.Name, &v.Address, &v.Phone,
			&v.Rating, &v.RatingCount, &v.Lat, &v.Lng, &v.OpenNow, &v.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// GetByID retrieves a single vendor row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Vendor, error) {
	var v Vendor
	err := r.pool.QueryRow(ctx, `
		SELECT id, ticket_id, place_id, name, address, phone, rating, rating_count, lat, lng, open_now, rank
		FROM ticket_vendors WHERE id = $1`, id).Scan(
		&v.ID, &v.TicketID, &v.PlaceID, &v.Name, &v.Address, &v.Phone,
		&v.Rating, &v.RatingCount, &v.Lat, &v.Lng, &v.OpenNow, &v.Rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("vendor not found")
		}
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return &v, nil
}

// UpdateRanks rewrites ranks according to the given place-id order. Rows are
// untouched otherwise; place ids absent from the ordering keep their rank.
func (r *Repository) UpdateRanks(ctx context.Context, ticketID string, orderedPlaceIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, placeID := range orderedPlaceIDs {
		if _, err := tx.Exec(ctx,
			`UPDATE ticket_vendors SET rank = $3 WHERE ticket_id = $1 AND place_id = $2`,
			ticketID, placeID, i+1); err != nil {
			return fmt.Errorf("failed to update vendor rank: %w", err)
		}
	}

	return tx.Commit(ctx)
}
