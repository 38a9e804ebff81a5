package calls

import (
	"context"
	"errors"
	"fmt"

	"voicecommerce_backend/internal/ai"
	"voicecommerce_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const callNotFoundMsg = "vendor call not found"

const callColumns = `
	id, ticket_id, vendor_id, external_call_id, status, retry_count, transcript,
	available, matched_item, price, delivery_terms, match_type,
	specs_match_score, data_quality_score, notes, created_at, updated_at`

// Repository provides database operations for vendor calls.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a vendor-calls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateAll inserts one pending call per vendor in a single transaction.
func (r *Repository) CreateAll(ctx context.Context, calls []VendorCall) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO vendor_calls (id, ticket_id, vendor_id, status, retry_count)
		VALUES ($1, $2, $3, $4, 0)`
	for _, call := range calls {
		if _, err := tx.Exec(ctx, query, call.ID, call.TicketID, call.VendorID, call.Status); err != nil {
			return fmt.Errorf("failed to insert vendor call: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func scanCall(row pgx.Row) (*VendorCall, error) {
	var c VendorCall
	err := row.Scan(
		&c.ID, &c.TicketID, &c.VendorID, &c.ExternalCallID, &c.Status, &c.RetryCount, &c.Transcript,
		&c.Available, &c.MatchedItem, &c.Price, &c.DeliveryTerms, &c.MatchType,
		&c.SpecsMatchScore, &c.DataQualityScore, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(callNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan vendor call: %w", err)
	}
	return &c, nil
}

// GetByID retrieves one vendor call.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*VendorCall, error) {
	return scanCall(r.pool.QueryRow(ctx,
		`SELECT `+callColumns+` FROM vendor_calls WHERE id = $1`, id))
}

// GetByExternalID resolves a provider callback's call id to our row.
func (r *Repository) GetByExternalID(ctx context.Context, externalCallID string) (*VendorCall, error) {
	return scanCall(r.pool.QueryRow(ctx,
		`SELECT `+callColumns+` FROM vendor_calls WHERE external_call_id = $1`, externalCallID))
}

// MarkCalling records a placed call: status calling plus the external id the
// provider assigned. Used for both the first attempt and retries; retries
// also bump the counter.
func (r *Repository) MarkCalling(ctx context.Context, id uuid.UUID, externalCallID string, incrementRetry bool) error {
	query := `
		UPDATE vendor_calls SET
			status = 'calling', external_call_id = $2,
			retry_count = retry_count + CASE WHEN $3 THEN 1 ELSE 0 END,
			updated_at = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, externalCallID, incrementRetry)
	if err != nil {
		return fmt.Errorf("failed to mark call as calling: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(callNotFoundMsg)
	}
	return nil
}

// MarkTranscriptReceived stores the raw transcript.
func (r *Repository) MarkTranscriptReceived(ctx context.Context, id uuid.UUID, transcript string) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE vendor_calls SET status = 'transcript_received', transcript = $2, updated_at = now() WHERE id = $1`,
		id, transcript); err != nil {
		return fmt.Errorf("failed to mark transcript received: %w", err)
	}
	return nil
}

// MarkRetryScheduled parks the call until the delayed retry task fires.
func (r *Repository) MarkRetryScheduled(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE vendor_calls SET status = 'retry_scheduled', updated_at = now() WHERE id = $1`,
		id); err != nil {
		return fmt.Errorf("failed to mark retry scheduled: %w", err)
	}
	return nil
}

// SaveAnalysis persists the structured analysis and moves the call to the
// given terminal status (analyzed, or failed for the neutral no-data case).
func (r *Repository) SaveAnalysis(ctx context.Context, id uuid.UUID, status CallStatus, analysis *ai.TranscriptAnalysis) error {
	query := `
		UPDATE vendor_calls SET
			status = $2, available = $3, matched_item = $4, price = $5,
			delivery_terms = $6, match_type = $7, specs_match_score = $8,
			data_quality_score = $9, notes = $10, updated_at = now()
		WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id, status,
		analysis.Available, nullIfEmpty(analysis.MatchedItem), analysis.Price,
		nullIfEmpty(analysis.DeliveryTerms), nullIfEmpty(analysis.MatchType),
		analysis.SpecsMatchScore, analysis.DataQualityScore, nullIfEmpty(analysis.Notes),
	); err != nil {
		return fmt.Errorf("failed to save call analysis: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetWithVendor retrieves one call joined with its vendor details.
func (r *Repository) GetWithVendor(ctx context.Context, id uuid.UUID) (*CallWithVendor, error) {
	query := `
		SELECT c.id, c.ticket_id, c.vendor_id, c.external_call_id, c.status, c.retry_count, c.transcript,
		       c.available, c.matched_item, c.price, c.delivery_terms, c.match_type,
		       c.specs_match_score, c.data_quality_score, c.notes, c.created_at, c.updated_at,
		       v.name, v.phone, v.address
		FROM vendor_calls c
		JOIN ticket_vendors v ON v.id = c.vendor_id
		WHERE c.id = $1`

	var c CallWithVendor
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.TicketID, &c.VendorID, &c.ExternalCallID, &c.Status, &c.RetryCount, &c.Transcript,
		&c.Available, &c.MatchedItem, &c.Price, &c.DeliveryTerms, &c.MatchType,
		&c.SpecsMatchScore, &c.DataQualityScore, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
		&c.VendorName, &c.VendorPhone, &c.VendorAddress,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(callNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get vendor call: %w", err)
	}
	return &c, nil
}

// ListByTicket returns all calls for a ticket joined with vendor details,
// ordered by vendor rank.
func (r *Repository) ListByTicket(ctx context.Context, ticketID string) ([]CallWithVendor, error) {
	query := `
		SELECT c.id, c.ticket_id, c.vendor_id, c.external_call_id, c.status, c.retry_count, c.transcript,
		       c.available, c.matched_item, c.price, c.delivery_terms, c.match_type,
		       c.specs_match_score, c.data_quality_score, c.notes, c.created_at, c.updated_at,
		       v.name, v.phone, v.address
		FROM vendor_calls c
		JOIN ticket_vendors v ON v.id = c.vendor_id
		WHERE c.ticket_id = $1
		ORDER BY v.rank`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendor calls: %w", err)
	}
	defer rows.Close()

	var calls []CallWithVendor
	for rows.Next() {
		var c CallWithVendor
		if err := rows.Scan(
			&c.ID, &c.TicketID, &c.VendorID, &c.ExternalCallID, &c.Status, &c.RetryCount, &c.Transcript,
			&c.Available, &c.MatchedItem, &c.Price, &c.DeliveryTerms, &c.MatchType,
			&c.SpecsMatchScore, &c.DataQualityScore, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
			&c.VendorName, &c.VendorPhone, &c.VendorAddress,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vendor call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
