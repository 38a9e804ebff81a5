// Package repository provides database operations for tickets.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"voicecommerce_backend/internal/tickets/domain"
	"voicecommerce_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketNotFoundMsg = "ticket not found"

// Repository provides database operations for tickets and researched products.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new tickets repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextTicketID atomically generates the next TKT-NNN identifier.
func (r *Repository) NextTicketID(ctx context.Context) (string, error) {
	var nextNum int
	query := `
		INSERT INTO ticket_counters (counter_key, last_number)
		VALUES ('tickets', 1)
		ON CONFLICT (counter_key) DO UPDATE SET last_number = ticket_counters.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate ticket id: %w", err)
	}

	return fmt.Sprintf("TKT-%03d", nextNum), nil
}

// Create inserts a new ticket. A ticket id already in an active status is
// rejected with a conflict; a terminal prior ticket with the same id is
// replaced by the new row's lifecycle (the id is reused, prior rows remain).
// One statement, so two concurrent creates with the same id cannot both pass
// the admission check: the conflicting insert either resets a terminal row or
// affects nothing.
func (r *Repository) Create(ctx context.Context, t *domain.Ticket) error {
	terminal := make([]string, 0, len(domain.TerminalStatuses()))
	for _, s := range domain.TerminalStatuses() {
		terminal = append(terminal, string(s))
	}

	query := `
		INSERT INTO tickets (ticket_id, status, query, location, contact_phone, contact_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticket_id) DO UPDATE SET
			status = EXCLUDED.status, query = EXCLUDED.query, location = EXCLUDED.location,
			contact_phone = EXCLUDED.contact_phone, contact_name = EXCLUDED.contact_name,
			category = '', error_message = NULL, result = NULL, compile_claimed_at = NULL,
			created_at = now(), updated_at = now()
		WHERE tickets.status = ANY($7)`

	tag, err := r.pool.Exec(ctx, query, t.ID, t.Status, t.Query, t.Location, t.ContactPhone, t.ContactName, terminal)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict(fmt.Sprintf("ticket %s is already being processed", t.ID))
	}
	return nil
}

// GetByID retrieves a ticket.
func (r *Repository) GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var t domain.Ticket
	var resultJSON []byte
	query := `
		SELECT ticket_id, status, query, location, contact_phone, contact_name,
		       category, error_message, result, created_at, updated_at
		FROM tickets WHERE ticket_id = $1`

	err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&t.ID, &t.Status, &t.Query, &t.Location, &t.ContactPhone, &t.ContactName,
		&t.Category, &t.ErrorMessage, &resultJSON, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(ticketNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if len(resultJSON) > 0 {
		var result domain.CompiledResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("failed to decode ticket result: %w", err)
		}
		t.Result = &result
	}

	return &t, nil
}

// UpdateStatus moves the ticket to the given status.
func (r *Repository) UpdateStatus(ctx context.Context, ticketID string, status domain.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tickets SET status = $2, updated_at = now() WHERE ticket_id = $1`,
		ticketID, status)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(ticketNotFoundMsg)
	}
	return nil
}

// SetCategory stores the classifier's verdict.
func (r *Repository) SetCategory(ctx context.Context, ticketID, category string) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE tickets SET category = $2, updated_at = now() WHERE ticket_id = $1`,
		ticketID, category); err != nil {
		return fmt.Errorf("failed to set ticket category: %w", err)
	}
	return nil
}

// Fail moves the ticket to the given failure status with an error message.
func (r *Repository) Fail(ctx context.Context, ticketID string, status domain.Status, message string) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE tickets SET status = $2, error_message = $3, updated_at = now() WHERE ticket_id = $1`,
		ticketID, status, message); err != nil {
		return fmt.Errorf("failed to fail ticket: %w", err)
	}
	return nil
}

// SetResult persists the compiled result and moves the ticket to the status.
func (r *Repository) SetResult(ctx context.Context, ticketID string, status domain.Status, result *domain.CompiledResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode ticket result: %w", err)
	}
	if _, err := r.pool.Exec(ctx,
		`UPDATE tickets SET status = $2, result = $3, updated_at = now() WHERE ticket_id = $1`,
		ticketID, status, payload); err != nil {
		return fmt.Errorf("failed to set ticket result: %w", err)
	}
	return nil
}

// ClaimCompile atomically claims the right to compile results for a ticket.
// The claim succeeds only when no vendor call for the ticket is still in
// flight and nobody claimed before; exactly one of several near-simultaneous
// webhook tasks wins.
func (r *Repository) ClaimCompile(ctx context.Context, ticketID string) (bool, error) {
	query := `
		UPDATE tickets SET compile_claimed_at = now(), updated_at = now()
		WHERE ticket_id = $1
		  AND compile_claimed_at IS NULL
		  AND 0 = (
			SELECT COUNT(*) FROM vendor_calls
			WHERE ticket_id = $1 AND status NOT IN ('analyzed', 'failed')
		  )
		RETURNING ticket_id`

	var claimed string
	err := r.pool.QueryRow(ctx, query, ticketID).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim result compilation: %w", err)
	}
	return true, nil
}

// SaveProduct stores the researched product for a ticket (immutable afterwards).
func (r *Repository) SaveProduct(ctx context.Context, ticketID string, product *domain.ResearchedProduct) error {
	specs, err := json.Marshal(product.RequiredSpecs)
	if err != nil {
		return fmt.Errorf("failed to encode product specs: %w", err)
	}
	alternatives, err := json.Marshal(product.Alternatives)
	if err != nil {
		return fmt.Errorf("failed to encode product alternatives: %w", err)
	}

	query := `
		INSERT INTO ticket_products (ticket_id, name, category, required_specs, alternatives, avg_online_price, search_query_template)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticket_id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category,
			required_specs = EXCLUDED.required_specs, alternatives = EXCLUDED.alternatives,
			avg_online_price = EXCLUDED.avg_online_price, search_query_template = EXCLUDED.search_query_template`

	if _, err := r.pool.Exec(ctx, query,
		ticketID, product.Name, product.Category, specs, alternatives,
		product.AvgOnlinePrice, product.SearchQueryTemplate); err != nil {
		return fmt.Errorf("failed to save researched product: %w", err)
	}
	return nil
}

// GetProduct retrieves the researched product for a ticket.
func (r *Repository) GetProduct(ctx context.Context, ticketID string) (*domain.ResearchedProduct, error) {
	var p domain.ResearchedProduct
	var specs, alternatives []byte
	query := `
		SELECT name, category, required_specs, alternatives, avg_online_price, search_query_template
		FROM ticket_products WHERE ticket_id = $1`

	err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&p.Name, &p.Category, &specs, &alternatives, &p.AvgOnlinePrice, &p.SearchQueryTemplate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("researched product not found")
		}
		return nil, fmt.Errorf("failed to get researched product: %w", err)
	}

	if err := json.Unmarshal(specs, &p.RequiredSpecs); err != nil {
		return nil, fmt.Errorf("failed to decode product specs: %w", err)
	}
	if err := json.Unmarshal(alternatives, &p.Alternatives); err != nil {
		return nil, fmt.Errorf("failed to decode product alternatives: %w", err)
	}

	return &p, nil
}

// SaveWebDeals persists best-effort online alternatives for a ticket.
func (r *Repository) SaveWebDeals(ctx context.Context, ticketID string, deals []domain.WebDeal) error {
	payload, err := json.Marshal(deals)
	if err != nil {
		return fmt.Errorf("failed to encode web deals: %w", err)
	}
	query := `
		INSERT INTO ticket_web_deals (ticket_id, deals)
		VALUES ($1, $2)
		ON CONFLICT (ticket_id) DO UPDATE SET deals = EXCLUDED.deals, updated_at = now()`
	if _, err := r.pool.Exec(ctx, query, ticketID, payload); err != nil {
		return fmt.Errorf("failed to save web deals: %w", err)
	}
	return nil
}

// GetWebDeals retrieves persisted web deals; missing row yields an empty list.
func (r *Repository) GetWebDeals(ctx context.Context, ticketID string) ([]domain.WebDeal, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT deals FROM ticket_web_deals WHERE ticket_id = $1`, ticketID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get web deals: %w", err)
	}

	var deals []domain.WebDeal
	if err := json.Unmarshal(payload, &deals); err != nil {
		return nil, fmt.Errorf("failed to decode web deals: %w", err)
	}
	return deals, nil
}
