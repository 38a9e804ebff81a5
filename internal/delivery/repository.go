package delivery

import (
	"context"
	"errors"
	"fmt"

	"voicecommerce_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderNotFoundMsg = "delivery order not found"

const orderColumns = `
	id, ticket_id, vendor_call_id, client_order_id, external_order_id,
	pickup_name, pickup_phone, pickup_address, pickup_pincode, pickup_lat, pickup_lng,
	customer_name, drop_phone, drop_address, drop_pincode, drop_lat, drop_lng,
	item_value, carrier_id, carrier_name, quoted_price,
	state, rider_name, rider_phone, tracking_url, failed_carrier_ids, error_message,
	created_at, updated_at`

// Repository provides database operations for delivery orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a delivery-orders repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new booking attempt row.
func (r *Repository) Create(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO delivery_orders (
			id, ticket_id, vendor_call_id, client_order_id,
			pickup_name, pickup_phone, pickup_address, pickup_pincode, pickup_lat, pickup_lng,
			customer_name, drop_phone, drop_address, drop_pincode, drop_lat, drop_lng,
			item_value, state, failed_carrier_ids
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	if _, err := r.pool.Exec(ctx, query,
		o.ID, o.TicketID, o.VendorCallID, o.ClientOrderID,
		o.PickupName, o.PickupPhone, o.PickupAddress, o.PickupPincode, o.PickupLat, o.PickupLng,
		o.CustomerName, o.DropPhone, o.DropAddress, o.DropPincode, o.DropLat, o.DropLng,
		o.ItemValue, o.State, o.FailedCarrierIDs,
	); err != nil {
		return fmt.Errorf("failed to insert delivery order: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.TicketID, &o.VendorCallID, &o.ClientOrderID, &o.ExternalOrderID,
		&o.PickupName, &o.PickupPhone, &o.PickupAddress, &o.PickupPincode, &o.PickupLat, &o.PickupLng,
		&o.CustomerName, &o.DropPhone, &o.DropAddress, &o.DropPincode, &o.DropLat, &o.DropLng,
		&o.ItemValue, &o.CarrierID, &o.CarrierName, &o.QuotedPrice,
		&o.State, &o.RiderName, &o.RiderPhone, &o.TrackingURL, &o.FailedCarrierIDs, &o.ErrorMessage,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(orderNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan delivery order: %w", err)
	}
	return &o, nil
}

// GetByClientOrderID resolves a provider callback to our attempt row.
func (r *Repository) GetByClientOrderID(ctx context.Context, clientOrderID string) (*Order, error) {
	return scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM delivery_orders WHERE client_order_id = $1`, clientOrderID))
}

// GetByExternalOrderID resolves a provider callback carrying only its own id.
func (r *Repository) GetByExternalOrderID(ctx context.Context, externalOrderID string) (*Order, error) {
	return scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM delivery_orders WHERE external_order_id = $1`, externalOrderID))
}

// GetLatestByTicket returns the newest booking attempt for a ticket.
func (r *Repository) GetLatestByTicket(ctx context.Context, ticketID string) (*Order, error) {
	return scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM delivery_orders WHERE ticket_id = $1 ORDER BY created_at DESC LIMIT 1`, ticketID))
}

// MarkPlaced records a successful placement: provider order id, carrier, and
// quoted price.
func (r *Repository) MarkPlaced(ctx context.Context, o *Order) error {
	query := `
		UPDATE delivery_orders SET
			external_order_id = $2, carrier_id = $3, carrier_name = $4,
			quoted_price = $5, state = $6, updated_at = now()
		WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query,
		o.ID, o.ExternalOrderID, o.CarrierID, o.CarrierName, o.QuotedPrice, o.State); err != nil {
		return fmt.Errorf("failed to mark delivery order placed: %w", err)
	}
	return nil
}

// SetError records a placement failure on the attempt row.
func (r *Repository) SetError(ctx context.Context, o *Order, message string) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE delivery_orders SET error_message = $2, state = 'placement_failed', updated_at = now() WHERE id = $1`,
		o.ID, message); err != nil {
		return fmt.Errorf("failed to record delivery order error: %w", err)
	}
	return nil
}

// UpdateTracking applies a status callback's state, rider, and tracking URL.
func (r *Repository) UpdateTracking(ctx context.Context, o *Order) error {
	query := `
		UPDATE delivery_orders SET
			state = $2, rider_name = $3, rider_phone = $4, tracking_url = $5, updated_at = now()
		WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query,
		o.ID, o.State, o.RiderName, o.RiderPhone, o.TrackingURL); err != nil {
		return fmt.Errorf("failed to update delivery tracking: %w", err)
	}
	return nil
}

// AppendFailedCarrier adds a carrier id to the attempt's failed set.
func (r *Repository) AppendFailedCarrier(ctx context.Context, o *Order, carrierID string) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE delivery_orders SET failed_carrier_ids = array_append(failed_carrier_ids, $2), updated_at = now() WHERE id = $1`,
		o.ID, carrierID); err != nil {
		return fmt.Errorf("failed to append failed carrier: %w", err)
	}
	o.FailedCarrierIDs = append(o.FailedCarrierIDs, carrierID)
	return nil
}

// FailedCarrierIDs unions the failed-carrier history across every booking
// attempt for a ticket, in first-failure order.
func (r *Repository) FailedCarrierIDs(ctx context.Context, ticketID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT failed_carrier_ids FROM delivery_orders WHERE ticket_id = $1 ORDER BY created_at`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to read failed carriers: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var union []string
	for rows.Next() {
		var ids []string
		if err := rows.Scan(&ids); err != nil {
			return nil, fmt.Errorf("failed to scan failed carriers: %w", err)
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				union = append(union, id)
			}
		}
	}
	return union, rows.Err()
}
