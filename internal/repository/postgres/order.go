package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"booking/internal/domain"
	"booking/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

const orderColumns = `id, status, pickup_location, dropoff_location, scheduled_date, scheduled_time, vehicle_info, customer_info, driver_info, billing_user_id, billed_to_user_id, payment_method, owner_name, status_history, created_at, updated_at`

// orderParams holds the encoded column values of an order for a write.
// Optional JSON columns are a nil interface when absent so they bind as NULL.
type orderParams struct {
	pickup, dropoff              string
	vehicle, customer, driver    any
	history                      string
	scheduledDate, scheduledTime sql.NullString
	paymentMethod, ownerName     sql.NullString
}

// marshalOptional encodes v as a JSON string, or returns nil (SQL NULL) when v is a nil pointer.
func marshalOptional[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func marshalString(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func encodeOrder(order *domain.Order) (*orderParams, error) {
	var (
		row orderParams
		err error
	)
	if row.pickup, err = marshalString(order.PickupLocation); err != nil {
		return nil, fmt.Errorf("encode pickup location: %w", err)
	}
	if row.dropoff, err = marshalString(order.DropoffLocation); err != nil {
		return nil, fmt.Errorf("encode dropoff location: %w", err)
	}
	if row.vehicle, err = marshalOptional(order.VehicleInfo); err != nil {
		return nil, fmt.Errorf("encode vehicle info: %w", err)
	}
	if row.customer, err = marshalOptional(order.CustomerInfo); err != nil {
		return nil, fmt.Errorf("encode customer info: %w", err)
	}
	if row.driver, err = marshalOptional(order.DriverInfo); err != nil {
		return nil, fmt.Errorf("encode driver info: %w", err)
	}
	if row.history, err = marshalString(order.StatusHistory); err != nil {
		return nil, fmt.Errorf("encode status history: %w", err)
	}
	row.scheduledDate = nullStringPtr(order.ScheduledDate)
	row.scheduledTime = nullStringPtr(order.ScheduledTime)
	row.paymentMethod = nullString(order.BillingInfo.PaymentMethod)
	row.ownerName = nullString(order.BillingInfo.OwnerName)
	return &row, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// orderColumnsScan receives the raw column values of an order.
type orderColumnsScan struct {
	pickup, dropoff              []byte
	vehicle, customer, driver    []byte
	history                      []byte
	scheduledDate, scheduledTime sql.NullString
	paymentMethod, ownerName     sql.NullString
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		order domain.Order
		row   orderColumnsScan
	)
	err := s.Scan(
		&order.ID,
		&order.Status,
		&row.pickup,
		&row.dropoff,
		&row.scheduledDate,
		&row.scheduledTime,
		&row.vehicle,
		&row.customer,
		&row.driver,
		&order.BillingInfo.UserID,
		&order.BillingInfo.BilledToUserID,
		&row.paymentMethod,
		&row.ownerName,
		&row.history,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(row.pickup, &order.PickupLocation); err != nil {
		return nil, fmt.Errorf("decode pickup location: %w", err)
	}
	if err := json.Unmarshal(row.dropoff, &order.DropoffLocation); err != nil {
		return nil, fmt.Errorf("decode dropoff location: %w", err)
	}
	if len(row.vehicle) > 0 {
		order.VehicleInfo = &domain.VehicleInfo{}
		if err := json.Unmarshal(row.vehicle, order.VehicleInfo); err != nil {
			return nil, fmt.Errorf("decode vehicle info: %w", err)
		}
	}
	if len(row.customer) > 0 {
		order.CustomerInfo = &domain.CustomerInfo{}
		if err := json.Unmarshal(row.customer, order.CustomerInfo); err != nil {
			return nil, fmt.Errorf("decode customer info: %w", err)
		}
	}
	if len(row.driver) > 0 {
		order.DriverInfo = &domain.DriverInfo{}
		if err := json.Unmarshal(row.driver, order.DriverInfo); err != nil {
			return nil, fmt.Errorf("decode driver info: %w", err)
		}
	}
	if err := json.Unmarshal(row.history, &order.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history: %w", err)
	}

	if row.scheduledDate.Valid {
		order.ScheduledDate = &row.scheduledDate.String
	}
	if row.scheduledTime.Valid {
		order.ScheduledTime = &row.scheduledTime.String
	}
	if row.paymentMethod.Valid {
		order.BillingInfo.PaymentMethod = row.paymentMethod.String
	}
	if row.ownerName.Valid {
		order.BillingInfo.OwnerName = row.ownerName.String
	}

	return &order, nil
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	row, err := encodeOrder(order)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		order.ID,
		order.Status,
		row.pickup,
		row.dropoff,
		row.scheduledDate,
		row.scheduledTime,
		row.vehicle,
		row.customer,
		row.driver,
		order.BillingInfo.UserID,
		order.BillingInfo.BilledToUserID,
		row.paymentMethod,
		row.ownerName,
		row.history,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

// List returns orders matching filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter, page repository.Page) ([]*domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.BilledToUserID != "" {
		args = append(args, filter.BilledToUserID)
		conds = append(conds, fmt.Sprintf("billed_to_user_id = $%d", len(args)))
	}
	if filter.PlacedByUserID != "" {
		args = append(args, filter.PlacedByUserID)
		conds = append(conds, fmt.Sprintf("billing_user_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return nil, errors.New("order filter requires at least one user id")
	}

	page = page.Normalize()
	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// Update overwrites the mutable fields of an order, excluding status and
// history, if it has not been modified since readAt.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order, readAt time.Time) error {
	query := `
		UPDATE orders
		SET pickup_location = $1, dropoff_location = $2, scheduled_date = $3, scheduled_time = $4, vehicle_info = $5, customer_info = $6, driver_info = $7, payment_method = $8, owner_name = $9, updated_at = $10
		WHERE id = $11 AND updated_at = $12
	`

	row, err := encodeOrder(order)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, query,
		row.pickup,
		row.dropoff,
		row.scheduledDate,
		row.scheduledTime,
		row.vehicle,
		row.customer,
		row.driver,
		row.paymentMethod,
		row.ownerName,
		order.UpdatedAt,
		order.ID,
		readAt,
	)
	if err != nil {
		return mapError(err)
	}
	return r.appliedOrConflict(ctx, result, order.ID)
}

// TransitionStatus moves an order from `from` to entry.Status and appends entry
// to its history in one conditional statement.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id string, from domain.OrderStatus, entry domain.StatusEntry, updatedAt time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, status_history = status_history || $2::jsonb, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	appended, err := marshalString([]domain.StatusEntry{entry})
	if err != nil {
		return fmt.Errorf("encode status entry: %w", err)
	}

	result, err := r.q.ExecContext(ctx, query, entry.Status, appended, updatedAt, id, from)
	if err != nil {
		return mapError(err)
	}
	return r.appliedOrConflict(ctx, result, id)
}

// appliedOrConflict inspects a conditional update. No affected rows means
// either the order is missing or its guard column moved underneath us.
func (r *OrderRepository) appliedOrConflict(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapError(err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// Ensure OrderRepository implements repository.OrderRepository.
var _ repository.OrderRepository = (*OrderRepository)(nil)
