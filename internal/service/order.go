package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"booking/internal/domain"
	"booking/internal/events"
	"booking/internal/logger"
	"booking/internal/metrics"
	"booking/internal/redis"
	"booking/internal/repository"
)

const (
	publishTimeout    = 3 * time.Second
	maxUpdateAttempts = 5
)

// OrderService handles the order lifecycle.
type OrderService struct {
	orders    repository.OrderRepository
	billing   *BillingResolver
	cache     redis.OrderCacheInterface
	publisher events.Publisher
	logger    *zap.Logger
	clock     func() time.Time
}

// NewOrderService creates a new OrderService. billing, cache and publisher
// are optional.
func NewOrderService(
	orders repository.OrderRepository,
	billing *BillingResolver,
	cache redis.OrderCacheInterface,
	publisher events.Publisher,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		billing:   billing,
		cache:     cache,
		publisher: publisher,
		logger:    logger.OrNop(log),
		clock:     time.Now,
	}
}

// WithClock replaces the time source.
func (s *OrderService) WithClock(clock func() time.Time) *OrderService {
	s.clock = clock
	return s
}

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	PickupLocation  domain.Location
	DropoffLocation domain.Location
	ScheduledDate   *string
	ScheduledTime   *string
	VehicleInfo     *domain.VehicleInfo
	CustomerInfo    *domain.CustomerInfo
	DriverInfo      *domain.DriverInfo
	BillingInfo     domain.BillingInfo
}

// Create validates and persists a new order. The initial status is
// SCHEDULED when both a date and a time are given, FINDING_DRIVER otherwise.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	order := &domain.Order{
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		ScheduledDate:   blankToNil(req.ScheduledDate),
		ScheduledTime:   blankToNil(req.ScheduledTime),
		VehicleInfo:     req.VehicleInfo,
		CustomerInfo:    req.CustomerInfo,
		DriverInfo:      req.DriverInfo,
		BillingInfo:     req.BillingInfo,
	}
	if order.BillingInfo.UserID == "" {
		return nil, validationError("billingInfo.userId is required")
	}
	if err := s.validateOrder(order); err != nil {
		return nil, err
	}

	if order.BillingInfo.BilledToUserID == "" {
		billedTo := order.BillingInfo.UserID
		if s.billing != nil {
			var err error
			if billedTo, err = s.billing.Attribute(ctx, order.BillingInfo.UserID); err != nil {
				return nil, err
			}
		}
		order.BillingInfo.BilledToUserID = billedTo
	}

	now := s.clock().UTC()
	order.ID = uuid.New().String()
	order.Status = domain.OrderStatusFindingDriver
	if order.IsScheduled() {
		order.Status = domain.OrderStatusScheduled
	}
	order.StatusHistory = []domain.StatusEntry{{Status: order.Status, Timestamp: now}}
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, storeError("create order", err)
	}

	metrics.OrderCreated(order.Status.String())
	s.publish(ctx, events.OrderCreated, order, now)
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("status", order.Status.String()),
		zap.String("placed_by", order.BillingInfo.UserID),
		zap.String("billed_to", order.BillingInfo.BilledToUserID),
	)
	return order, nil
}

// Get retrieves an order by ID.
func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, validationError("order id is required")
	}

	if s.cache != nil {
		cached, err := s.cache.GetOrder(ctx, id)
		if err != nil {
			s.logger.Warn("order cache read failed", zap.String("order_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get order", err)
	}

	if s.cache != nil {
		if err := s.cache.SetOrder(ctx, order); err != nil {
			s.logger.Warn("order cache write failed", zap.String("order_id", id), zap.Error(err))
		}
	}
	return order, nil
}

// UpdateStatus moves an order to next if the transition table allows it and
// appends the change to its history.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	if id == "" {
		return nil, validationError("order id is required")
	}
	if !next.Valid() {
		return nil, validationError("unknown status %d", int(next))
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get order", err)
	}

	if !order.Status.CanTransitionTo(next) {
		metrics.OrderTransition(next.String(), false)
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, next)
	}

	if !order.HistoryConsistent() {
		return nil, fmt.Errorf("%w: order %s has inconsistent status history", ErrPersistence, id)
	}

	now := s.clock().UTC()
	if last := order.StatusHistory[len(order.StatusHistory)-1].Timestamp; now.Before(last) {
		now = last
	}
	entry := domain.StatusEntry{Status: next, Timestamp: now}

	if err := s.orders.TransitionStatus(ctx, id, order.Status, entry, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.OrderTransition(next.String(), false)
			return nil, fmt.Errorf("%w: status of order %s changed concurrently", ErrInvalidTransition, id)
		}
		return nil, storeError("transition order", err)
	}

	order.Status = next
	order.StatusHistory = append(order.StatusHistory, entry)
	order.UpdatedAt = now

	s.invalidate(ctx, id)
	metrics.OrderTransition(next.String(), true)
	s.publish(ctx, events.OrderStatusChanged, order, now)
	s.logger.Info("order status changed",
		zap.String("order_id", id),
		zap.String("status", next.String()),
	)
	return order, nil
}

// Cancel moves an order to CANCELLED.
func (s *OrderService) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	return s.UpdateStatus(ctx, id, domain.OrderStatusCancelled)
}

// Update merges patch into the order's mutable fields. Status changes go
// through UpdateStatus. The write is conditional on the order being unchanged
// since it was read; a concurrent writer causes the patch to be reapplied to
// the fresh order, up to maxUpdateAttempts times.
func (s *OrderService) Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	if id == "" {
		return nil, validationError("order id is required")
	}

	for attempt := 1; ; attempt++ {
		order, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, storeError("get order", err)
		}
		if patch.Empty() {
			return order, nil
		}

		readAt := order.UpdatedAt
		patch.Apply(order)
		order.ScheduledDate = blankToNil(order.ScheduledDate)
		order.ScheduledTime = blankToNil(order.ScheduledTime)
		if err := s.validateOrder(order); err != nil {
			return nil, err
		}
		order.UpdatedAt = s.clock().UTC()
		if !order.UpdatedAt.After(readAt) {
			order.UpdatedAt = readAt.Add(time.Microsecond)
		}

		err = s.orders.Update(ctx, order, readAt)
		if errors.Is(err, repository.ErrConflict) {
			if attempt < maxUpdateAttempts {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrConcurrentUpdate, id)
		}
		if err != nil {
			return nil, storeError("update order", err)
		}
		s.invalidate(ctx, id)
		return order, nil
	}
}

func (s *OrderService) validateOrder(order *domain.Order) error {
	if err := validateLocation("pickupLocation", order.PickupLocation); err != nil {
		return err
	}
	if err := validateLocation("dropoffLocation", order.DropoffLocation); err != nil {
		return err
	}
	if order.ScheduledDate != nil {
		if _, err := time.Parse("2006-01-02", *order.ScheduledDate); err != nil {
			return validationError("scheduledDate must be YYYY-MM-DD")
		}
	}
	if order.ScheduledTime != nil {
		if _, err := time.Parse("15:04", *order.ScheduledTime); err != nil {
			return validationError("scheduledTime must be HH:MM")
		}
	}
	if v := order.VehicleInfo; v != nil {
		if v.Make == "" || v.Model == "" {
			return validationError("vehicleInfo requires make and model")
		}
		if maxYear := s.clock().Year() + 1; v.Year != 0 && (v.Year < 1900 || v.Year > maxYear) {
			return validationError("vehicleInfo.year %d out of range", v.Year)
		}
	}
	if c := order.CustomerInfo; c != nil && (c.Name == "" || c.Phone == "") {
		return validationError("customerInfo requires name and phone")
	}
	if d := order.DriverInfo; d != nil {
		if d.Rating != nil && (*d.Rating < 0 || *d.Rating > 5) {
			return validationError("driverInfo.rating must be between 0 and 5")
		}
		if d.Tip != nil && *d.Tip < 0 {
			return validationError("driverInfo.tip must not be negative")
		}
	}
	return nil
}

func validateLocation(field string, loc domain.Location) error {
	if loc.Address == "" {
		return validationError("%s.address is required", field)
	}
	if loc.Lat != nil && (*loc.Lat < -90 || *loc.Lat > 90) {
		return validationError("%s.lat out of range", field)
	}
	if loc.Lng != nil && (*loc.Lng < -180 || *loc.Lng > 180) {
		return validationError("%s.lng out of range", field)
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func (s *OrderService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOrder(ctx, id); err != nil {
		s.logger.Warn("order cache invalidation failed", zap.String("order_id", id), zap.Error(err))
	}
}

// publish emits an order event. Delivery failures are logged and dropped.
func (s *OrderService) publish(ctx context.Context, eventType string, order *domain.Order, at time.Time) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.publisher.PublishOrderEvent(ctx, events.OrderEvent{
		Type:           eventType,
		OrderID:        order.ID,
		Status:         int(order.Status),
		StatusLabel:    order.Status.String(),
		PlacedByUserID: order.BillingInfo.UserID,
		BilledToUserID: order.BillingInfo.BilledToUserID,
		OccurredAt:     at,
	})
	if err != nil {
		s.logger.Warn("order event publish failed",
			zap.String("order_id", order.ID),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
