// Package orders places orders and moves them through their lifecycle.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/models"
	"github.com/roach88/vaniya/internal/tables"
)

var (
	// ErrInvalidOrder is returned when an order fails validation.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrOrderNotFound is returned when no order has the given id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned when the requested status is not reachable.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Mirror receives records after they are committed locally.
// Implementations must not block; delivery is best effort.
type Mirror interface {
	PushOrder(o models.Order)
	PushProduct(p models.Product)
}

type nopMirror struct{}

func (nopMirror) PushOrder(models.Order)     {}
func (nopMirror) PushProduct(models.Product) {}

// Service handles order placement and status changes.
type Service struct {
	tables   *tables.Tables
	orders   *tables.Table[models.Order, *models.Order]
	products *tables.Table[models.Product, *models.Product]
	mirror   Mirror
	validate *validatorv10.Validate
	ids      tables.IDGenerator
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMirror sets where committed orders and products are pushed.
func WithMirror(m Mirror) Option {
	return func(s *Service) {
		if m != nil {
			s.mirror = m
		}
	}
}

// WithIDGenerator sets how orders without an id get one.
func WithIDGenerator(g tables.IDGenerator) Option {
	return func(s *Service) {
		s.ids = g
	}
}

// WithNowFunc overrides the clock.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates an order service over the orders and products tables.
func NewService(orders *tables.Table[models.Order, *models.Order], products *tables.Table[models.Product, *models.Product], opts ...Option) *Service {
	s := &Service{
		tables:   orders.Store(),
		orders:   orders,
		products: products,
		mirror:   nopMirror{},
		validate: NewValidator(),
		ids:      tables.RandomIDs{},
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("orders")
	return s
}

// Build assigns an id and timestamp to a draft and computes its totals.
func (s *Service) Build(d Draft) models.Order {
	if d.ID == "" {
		d.ID = s.ids.Generate()
	}
	return Build(d, s.now())
}

// Place records order and decrements stock for its line items in one commit.
//
// Each line item's product is looked up in catalog, or in the stored products when
// catalog is nil. Items whose product cannot be found are skipped. Stock is
// clamped at zero against the stored record; a named variant's stock is clamped
// independently of the product's. The order and the touched products are pushed to
// the mirror after the commit.
func (s *Service) Place(ctx context.Context, order models.Order, catalog []models.Product) (models.Order, error) {
	if order.ID == "" {
		order.ID = s.ids.Generate()
	}
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	if order.Date.IsZero() {
		order.Date = s.now().UTC()
	}
	if err := s.validate.Struct(order); err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	var touched []models.Product
	err := s.tables.Atomic(ctx, func(tx *tables.Tx) error {
		touched = touched[:0]

		existing, err := s.orders.Load(tx)
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].ID == order.ID {
				return fmt.Errorf("place order %s: %w", order.ID, tables.ErrDuplicateID)
			}
		}

		products, err := s.products.Load(tx)
		if err != nil {
			return err
		}
		lookup := catalog
		if lookup == nil {
			lookup = products
		}

		changed := make(map[string]bool)
		for _, item := range order.Items {
			if !containsProduct(lookup, item.ProductID) {
				s.log.Warn("line item product not in catalog",
					zap.String("order", order.ID),
					zap.String("product", item.ProductID))
				continue
			}
			p := findProduct(products, item.ProductID)
			if p == nil {
				s.log.Warn("line item product not stored",
					zap.String("order", order.ID),
					zap.String("product", item.ProductID))
				continue
			}
			p.Stock = clamp(p.Stock - item.Quantity)
			if item.VariantID != "" {
				if v := p.Variant(item.VariantID); v != nil {
					v.Stock = clamp(v.Stock - item.Quantity)
				}
			}
			changed[p.ID] = true
		}

		next := make([]models.Order, 0, len(existing)+1)
		next = append(next, order)
		next = append(next, existing...)
		if err := s.orders.Stage(tx, next); err != nil {
			return err
		}

		if len(changed) == 0 {
			return nil
		}
		for _, p := range products {
			if changed[p.ID] {
				touched = append(touched, p)
			}
		}
		return s.products.Stage(tx, products)
	})
	if err != nil {
		s.log.Error("order placement failed", zap.String("order", order.ID), zap.Error(err))
		return models.Order{}, err
	}

	s.log.Info("order placed",
		zap.String("order", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.String()))

	s.mirror.PushOrder(order)
	for _, p := range touched {
		s.mirror.PushProduct(p)
	}
	return order, nil
}

// UpdateStatus moves an order to status and completes its tracking step.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	var updated models.Order
	err := s.tables.Atomic(ctx, func(tx *tables.Tx) error {
		all, err := s.orders.Load(tx)
		if err != nil {
			return err
		}
		for i := range all {
			if all[i].ID != id {
				continue
			}
			current := all[i].Status
			if !current.CanTransition(status) {
				return fmt.Errorf("order %s: %s -> %s: %w", id, current, status, ErrInvalidTransition)
			}
			all[i].Status = status
			all[i].TrackingSteps = advance(all[i].TrackingSteps, status, s.now())
			updated = all[i]
			return s.orders.Stage(tx, all)
		}
		return fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	})
	if err != nil {
		return models.Order{}, err
	}

	s.log.Info("order status changed", zap.String("order", id), zap.String("status", string(status)))
	s.mirror.PushOrder(updated)
	return updated, nil
}

// Cancel moves an order to cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (models.Order, error) {
	return s.UpdateStatus(ctx, id, models.StatusCancelled)
}

func clamp(stock int) int {
	if stock < 0 {
		return 0
	}
	return stock
}

func containsProduct(products []models.Product, id string) bool {
	for i := range products {
		if products[i].ID == id {
			return true
		}
	}
	return false
}

func findProduct(products []models.Product, id string) *models.Product {
	for i := range products {
		if products[i].ID == id {
			return &products[i]
		}
	}
	return nil
}
