// Package shop assembles the local data layer: the Table Store, its typed tables,
// change notification, seeding, order placement and the remote mirror.
package shop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/bus"
	"github.com/roach88/vaniya/internal/catalog"
	"github.com/roach88/vaniya/internal/mirror"
	"github.com/roach88/vaniya/internal/models"
	"github.com/roach88/vaniya/internal/orders"
	"github.com/roach88/vaniya/internal/tables"
)

// ErrUnknownTable is returned for record operations on a table the shop does not own.
var ErrUnknownTable = errors.New("unknown table")

// Deps are the pieces New wires together. KV and Bus are required.
type Deps struct {
	KV        tables.KV
	Bus       *bus.Bus
	Remote    mirror.Remote
	Validator tables.Validator
	Namespace string
	IDs       tables.IDGenerator
	Now       func() time.Time
	Log       *zap.Logger

	MinProducts  int
	MinMerchants int

	// Closers run in reverse order on Close, after the bus is closed.
	Closers []func() error
}

// Shop is the assembled data layer.
type Shop struct {
	Tables    *tables.Tables
	Products  *tables.Table[models.Product, *models.Product]
	Orders    *tables.Table[models.Order, *models.Order]
	Customers *tables.Table[models.Customer, *models.Customer]
	Merchants *tables.Table[models.Merchant, *models.Merchant]
	Coupons   *tables.Table[models.Coupon, *models.Coupon]
	Payouts   *tables.Table[models.Payout, *models.Payout]

	bus     *bus.Bus
	remote  mirror.Remote
	seeder  *catalog.Seeder
	orders  *orders.Service
	records map[string]recordOps
	now     func() time.Time
	log     *zap.Logger
	closers []func() error

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New wires deps into a Shop. It does not seed; call Init.
func New(d Deps) (*Shop, error) {
	if d.KV == nil {
		return nil, errors.New("shop: KV is required")
	}
	if d.Bus == nil {
		return nil, errors.New("shop: Bus is required")
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	remote := d.Remote
	if remote == nil {
		remote = mirror.Nop{}
	}

	opts := []tables.Option{tables.WithLogger(log)}
	if d.Namespace != "" {
		opts = append(opts, tables.WithNamespace(d.Namespace))
	}
	if d.Validator != nil {
		opts = append(opts, tables.WithValidator(d.Validator))
	}
	if d.IDs != nil {
		opts = append(opts, tables.WithIDGenerator(d.IDs))
	}
	ts := tables.New(d.KV, d.Bus, opts...)

	s := &Shop{
		Tables:    ts,
		Products:  tables.NewTable[models.Product](ts, models.TableProducts),
		Orders:    tables.NewTable[models.Order](ts, models.TableOrders),
		Customers: tables.NewTable[models.Customer](ts, models.TableCustomers),
		Merchants: tables.NewTable[models.Merchant](ts, models.TableMerchants),
		Coupons:   tables.NewTable[models.Coupon](ts, models.TableCoupons),
		Payouts:   tables.NewTable[models.Payout](ts, models.TablePayouts),
		bus:       d.Bus,
		remote:    remote,
		now:       time.Now,
		log:       log.Named("shop"),
		closers:   d.Closers,
	}

	seedOpts := []catalog.SeederOption{catalog.WithLogger(log)}
	if d.MinProducts > 0 || d.MinMerchants > 0 {
		minProducts, minMerchants := d.MinProducts, d.MinMerchants
		if minProducts <= 0 {
			minProducts = catalog.DefaultMinProducts
		}
		if minMerchants <= 0 {
			minMerchants = catalog.DefaultMinMerchants
		}
		seedOpts = append(seedOpts, catalog.WithMinimums(minProducts, minMerchants))
	}
	s.seeder = catalog.NewSeeder(s.Products, s.Merchants, seedOpts...)

	orderOpts := []orders.Option{orders.WithMirror(remote), orders.WithLogger(log)}
	if d.IDs != nil {
		orderOpts = append(orderOpts, orders.WithIDGenerator(d.IDs))
	}
	if d.Now != nil {
		s.now = d.Now
		orderOpts = append(orderOpts, orders.WithNowFunc(d.Now))
	}
	s.orders = orders.NewService(s.Orders, s.Products, orderOpts...)

	s.records = map[string]recordOps{
		models.TableProducts:  opsFor(s.Products),
		models.TableOrders:    opsFor(s.Orders),
		models.TableCustomers: opsFor(s.Customers),
		models.TableMerchants: opsFor(s.Merchants),
		models.TableCoupons:   opsFor(s.Coupons),
		models.TablePayouts:   opsFor(s.Payouts),
	}

	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	return s, nil
}

// Origin returns the bus origin of this context.
func (s *Shop) Origin() string {
	return s.bus.Origin()
}

// Init seeds empty or short tables, then pulls the remote catalog in the background.
//
// The pull may finish after the caller starts reading; the catalog then changes
// under it and a products notification is published.
func (s *Shop) Init(ctx context.Context) ([]string, error) {
	seeded, err := s.seeder.Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if _, err := s.Hydrate(s.bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("catalog pull failed", zap.Error(err))
		}
	}()
	return seeded, nil
}

// Seed runs the seeder without pulling the remote catalog.
func (s *Shop) Seed(ctx context.Context) ([]string, error) {
	return s.seeder.Seed(ctx)
}

// Hydrate replaces the local products with the remote catalog when the remote has
// any. It returns the number of products written.
func (s *Shop) Hydrate(ctx context.Context) (int, error) {
	products, err := s.remote.PullCatalog(ctx)
	if err != nil {
		return 0, fmt.Errorf("pull catalog: %w", err)
	}
	if len(products) == 0 {
		s.log.Debug("remote catalog empty, keeping local products")
		return 0, nil
	}
	if err := s.Products.Replace(ctx, products); err != nil {
		return 0, fmt.Errorf("store pulled catalog: %w", err)
	}
	s.log.Info("catalog hydrated", zap.Int("products", len(products)))
	return len(products), nil
}

// BuildOrder turns a checkout draft into a pending order without storing it.
func (s *Shop) BuildOrder(d orders.Draft) models.Order {
	return s.orders.Build(d)
}

// PlaceOrder builds d and places it against the stored catalog.
func (s *Shop) PlaceOrder(ctx context.Context, d orders.Draft) (models.Order, error) {
	return s.orders.Place(ctx, s.orders.Build(d), nil)
}

// PlaceBuiltOrder places an already built order. catalog is used to look up line
// item products; nil means the stored products.
func (s *Shop) PlaceBuiltOrder(ctx context.Context, order models.Order, catalog []models.Product) (models.Order, error) {
	return s.orders.Place(ctx, order, catalog)
}

// UpdateOrderStatus moves an order along its lifecycle.
func (s *Shop) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (models.Order, error) {
	return s.orders.UpdateStatus(ctx, id, status)
}

// SaveProduct replaces the product with p's id, or inserts p when there is none,
// and pushes the result to the mirror.
func (s *Shop) SaveProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p.Title = p.Title.Normalize()
	p.Description = p.Description.Normalize()
	saved, err := save(ctx, s.Products, p)
	if err != nil {
		return models.Product{}, err
	}
	s.remote.PushProduct(saved)
	return saved, nil
}

// PatchProduct applies patch to product id and pushes the result.
// Returns (nil, nil) when there is no such product.
func (s *Shop) PatchProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	updated, err := s.Products.Update(ctx, id, patch)
	if err != nil || updated == nil {
		return nil, err
	}
	s.remote.PushProduct(*updated)
	return updated, nil
}

// SaveCustomer replaces or inserts c, stamps its last activity and pushes it.
func (s *Shop) SaveCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	if c.Role == "" {
		c.Role = models.RoleCustomer
	}
	c.Language = models.ParseLanguage(c.Language)
	now := s.now().UTC()
	c.LastActive = &now
	saved, err := save(ctx, s.Customers, c)
	if err != nil {
		return models.Customer{}, err
	}
	s.remote.PushCustomer(saved)
	return saved, nil
}

// SaveMerchant replaces or inserts m and pushes it.
func (s *Shop) SaveMerchant(ctx context.Context, m models.Merchant) (models.Merchant, error) {
	saved, err := save(ctx, s.Merchants, m)
	if err != nil {
		return models.Merchant{}, err
	}
	s.remote.PushMerchant(saved)
	return saved, nil
}

// Record returns the record id from table as its stored type.
// Returns (nil, nil) when there is no such record.
func (s *Shop) Record(ctx context.Context, table, id string) (any, error) {
	ops, ok := s.records[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return ops.get(ctx, id)
}

// DeleteRecord removes record id from table.
func (s *Shop) DeleteRecord(ctx context.Context, table, id string) error {
	ops, ok := s.records[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return ops.delete(ctx, id)
}

// Subscribe registers cb for change notifications.
func (s *Shop) Subscribe(cb bus.Callback) func() {
	return s.bus.Subscribe(cb)
}

// Drain delivers queued peer notifications.
func (s *Shop) Drain() int {
	return s.bus.Drain()
}

// Run delivers peer notifications until ctx is done or the shop is closed.
func (s *Shop) Run(ctx context.Context) error {
	return s.bus.Run(ctx)
}

// Reset removes every table and notifies subscribers.
func (s *Shop) Reset(ctx context.Context) (int, error) {
	return s.Tables.Reset(ctx)
}

// Close stops the background pull, waits for in-flight pushes and releases
// resources. It is safe to call more than once.
func (s *Shop) Close() error {
	s.closeOnce.Do(func() {
		s.bgCancel()
		s.bg.Wait()
		s.remote.Wait()

		errs := []error{s.bus.Close()}
		for i := len(s.closers) - 1; i >= 0; i-- {
			errs = append(errs, s.closers[i]())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
