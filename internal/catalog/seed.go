package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/models"
	"github.com/roach88/vaniya/internal/tables"
)

// Default minimum record counts below which a table is reseeded.
const (
	DefaultMinProducts  = 100
	DefaultMinMerchants = 3
)

// Seeder writes the default catalog into under-populated tables.
type Seeder struct {
	products     *tables.Table[models.Product, *models.Product]
	merchants    *tables.Table[models.Merchant, *models.Merchant]
	minProducts  int
	minMerchants int
	defaults     func() (Catalog, error)
	log          *zap.Logger
}

// SeederOption configures a Seeder.
type SeederOption func(*Seeder)

// WithMinimums sets the counts below which each table is reseeded.
func WithMinimums(products, merchants int) SeederOption {
	return func(s *Seeder) {
		s.minProducts = products
		s.minMerchants = merchants
	}
}

// WithDefaults replaces the embedded catalog.
func WithDefaults(fn func() (Catalog, error)) SeederOption {
	return func(s *Seeder) {
		s.defaults = fn
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) SeederOption {
	return func(s *Seeder) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSeeder creates a seeder for the given tables.
func NewSeeder(products *tables.Table[models.Product, *models.Product], merchants *tables.Table[models.Merchant, *models.Merchant], opts ...SeederOption) *Seeder {
	s := &Seeder{
		products:     products,
		merchants:    merchants,
		minProducts:  DefaultMinProducts,
		minMerchants: DefaultMinMerchants,
		defaults:     Defaults,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("seed")
	return s
}

// Seed replaces each table holding fewer records than its minimum with the defaults.
// A table below its minimum is assumed to be left over from an older layout, so
// it is overwritten rather than topped up. Returns the tables that were written.
func (s *Seeder) Seed(ctx context.Context) ([]string, error) {
	var (
		cat    Catalog
		loaded bool
		seeded []string
	)
	load := func() error {
		if loaded {
			return nil
		}
		c, err := s.defaults()
		if err != nil {
			return fmt.Errorf("load defaults: %w", err)
		}
		cat, loaded = c, true
		return nil
	}

	n, err := s.products.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if n < s.minProducts {
		if err := load(); err != nil {
			return nil, err
		}
		if err := s.products.Replace(ctx, cat.Products); err != nil {
			return nil, fmt.Errorf("seed products: %w", err)
		}
		s.log.Info("seeded table",
			zap.String("table", s.products.Name()),
			zap.Int("previous", n),
			zap.Int("records", len(cat.Products)))
		seeded = append(seeded, s.products.Name())
	}

	n, err = s.merchants.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count merchants: %w", err)
	}
	if n < s.minMerchants {
		if err := load(); err != nil {
			return nil, err
		}
		if err := s.merchants.Replace(ctx, cat.Merchants); err != nil {
			return nil, fmt.Errorf("seed merchants: %w", err)
		}
		s.log.Info("seeded table",
			zap.String("table", s.merchants.Name()),
			zap.Int("previous", n),
			zap.Int("records", len(cat.Merchants)))
		seeded = append(seeded, s.merchants.Name())
	}

	return seeded, nil
}
