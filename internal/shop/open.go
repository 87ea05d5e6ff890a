package shop

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/bus"
	"github.com/roach88/vaniya/internal/config"
	"github.com/roach88/vaniya/internal/mirror"
	"github.com/roach88/vaniya/internal/schema"
	"github.com/roach88/vaniya/internal/store"
)

// hub connects contexts opened in this process under the memory driver.
var hub = bus.NewMemoryHub()

// Open builds a Shop from configuration. The caller must Close it.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Shop, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var closers []func() error
	fail := func(err error) (*Shop, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				log.Warn("cleanup after failed open", zap.Error(cerr))
			}
		}
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path, store.WithQuota(cfg.Store.QuotaBytes))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	closers = append(closers, st.Close)

	peer, err := openBroadcaster(ctx, cfg.Broadcast, log, &closers)
	if err != nil {
		return fail(err)
	}

	b, err := bus.New(peer, bus.WithLogger(log))
	if err != nil {
		return fail(fmt.Errorf("create bus: %w", err))
	}

	deps := Deps{
		KV:           st,
		Bus:          b,
		Namespace:    cfg.Store.Namespace,
		Log:          log,
		MinProducts:  cfg.Seed.MinProducts,
		MinMerchants: cfg.Seed.MinMerchants,
		Closers:      closers,
	}

	if cfg.Strict {
		v, err := schema.New()
		if err != nil {
			_ = b.Close()
			return fail(fmt.Errorf("load record schemas: %w", err))
		}
		deps.Validator = v
	}

	if cfg.Remote.Enabled {
		awsCfg, err := mirror.LoadAWSConfig(ctx, cfg.Remote.Region)
		if err != nil {
			_ = b.Close()
			return fail(err)
		}
		deps.Remote = mirror.New(mirror.NewClient(awsCfg, cfg.Remote.Endpoint),
			mirror.RemoteTables{
				Products:  cfg.Remote.Tables.Products,
				Orders:    cfg.Remote.Tables.Orders,
				Customers: cfg.Remote.Tables.Customers,
				Merchants: cfg.Remote.Tables.Merchants,
			},
			mirror.WithTimeout(cfg.Remote.Timeout),
			mirror.WithLogger(log))
	}

	s, err := New(deps)
	if err != nil {
		_ = b.Close()
		return fail(err)
	}
	log.Info("shop opened",
		zap.String("store", cfg.Store.Path),
		zap.String("broadcast", cfg.Broadcast.Driver),
		zap.Bool("remote", cfg.Remote.Enabled),
		zap.Bool("strict", cfg.Strict),
		zap.String("origin", b.Origin()))
	return s, nil
}

// openBroadcaster returns the peer transport for cfg. Resources it opens beyond
// the broadcaster itself are appended to closers.
func openBroadcaster(ctx context.Context, cfg config.BroadcastConfig, log *zap.Logger, closers *[]func() error) (bus.Broadcaster, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return hub.Join(cfg.Channel), nil
	case config.DriverRedis:
		client, err := bus.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, client.Close)
		return bus.NewRedis(client, cfg.Channel, log), nil
	case config.DriverNone:
		return bus.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown broadcast driver %q", cfg.Driver)
	}
}
