package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/config"
	"github.com/roach88/vaniya/internal/logger"
	"github.com/roach88/vaniya/internal/orders"
	"github.com/roach88/vaniya/internal/shop"
	"github.com/roach88/vaniya/internal/tables"
)

// session is an opened shop plus what a command needs around it.
type session struct {
	cfg  *config.Config
	log  *zap.Logger
	shop *shop.Shop
	out  *OutputFormatter
}

func formatterFor(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// commandContext returns the command's context, or Background when run outside
// Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openSession loads configuration and opens the shop it describes.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := formatterFor(cmd, opts)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, out.Fail(ExitCommandError, CodeConfig, "failed to load configuration", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Log.Development)
	if err != nil {
		return nil, out.Fail(ExitCommandError, CodeConfig, "failed to create logger", err)
	}

	out.VerboseLog("opening store %s", cfg.Store.Path)
	s, err := shop.Open(commandContext(cmd), cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, out.Fail(ExitCommandError, CodeStore, "failed to open store", err)
	}
	return &session{cfg: cfg, log: log, shop: s, out: out}, nil
}

func (s *session) Close() {
	if err := s.shop.Close(); err != nil {
		s.log.Error("error closing shop", zap.Error(err))
	}
	_ = s.log.Sync()
}

// fail reports a data layer error with the matching exit and error codes.
func (s *session) fail(message string, err error) error {
	switch {
	case errors.Is(err, orders.ErrInvalidOrder), tables.IsInvalidError(err):
		return s.out.Fail(ExitFailure, CodeInvalid, message, err)
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, shop.ErrUnknownTable):
		return s.out.Fail(ExitFailure, CodeNotFound, message, err)
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, tables.ErrDuplicateID), tables.IsConflictError(err):
		return s.out.Fail(ExitFailure, CodeConflict, message, err)
	default:
		return s.out.Fail(ExitCommandError, CodeStore, message, err)
	}
}
