package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/bus"
	"github.com/roach88/vaniya/internal/config"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Count int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print change notifications from other contexts",
		Long: `Join the configured broadcast channel and print every change notification
published by other contexts, one per line, until interrupted. Other processes are
only reachable through the redis driver; the none driver is refused.

Example:
  VANIYA_BROADCAST_DRIVER=redis vaniya watch
  vaniya watch --format json --count 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "exit after this many notifications (0 = until interrupted)")

	return cmd
}

type watchLine struct {
	Type      bus.Kind `json:"type"`
	Table     string   `json:"table,omitempty"`
	Origin    string   `json:"origin"`
	Seq       int64    `json:"seq"`
	Timestamp int64    `json:"timestamp"`
	Missed    int64    `json:"missed,omitempty"`
	Stale     bool     `json:"stale,omitempty"`
}

func watch(opts *WatchOptions, cmd *cobra.Command) error {
	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	switch sess.cfg.Broadcast.Driver {
	case config.DriverNone:
		return sess.out.Fail(ExitCommandError, CodeConfig,
			"nothing to watch: broadcast.driver is none", nil)
	case config.DriverMemory:
		fmt.Fprintln(cmd.ErrOrStderr(),
			"warning: the memory broadcast driver only reaches contexts in this process; set broadcast.driver=redis to watch other processes")
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			sess.log.Info("received signal, stopping", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	w := cmd.OutOrStdout()
	enc := json.NewEncoder(w)
	var seen atomic.Int64
	unsubscribe := sess.shop.Subscribe(func(e bus.Event) {
		if opts.Format == "json" {
			_ = enc.Encode(watchLine{
				Type: e.Kind, Table: e.Table, Origin: e.Origin, Seq: e.Seq,
				Timestamp: e.Timestamp, Missed: e.Missed, Stale: e.Stale,
			})
		} else {
			fmt.Fprintf(w, "%s %-6s %-10s origin=%s seq=%d%s\n",
				e.Time().Format("15:04:05.000"), e.Kind, e.Table, e.Origin, e.Seq, deliveryNote(e))
		}
		if opts.Count > 0 && seen.Add(1) >= int64(opts.Count) {
			cancel()
		}
	})
	defer unsubscribe()

	sess.out.VerboseLog("watching channel %s as %s", sess.cfg.Broadcast.Channel, sess.shop.Origin())
	if err := sess.shop.Run(ctx); err != nil && ctx.Err() == nil {
		return sess.fail("watch failed", err)
	}
	return nil
}

func deliveryNote(e bus.Event) string {
	switch {
	case e.Stale:
		return " (stale)"
	case e.Missed > 0:
		return fmt.Sprintf(" (missed %d)", e.Missed)
	default:
		return ""
	}
}
