package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vaniya/internal/config"
	"github.com/roach88/vaniya/internal/models"
	"github.com/roach88/vaniya/internal/shop"
)

const oilDraft = `{"id":"o-1","customerId":"u1","merchantId":"m2","items":[{"productId":"p-oil-01","quantity":2,"price":350}]}`

// writeConfig writes a config file pointing at a fresh database.
func writeConfig(t *testing.T, driver string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vaniya.yaml")
	content := fmt.Sprintf(`env: test
log:
  level: error
store:
  path: %q
broadcast:
  driver: %s
  channel: %q
`, filepath.Join(dir, "shop.db"), driver, t.Name())
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type result struct {
	out    string
	errOut string
	err    error
}

func execute(ctx context.Context, cfgPath, stdin string, args ...string) result {
	root := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.ExecuteContext(ctx)
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func run(t *testing.T, cfgPath string, args ...string) result {
	t.Helper()
	return execute(context.Background(), cfgPath, "", args...)
}

func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, data))
	}
	return resp
}

func TestSeedCommand(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)

	r := run(t, cfg, "seed")
	require.NoError(t, r.err)
	assert.Equal(t, "Seeded: products, merchants\n", r.out)

	r = run(t, cfg, "seed")
	require.NoError(t, r.err)
	assert.Equal(t, "Nothing to seed.\n", r.out)

	r = run(t, cfg, "seed", "--format", "json")
	require.NoError(t, r.err)
	var data map[string][]string
	resp := decodeResponse(t, r.out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, data["seeded"])
}

func TestSelectCommand(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)

	r := run(t, cfg, "select", "merchants", "--format", "json")
	require.NoError(t, r.err)
	var empty []any
	decodeResponse(t, r.out, &empty)
	assert.Empty(t, empty)

	require.NoError(t, run(t, cfg, "seed").err)

	r = run(t, cfg, "select", "merchants", "--format", "json")
	require.NoError(t, r.err)
	var merchants []models.Merchant
	decodeResponse(t, r.out, &merchants)
	assert.Len(t, merchants, 3)

	r = run(t, cfg, "select", "merchants")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, `"id": "m1"`)
}

func TestGetCommand(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)
	require.NoError(t, run(t, cfg, "seed").err)

	r := run(t, cfg, "get", "products", "p-oil-01", "--format", "json")
	require.NoError(t, r.err)
	var p models.Product
	decodeResponse(t, r.out, &p)
	assert.Equal(t, "p-oil-01", p.ID)
	assert.Equal(t, "m2", p.MerchantID)

	r = run(t, cfg, "get", "products", "p-none")
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, GetExitCode(r.err))
	assert.Contains(t, r.out, "Error [E003]")

	r = run(t, cfg, "get", "sessions", "x")
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, GetExitCode(r.err))
}

func TestDeleteCommand(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)
	require.NoError(t, run(t, cfg, "seed").err)

	r := run(t, cfg, "delete", "merchants", "m3")
	require.NoError(t, r.err)
	assert.Equal(t, "Deleted m3 from merchants.\n", r.out)

	r = run(t, cfg, "get", "merchants", "m3")
	assert.Equal(t, ExitFailure, GetExitCode(r.err))
}

func TestPlaceOrderCommand(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)
	require.NoError(t, run(t, cfg, "seed").err)

	var before models.Product
	decodeResponse(t, run(t, cfg, "get", "products", "p-oil-01", "--format", "json").out, &before)

	draft := filepath.Join(t.TempDir(), "draft.json")
	require.NoError(t, os.WriteFile(draft, []byte(oilDraft), 0o644))

	r := run(t, cfg, "place-order", "--file", draft)
	require.NoError(t, r.err)
	assert.Equal(t, "Placed order o-1: 1 items, total 735.00.\n", r.out)

	var after models.Product
	decodeResponse(t, run(t, cfg, "get", "products", "p-oil-01", "--format", "json").out, &after)
	assert.Equal(t, max(before.Stock-2, 0), after.Stock)

	r = run(t, cfg, "place-order", "--file", draft)
	require.Error(t, r.err, "same order id twice")
	assert.Contains(t, r.out, "Error [E005]")
}

func TestPlaceOrderCommand_Stdin(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)

	r := execute(context.Background(), cfg, oilDraft, "place-order", "--file", "-", "--format", "json")
	require.NoError(t, r.err)
	var order models.Order
	decodeResponse(t, r.out, &order)
	assert.Equal(t, "o-1", order.ID)
	assert.Equal(t, models.StatusPending, order.Status)
}

func TestPlaceOrderCommand_Rejects(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)

	r := execute(context.Background(), cfg, "{not json", "place-order", "-f", "-")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))

	r = execute(context.Background(), cfg, `{"customerId":"u1","merchantId":"m1","items":[]}`, "place-order", "-f", "-")
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, GetExitCode(r.err))
	assert.Contains(t, r.out, "Error [E004]")

	r = run(t, cfg, "place-order", "-f", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
}

func TestSetStatusCommand(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)
	require.NoError(t, execute(context.Background(), cfg, oilDraft, "place-order", "-f", "-").err)

	r := run(t, cfg, "set-status", "o-1", "confirmed")
	require.NoError(t, r.err)
	assert.Equal(t, "Order o-1 is now confirmed.\n", r.out)

	r = run(t, cfg, "set-status", "o-1", "pending")
	require.Error(t, r.err)
	assert.Contains(t, r.out, "Error [E005]")

	r = run(t, cfg, "set-status", "o-404", "confirmed")
	require.Error(t, r.err)
	assert.Contains(t, r.out, "Error [E003]")
}

func TestResetCommand(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)
	require.NoError(t, run(t, cfg, "seed").err)

	r := run(t, cfg, "reset")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))

	r = run(t, cfg, "reset", "--yes")
	require.NoError(t, r.err)
	assert.Equal(t, "Removed 2 tables.\n", r.out)
}

func TestPullCommand_RemoteDisabled(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)

	r := run(t, cfg, "pull")
	require.NoError(t, r.err)
	assert.Equal(t, "Remote catalog empty; local products kept.\n", r.out)
}

func TestConfigError(t *testing.T) {
	r := run(t, filepath.Join(t.TempDir(), "missing.yaml"), "seed", "--format", "json")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
	resp := decodeResponse(t, r.out, nil)
	assert.Equal(t, CodeConfig, resp.Error.Code)
}

func TestServeCommand_StopsWithContext(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	r := execute(ctx, cfg, "", "serve", "--addr", "127.0.0.1:0")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Serving on 127.0.0.1:")
}

func TestWatchCommand_PrintsPeerNotifications(t *testing.T) {
	cfgPath := writeConfig(t, config.DriverMemory)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		done <- execute(ctx, cfgPath, "", "watch", "--count", "1", "--format", "json")
	}()

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	peer, err := shop.Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer peer.Close()

	// The watcher joins the channel asynchronously; write until it has seen one.
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	var r result
wait:
	for {
		select {
		case r = <-done:
			break wait
		case <-tick.C:
			_, err := peer.SaveMerchant(ctx, models.Merchant{ID: "m1", Name: "Kutch Crafts"})
			require.NoError(t, err)
		case <-ctx.Done():
			t.Fatal("watch did not report a notification")
		}
	}

	require.NoError(t, r.err)
	assert.Contains(t, r.errOut, "only reaches contexts in this process")
	var line watchLine
	require.NoError(t, json.Unmarshal([]byte(strings.SplitN(r.out, "\n", 2)[0]), &line))
	assert.Equal(t, models.TableMerchants, line.Table)
	assert.Equal(t, peer.Origin(), line.Origin)
}

func TestWatchCommand_NoBroadcastDriver(t *testing.T) {
	cfg := writeConfig(t, config.DriverNone)

	r := run(t, cfg, "watch", "--format", "json")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
	resp := decodeResponse(t, r.out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeConfig, resp.Error.Code)
}
