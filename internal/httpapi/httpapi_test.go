package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vaniya/internal/bus"
	"github.com/roach88/vaniya/internal/models"
	"github.com/roach88/vaniya/internal/shop"
	"github.com/roach88/vaniya/internal/store"
	"github.com/roach88/vaniya/internal/tables"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestShop(t *testing.T, opts ...store.Option) *shop.Shop {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "shop.db"), opts...)
	require.NoError(t, err)
	b, err := bus.New(nil)
	require.NoError(t, err)
	s, err := shop.New(shop.Deps{
		KV:      st,
		Bus:     b,
		IDs:     tables.NewFixedIDs("o-1", "o-2", "o-3"),
		Closers: []func() error{st.Close},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProduct(t *testing.T, s *shop.Shop, id, category string, stock int) {
	t.Helper()
	_, err := s.Products.Insert(context.Background(), models.Product{
		ID:         id,
		Title:      models.Localized{models.English: "Item " + id},
		Price:      decimal.NewFromInt(100),
		Category:   category,
		Stock:      stock,
		MerchantID: "m1",
		Reviews:    []models.Review{},
	})
	require.NoError(t, err)
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestShop(t)
	w := do(t, Router(s, nil), http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, s.Origin(), body["origin"])
}

func TestTables(t *testing.T) {
	s := newTestShop(t)
	r := Router(s, nil)

	w := do(t, r, http.MethodGet, "/tables/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
	assert.Equal(t, "0", w.Header().Get(versionHeader))

	seedProduct(t, s, "p1", "Grocery", 3)

	w = do(t, r, http.MethodGet, "/tables/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get(versionHeader))
	raw := decode[[]map[string]any](t, w)
	require.Len(t, raw, 1)
	assert.Equal(t, "p1", raw[0]["id"])

	w = do(t, r, http.MethodGet, "/tables", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tables":["products"]}`, w.Body.String())
}

func TestProducts_ListAndFilter(t *testing.T) {
	s := newTestShop(t)
	seedProduct(t, s, "p1", "Grocery", 3)
	seedProduct(t, s, "p2", "Handicrafts", 1)
	r := Router(s, nil)

	w := do(t, r, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Product](t, w), 2)

	w = do(t, r, http.MethodGet, "/products?category=Grocery", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.Product](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].ID)
}

func TestProducts_GetCreatePatchDelete(t *testing.T) {
	s := newTestShop(t)
	r := Router(s, nil)

	w := do(t, r, http.MethodGet, "/products/p1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, w).Code)

	w = do(t, r, http.MethodPost, "/products", map[string]any{
		"id":         "p1",
		"title":      map[string]string{"en": "Kutch Embroidered Cushion"},
		"price":      899,
		"stock":      6,
		"merchantId": "m3",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Product](t, w)
	assert.True(t, decimal.NewFromInt(899).Equal(created.Price))

	w = do(t, r, http.MethodPatch, "/products/p1", map[string]any{"stock": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.Product](t, w).Stock)

	w = do(t, r, http.MethodPatch, "/products/missing", map[string]any{"stock": 2})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPatch, "/products/p1", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodDelete, "/products/p1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodGet, "/products/p1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrders_PlaceAndAdvance(t *testing.T) {
	s := newTestShop(t)
	seedProduct(t, s, "p1", "Grocery", 5)
	r := Router(s, nil)

	w := do(t, r, http.MethodPost, "/orders", map[string]any{
		"customerId": "u1",
		"merchantId": "m1",
		"items":      []map[string]any{{"productId": "p1", "quantity": 2, "price": 100}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	assert.Equal(t, "o-1", order.ID)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.True(t, decimal.NewFromInt(210).Equal(order.Total))

	p, err := s.Products.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	w = do(t, r, http.MethodGet, "/orders?customerId=u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Order](t, w), 1)

	w = do(t, r, http.MethodGet, "/orders?customerId=someone-else", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Order](t, w))

	w = do(t, r, http.MethodPatch, "/orders/o-1/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusConfirmed, decode[models.Order](t, w).Status)

	w = do(t, r, http.MethodPatch, "/orders/o-1/status", map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPatch, "/orders/nope/status", map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPatch, "/orders/o-1/status", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrders_Invalid(t *testing.T) {
	s := newTestShop(t)
	r := Router(s, nil)

	w := do(t, r, http.MethodPost, "/orders", map[string]any{
		"customerId": "u1",
		"merchantId": "m1",
		"items":      []map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode[ErrorResponse](t, w).Code)
}

func TestQuotaExceeded(t *testing.T) {
	s := newTestShop(t, store.WithQuota(64))
	r := Router(s, nil)

	w := do(t, r, http.MethodPost, "/products", map[string]any{
		"id":         "p1",
		"title":      map[string]string{"en": strings.Repeat("x", 200)},
		"price":      1,
		"merchantId": "m1",
	})
	require.Equal(t, http.StatusInsufficientStorage, w.Code)
	assert.Equal(t, "quota_exceeded", decode[ErrorResponse](t, w).Code)
}

func TestReset(t *testing.T) {
	s := newTestShop(t)
	seedProduct(t, s, "p1", "Grocery", 5)
	r := Router(s, nil)

	w := do(t, r, http.MethodPost, "/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":1}`, w.Body.String())
}

func TestEvents_Stream(t *testing.T) {
	s := newTestShop(t)
	srv := httptest.NewServer(Router(s, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		t.Helper()
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, prefix) {
				return strings.TrimPrefix(line, prefix)
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, lines.Err())
		return ""
	}

	require.Equal(t, "ready", next("event:"))

	_, err = s.SaveMerchant(context.Background(), models.Merchant{ID: "m1", Name: "Kutch Crafts"})
	require.NoError(t, err)

	require.Equal(t, "change", next("event:"))
	var ev eventView
	require.NoError(t, json.Unmarshal([]byte(next("data:")), &ev))
	assert.Equal(t, bus.KindWrite, ev.Type)
	assert.Equal(t, models.TableMerchants, ev.Table)
	assert.Equal(t, s.Origin(), ev.Origin)
	assert.False(t, ev.Remote)
}
