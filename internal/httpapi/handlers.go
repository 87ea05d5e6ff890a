package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roach88/vaniya/internal/models"
	"github.com/roach88/vaniya/internal/orders"
)

// versionHeader carries the stored version of a raw table snapshot.
const versionHeader = "X-Table-Version"

// ListTables returns the names of the stored tables.
func (h *Handler) ListTables(c *gin.Context) {
	names, err := h.shop.Tables.Names(c.Request.Context())
	if err != nil {
		h.fail(c, "list tables", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": names})
}

// GetTable returns a table's stored JSON as is. A table never written is [].
func (h *Handler) GetTable(c *gin.Context) {
	snap, err := h.shop.Tables.Read(c.Request.Context(), c.Param("table"))
	if err != nil {
		h.fail(c, "read table", err)
		return
	}
	c.Header(versionHeader, strconv.FormatInt(snap.Version, 10))
	c.Data(http.StatusOK, "application/json; charset=utf-8", snap.Data)
}

// ListProducts returns products, optionally filtered by ?category= and ?merchantId=.
func (h *Handler) ListProducts(c *gin.Context) {
	category, merchant := c.Query("category"), c.Query("merchantId")
	products, err := h.shop.Products.Select(c.Request.Context(), func(p *models.Product) bool {
		return (category == "" || p.Category == category) &&
			(merchant == "" || p.MerchantID == merchant)
	})
	if err != nil {
		h.fail(c, "list products", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.shop.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get product", err)
		return
	}
	if p == nil {
		notFound(c, "product not found")
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProduct stores the product in the body, replacing one with the same id.
func (h *Handler) CreateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	if p.Reviews == nil {
		p.Reviews = []models.Review{}
	}
	saved, err := h.shop.SaveProduct(c.Request.Context(), p)
	if err != nil {
		h.fail(c, "save product", err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) PatchProduct(c *gin.Context) {
	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	updated, err := h.shop.PatchProduct(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, "update product", err)
		return
	}
	if updated == nil {
		notFound(c, "product not found")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.shop.DeleteRecord(c.Request.Context(), models.TableProducts, c.Param("id")); err != nil {
		h.fail(c, "delete product", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListOrders returns orders, newest first, optionally filtered by ?customerId=,
// ?merchantId= and ?status=.
func (h *Handler) ListOrders(c *gin.Context) {
	customer, merchant := c.Query("customerId"), c.Query("merchantId")
	status := models.OrderStatus(c.Query("status"))
	list, err := h.shop.Orders.Select(c.Request.Context(), func(o *models.Order) bool {
		return (customer == "" || o.CustomerID == customer) &&
			(merchant == "" || o.MerchantID == merchant) &&
			(status == "" || o.Status == status)
	})
	if err != nil {
		h.fail(c, "list orders", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// PlaceOrder builds the checkout draft in the body and places it.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var d orders.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	order, err := h.shop.PlaceOrder(c.Request.Context(), d)
	if err != nil {
		h.fail(c, "place order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	order, err := h.shop.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, "update order status", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Reset removes every table.
func (h *Handler) Reset(c *gin.Context) {
	n, err := h.shop.Reset(c.Request.Context())
	if err != nil {
		h.fail(c, "reset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}
