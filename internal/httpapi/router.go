// Package httpapi exposes the data layer to the view layer over HTTP.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roach88/vaniya/internal/shop"
)

// Handler serves the data layer routes.
type Handler struct {
	shop *shop.Shop
	log  *zap.Logger
}

// NewHandler creates a handler for s.
func NewHandler(s *shop.Shop, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{shop: s, log: log.Named("http")}
}

// Router returns the gin engine with every route registered.
func Router(s *shop.Shop, log *zap.Logger) *gin.Engine {
	h := NewHandler(s, log)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"Content-Length", versionHeader},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"origin": s.Origin(),
		})
	})

	r.GET("/tables", h.ListTables)
	r.GET("/tables/:table", h.GetTable)

	r.GET("/products", h.ListProducts)
	r.POST("/products", h.CreateProduct)
	r.GET("/products/:id", h.GetProduct)
	r.PATCH("/products/:id", h.PatchProduct)
	r.DELETE("/products/:id", h.DeleteProduct)

	r.GET("/orders", h.ListOrders)
	r.POST("/orders", h.PlaceOrder)
	r.PATCH("/orders/:id/status", h.UpdateOrderStatus)

	r.GET("/events", h.Events)
	r.POST("/reset", h.Reset)

	return r
}
