package orders

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"backend/internal/order"
	"backend/internal/tenancy"
)

// Handler serves the storefront order endpoints through the
// store-scoped request context.
type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type createOrderRequest struct {
	Email    string `json:"email"`
	Currency string `json:"currency"`
	Items    []struct {
		VariantID string  `json:"variant_id" binding:"required"`
		Quantity  int     `json:"quantity"`
		Price     float64 `json:"price"`
	} `json:"items"`
}

// Create opens a new order in the current store.
func (h *Handler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o := order.Order{Email: req.Email, Currency: req.Currency}
	for _, item := range req.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		o.LineItems = append(o.LineItems, order.LineItem{
			VariantID: item.VariantID,
			Quantity:  qty,
			Price:     item.Price,
		})
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&o).Error; err != nil {
		if verr, ok := tenancy.AsValidation(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr})
			return
		}
		if errors.Is(err, tenancy.ErrStoreRequired) {
			c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": o})
}

// List returns the current store's orders.
func (h *Handler) List(c *gin.Context) {
	var orders []order.Order
	if err := h.db.WithContext(c.Request.Context()).Order("created_at DESC").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

// Get fetches one order by its number. Numbers are globally unique, but
// the scoped query still hides other stores' orders.
func (h *Handler) Get(c *gin.Context) {
	var o order.Order
	err := h.db.WithContext(c.Request.Context()).
		Preload("LineItems").
		Where("number = ?", c.Param("number")).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}
