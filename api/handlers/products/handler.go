package products

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"backend/internal/catalog"
	"backend/internal/tenancy"
)

// Handler serves the storefront product endpoints. Every query runs
// through the request context, so results are already store-scoped.
type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type createProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Create adds a product to the current store.
func (h *Handler) Create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := catalog.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&p).Error; err != nil {
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

	c.JSON(http.StatusCreated, gin.H{"product": p})
}

// List returns the current store's products.
func (h *Handler) List(c *gin.Context) {
	var products []catalog.Product
	if err := h.db.WithContext(c.Request.Context()).Order("created_at DESC").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// Get fetches one product by slug. Another store's product with the
// same slug is simply not found here.
func (h *Handler) Get(c *gin.Context) {
	var p catalog.Product
	err := h.db.WithContext(c.Request.Context()).Where("slug = ?", c.Param("slug")).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}
