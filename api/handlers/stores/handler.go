package stores

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/store"
	"backend/internal/tenancy"
)

// Handler exposes administrative store management. These endpoints
// operate across stores, so every lookup runs bypassed.
type Handler struct {
	service *store.Service
}

func NewHandler(service *store.Service) *Handler {
	return &Handler{service: service}
}

type createStoreRequest struct {
	Code              string `json:"code" binding:"required"`
	Name              string `json:"name" binding:"required"`
	URL               string `json:"url"`
	MailFromAddress   string `json:"mail_from_address"`
	DefaultCurrency   string `json:"default_currency"`
	DefaultLocale     string `json:"default_locale"`
	DefaultCountryISO string `json:"default_country_iso"`
}

// Create registers a new store.
func (h *Handler) Create(c *gin.Context) {
	var req createStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := &store.Store{
		Code:              req.Code,
		Name:              req.Name,
		URL:               req.URL,
		MailFromAddress:   req.MailFromAddress,
		DefaultCurrency:   req.DefaultCurrency,
		DefaultLocale:     req.DefaultLocale,
		DefaultCountryISO: req.DefaultCountryISO,
	}
	if err := h.service.Create(c.Request.Context(), s); err != nil {
		if verr, ok := tenancy.AsValidation(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"store": s})
}

// List returns every store.
func (h *Handler) List(c *gin.Context) {
	out, err := h.service.All(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": out, "total": len(out)})
}

// Get fetches one store by id.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.service.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": s})
}

// Products lists a store's products regardless of the request context.
func (h *Handler) Products(c *gin.Context) {
	s, err := h.service.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
		return
	}
	products, err := h.service.AllProducts(c.Request.Context(), s)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// Delete removes an empty store. Stores still owning records are
// refused with a validation error.
func (h *Handler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "store deleted"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
	default:
		if verr, ok := tenancy.AsValidation(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
