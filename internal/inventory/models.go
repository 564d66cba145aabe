package inventory

import (
	"time"

	"backend/internal/catalog"
	"backend/internal/tenancy"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockLocation is a warehouse or fulfillment point belonging to one store.
type StockLocation struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Name       string `json:"name" gorm:"size:255;not null"`
	IsDefault  bool   `json:"isDefault" gorm:"column:is_default;default:false"`
	CountryISO string `json:"countryIso" gorm:"size:2"`
	Active     bool   `json:"active" gorm:"default:true"`

	CreatedAt time.Time      `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (StockLocation) TableName() string { return "stock_locations" }

func (l *StockLocation) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// StockItem tracks on-hand inventory of a variant at a location. Its store
// comes from the stock location, or from the variant when the location has
// not been stamped yet.
type StockItem struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	StockLocationID string         `json:"stockLocationId" gorm:"type:uuid;not null;index"`
	StockLocation   *StockLocation `json:"stockLocation,omitempty"`

	VariantID string           `json:"variantId" gorm:"type:uuid;not null;index"`
	Variant   *catalog.Variant `json:"variant,omitempty"`

	CountOnHand   int  `json:"countOnHand" gorm:"default:0"`
	Backorderable bool `json:"backorderable" gorm:"default:false"`

	CreatedAt time.Time      `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (StockItem) TableName() string { return "stock_items" }

func (i *StockItem) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// StockMovement records a quantity change against a stock item.
type StockMovement struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	StockItemID string     `json:"stockItemId" gorm:"type:uuid;not null;index"`
	StockItem   *StockItem `json:"stockItem,omitempty"`

	Quantity int    `json:"quantity" gorm:"not null;default:0"`
	Action   string `json:"action" gorm:"size:50"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
