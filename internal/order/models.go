package order

import (
	"fmt"
	"math/rand"
	"time"

	"backend/internal/catalog"
	"backend/internal/inventory"
	"backend/internal/tenancy"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is a customer order. The number stays globally unique across all
// stores: customers, support, and reconciliation reference it without any
// store context, so two stores must never mint the same number.
type Order struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Number   string  `json:"number" gorm:"size:32;not null;uniqueIndex"`
	State    string  `json:"state" gorm:"size:50;not null;default:cart"`
	Email    string  `json:"email" gorm:"size:255;index"`
	Currency string  `json:"currency" gorm:"size:3;not null;default:USD"`
	Total    float64 `json:"total" gorm:"type:decimal(10,2);not null;default:0"`

	LineItems []LineItem `json:"lineItems,omitempty"`

	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time      `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Number == "" {
		o.Number = newNumber("R")
	}
	return nil
}

// LineItem links an order to a purchased variant. It derives its store from
// the order (or the variant), and the variant must belong to the same store.
type LineItem struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	OrderID string `json:"orderId" gorm:"type:uuid;not null;index"`
	Order   *Order `json:"order,omitempty"`

	VariantID string           `json:"variantId" gorm:"type:uuid;not null;index"`
	Variant   *catalog.Variant `json:"variant,omitempty"`

	Quantity int     `json:"quantity" gorm:"not null;default:1"`
	Price    float64 `json:"price" gorm:"type:decimal(10,2);not null;default:0"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (LineItem) TableName() string { return "line_items" }

func (li *LineItem) BeforeCreate(*gorm.DB) error {
	if li.ID == "" {
		li.ID = uuid.NewString()
	}
	return nil
}

// PaymentMethod is a store-configured way to pay.
type PaymentMethod struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Name   string `json:"name" gorm:"size:100;not null"`
	Type   string `json:"type" gorm:"size:100"`
	Active bool   `json:"active" gorm:"default:true"`

	CreatedAt time.Time      `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

func (m *PaymentMethod) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Payment records money against an order. Like order numbers, payment numbers
// stay globally unique for processing and refund traceability.
type Payment struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	OrderID string `json:"orderId" gorm:"type:uuid;not null;index"`
	Order   *Order `json:"order,omitempty"`

	PaymentMethodID *string        `json:"paymentMethodId,omitempty" gorm:"type:uuid;index"`
	PaymentMethod   *PaymentMethod `json:"paymentMethod,omitempty"`

	Number string  `json:"number" gorm:"size:32;not null;uniqueIndex"`
	Amount float64 `json:"amount" gorm:"type:decimal(10,2);not null;default:0"`
	State  string  `json:"state" gorm:"size:50;not null;default:checkout"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Number == "" {
		p.Number = newNumber("P")
	}
	return nil
}

// ShippingMethod is a store-configured way to ship.
type ShippingMethod struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Name  string `json:"name" gorm:"size:100;not null"`
	Admin string `json:"admin" gorm:"size:100"`

	CreatedAt time.Time      `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (ShippingMethod) TableName() string { return "shipping_methods" }

func (m *ShippingMethod) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Shipment is a physical fulfillment of an order. Shipment numbers are
// globally unique for carrier tracking.
type Shipment struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	OrderID string `json:"orderId" gorm:"type:uuid;not null;index"`
	Order   *Order `json:"order,omitempty"`

	StockLocationID *string                  `json:"stockLocationId,omitempty" gorm:"type:uuid;index"`
	StockLocation   *inventory.StockLocation `json:"stockLocation,omitempty"`

	Number string `json:"number" gorm:"size:32;not null;uniqueIndex"`
	State  string `json:"state" gorm:"size:50;not null;default:pending"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (Shipment) TableName() string { return "shipments" }

func (s *Shipment) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Number == "" {
		s.Number = newNumber("H")
	}
	return nil
}

// ShippingRate is a priced shipping option for a shipment. It can be created
// from several directions, so its store is derived from the shipment, the tax
// rate, or the shipping method, whichever resolves first.
type ShippingRate struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	ShipmentID string    `json:"shipmentId" gorm:"type:uuid;not null;index"`
	Shipment   *Shipment `json:"shipment,omitempty"`

	TaxRateID *string          `json:"taxRateId,omitempty" gorm:"type:uuid;index"`
	TaxRate   *catalog.TaxRate `json:"taxRate,omitempty"`

	ShippingMethodID *string         `json:"shippingMethodId,omitempty" gorm:"type:uuid;index"`
	ShippingMethod   *ShippingMethod `json:"shippingMethod,omitempty"`

	Cost     float64 `json:"cost" gorm:"type:decimal(10,2);not null;default:0"`
	Selected bool    `json:"selected" gorm:"default:false"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (ShippingRate) TableName() string { return "shipping_rates" }

func (r *ShippingRate) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// newNumber mints a human-facing record number. Uniqueness is enforced by the
// registry's global rule and the backing unique index, not by the generator.
func newNumber(prefix string) string {
	return fmt.Sprintf("%s%011d", prefix, rand.Int63n(100_000_000_000))
}
