package catalog

import (
	"time"

	"backend/internal/tenancy"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a sellable item. Its slug is unique within a store, so two
// stores can both sell "shoe" without colliding.
type Product struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Name        string  `json:"name" gorm:"size:255;not null"`
	Slug        string  `json:"slug" gorm:"size:255;not null;index"`
	Description string  `json:"description" gorm:"type:text"`
	Price       float64 `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	Available   bool    `json:"available" gorm:"default:true"`

	ShippingCategoryID *string           `json:"shippingCategoryId,omitempty" gorm:"type:uuid;index"`
	ShippingCategory   *ShippingCategory `json:"shippingCategory,omitempty"`

	Variants []Variant `json:"variants,omitempty"`

	CreatedAt time.Time      `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Variant is a concrete purchasable variation of a product. It derives its
// store from the product and must only carry option values of that store.
type Variant struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	ProductID string   `json:"productId" gorm:"type:uuid;not null;index"`
	Product   *Product `json:"product,omitempty"`

	SKU      string `json:"sku" gorm:"size:255;index"`
	IsMaster bool   `json:"isMaster" gorm:"default:false"`
	Position int    `json:"position" gorm:"default:0"`

	OptionValues []OptionValue `json:"optionValues,omitempty" gorm:"many2many:option_value_variants"`

	CreatedAt time.Time      `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (Variant) TableName() string { return "variants" }

func (v *Variant) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// OptionType groups option values ("size", "color").
type OptionType struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Name         string `json:"name" gorm:"size:100;not null"`
	Presentation string `json:"presentation" gorm:"size:100"`
	Position     int    `json:"position" gorm:"default:0"`

	OptionValues []OptionValue `json:"optionValues,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (OptionType) TableName() string { return "option_types" }

func (t *OptionType) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// OptionValue is one choice of an option type ("small", "red"). It inherits
// its store from the option type, and its name is unique per option type
// within a store.
type OptionValue struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	OptionTypeID string      `json:"optionTypeId" gorm:"type:uuid;not null;index"`
	OptionType   *OptionType `json:"optionType,omitempty"`

	Name         string `json:"name" gorm:"size:100;not null"`
	Presentation string `json:"presentation" gorm:"size:100"`
	Position     int    `json:"position" gorm:"default:0"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (OptionValue) TableName() string { return "option_values" }

func (v *OptionValue) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Property is a descriptive product attribute type.
type Property struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Name         string `json:"name" gorm:"size:100;not null"`
	Presentation string `json:"presentation" gorm:"size:100"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (Property) TableName() string { return "properties" }

func (p *Property) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Taxonomy is the root of a taxon tree.
type Taxonomy struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Name     string `json:"name" gorm:"size:100;not null"`
	Position int    `json:"position" gorm:"default:0"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (Taxonomy) TableName() string { return "taxonomies" }

func (t *Taxonomy) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Taxon is a node of a taxonomy tree. Its store comes from the taxonomy, or
// from the parent taxon for nodes created under an existing subtree.
type Taxon struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	TaxonomyID string    `json:"taxonomyId" gorm:"type:uuid;not null;index"`
	Taxonomy   *Taxonomy `json:"taxonomy,omitempty"`

	ParentID *string `json:"parentId,omitempty" gorm:"type:uuid;index"`
	Parent   *Taxon  `json:"parent,omitempty"`

	Name      string `json:"name" gorm:"size:100;not null"`
	Permalink string `json:"permalink" gorm:"size:255;index"`
	Position  int    `json:"position" gorm:"default:0"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (Taxon) TableName() string { return "taxons" }

func (t *Taxon) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// ShippingCategory classifies products for shipping purposes. Each store gets
// its own "Default" and "Digital" categories on demand.
type ShippingCategory struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Name string `json:"name" gorm:"size:100;not null"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (ShippingCategory) TableName() string { return "shipping_categories" }

func (c *ShippingCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// TaxCategory classifies products for taxation.
type TaxCategory struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Name      string `json:"name" gorm:"size:100;not null"`
	IsDefault bool   `json:"isDefault" gorm:"default:false"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (TaxCategory) TableName() string { return "tax_categories" }

func (c *TaxCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// TaxRate applies a rate to a tax category.
type TaxRate struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	TaxCategoryID *string      `json:"taxCategoryId,omitempty" gorm:"type:uuid;index"`
	TaxCategory   *TaxCategory `json:"taxCategory,omitempty"`

	Name            string  `json:"name" gorm:"size:100"`
	Amount          float64 `json:"amount" gorm:"type:decimal(8,5);not null;default:0"`
	IncludedInPrice bool    `json:"includedInPrice" gorm:"default:false"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (TaxRate) TableName() string { return "tax_rates" }

func (r *TaxRate) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
