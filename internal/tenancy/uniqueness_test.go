package tenancy_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/catalog"
	"backend/internal/order"
	"backend/internal/store"
	"backend/internal/tenancy"
)

func TestUpdateToOwnValueIsNotACollision(t *testing.T) {
	db := setupEngine(t)
	s1 := createStore(t, db, "s1")

	p := catalog.Product{Name: "A", Slug: "a"}
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&p).Error)

	res := db.WithContext(storeCtx(s1)).Model(&catalog.Product{}).
		Where("id = ?", p.ID).
		Update("slug", "a")
	require.NoError(t, res.Error)
	require.EqualValues(t, 1, res.RowsAffected)
}

func TestUpdateCannotSwapInForeignVariant(t *testing.T) {
	db := setupEngine(t)
	s1 := createStore(t, db, "s1")
	s2 := createStore(t, db, "s2")

	p1 := catalog.Product{Name: "Shoe", Slug: "shoe"}
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&p1).Error)
	v1 := catalog.Variant{ProductID: p1.ID}
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&v1).Error)

	p2 := catalog.Product{Name: "Hat", Slug: "hat"}
	require.NoError(t, db.WithContext(storeCtx(s2)).Create(&p2).Error)
	v2 := catalog.Variant{ProductID: p2.ID}
	require.NoError(t, db.WithContext(storeCtx(s2)).Create(&v2).Error)

	o := order.Order{}
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&o).Error)
	li := order.LineItem{OrderID: o.ID, VariantID: v1.ID}
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&li).Error)

	err := db.WithContext(storeCtx(s1)).Model(&order.LineItem{}).
		Where("id = ?", li.ID).
		Update("variant_id", v2.ID).Error
	verr, ok := tenancy.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, verr["variant"], "must belong to the same store")

	var got order.LineItem
	require.NoError(t, db.WithContext(storeCtx(s1)).First(&got, "id = ?", li.ID).Error)
	require.Equal(t, v1.ID, got.VariantID)
}

func TestExtraScopeSeparatesOptionTypes(t *testing.T) {
	db := setupEngine(t)
	s1 := createStore(t, db, "s1")

	size := catalog.OptionType{Name: "size"}
	color := catalog.OptionType{Name: "color"}
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&size).Error)
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&color).Error)

	require.NoError(t, db.WithContext(storeCtx(s1)).
		Create(&catalog.OptionValue{Name: "small", OptionTypeID: size.ID}).Error)

	// The same name under another option type does not collide.
	require.NoError(t, db.WithContext(storeCtx(s1)).
		Create(&catalog.OptionValue{Name: "small", OptionTypeID: color.ID}).Error)

	dup := catalog.OptionValue{Name: "small", OptionTypeID: size.ID}
	err := db.WithContext(storeCtx(s1)).Create(&dup).Error
	verr, ok := tenancy.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, verr["name"], "has already been taken")
}

func TestUpdateHonorsExtraScope(t *testing.T) {
	db := setupEngine(t)
	s1 := createStore(t, db, "s1")

	size := catalog.OptionType{Name: "size"}
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&size).Error)
	small := catalog.OptionValue{Name: "small", OptionTypeID: size.ID}
	large := catalog.OptionValue{Name: "large", OptionTypeID: size.ID}
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&small).Error)
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&large).Error)

	// Renaming within the same option type collides with the sibling.
	err := db.WithContext(storeCtx(s1)).Model(&catalog.OptionValue{}).
		Where("id = ?", large.ID).
		Update("name", "small").Error
	verr, ok := tenancy.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, verr["name"], "has already been taken")
}

// promoCode exercises the uniqueness rule options the catalog models leave at
// their defaults: case-insensitive codes and blank labels that still count.
type promoCode struct {
	ID string `gorm:"primaryKey;type:uuid"`
	tenancy.Scoped

	Code  string `gorm:"size:64"`
	Label string `gorm:"size:64"`
}

func (promoCode) TableName() string { return "promo_codes" }

func (pc *promoCode) BeforeCreate(*gorm.DB) error {
	if pc.ID == "" {
		pc.ID = uuid.NewString()
	}
	return nil
}

func setupPromoEngine(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:promo_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	registry := tenancy.NewRegistry()
	require.NoError(t, registry.Register(&promoCode{},
		tenancy.ScopedUnique("Code", tenancy.CaseInsensitive()),
		tenancy.ScopedUnique("Label", tenancy.IncludeBlank()),
	))
	require.NoError(t, db.AutoMigrate(&store.Store{}, &promoCode{}))
	require.NoError(t, db.Use(tenancy.New(registry)))
	return db
}

func TestCaseInsensitiveUniqueness(t *testing.T) {
	db := setupPromoEngine(t)
	s1 := createStore(t, db, "s1")
	s2 := createStore(t, db, "s2")

	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&promoCode{Code: "SAVE10"}).Error)

	dup := promoCode{Code: "save10"}
	err := db.WithContext(storeCtx(s1)).Create(&dup).Error
	verr, ok := tenancy.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, verr["code"], "has already been taken")

	// Still scoped: the other store may reuse the code.
	require.NoError(t, db.WithContext(storeCtx(s2)).Create(&promoCode{Code: "save10"}).Error)
}

func TestIncludeBlankChecksEmptyValues(t *testing.T) {
	db := setupPromoEngine(t)
	s1 := createStore(t, db, "s1")

	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&promoCode{Code: "a", Label: ""}).Error)

	dup := promoCode{Code: "b", Label: ""}
	err := db.WithContext(storeCtx(s1)).Create(&dup).Error
	verr, ok := tenancy.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, verr["label"], "has already been taken")
}

func TestUpdateUnrelatedColumnSkipsRevalidation(t *testing.T) {
	db := setupEngine(t)
	s1 := createStore(t, db, "s1")

	a := catalog.Product{Name: "A", Slug: "a"}
	require.NoError(t, db.WithContext(storeCtx(s1)).Create(&a).Error)

	res := db.WithContext(storeCtx(s1)).Model(&catalog.Product{}).
		Where("id = ?", a.ID).
		Update("description", "updated")
	require.NoError(t, res.Error)
	require.EqualValues(t, 1, res.RowsAffected)
}
