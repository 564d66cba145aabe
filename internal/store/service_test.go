package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/catalog"
	"backend/internal/domain"
	"backend/internal/store"
	"backend/internal/tenancy"
)

func setupStoreService(t *testing.T) (*gorm.DB, *store.Service) {
	t.Helper()
	dsn := fmt.Sprintf("file:store_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	registry := tenancy.NewRegistry()
	require.NoError(t, domain.Register(registry))
	require.NoError(t, domain.Migrate(db, registry))
	require.NoError(t, db.Use(tenancy.New(registry)))

	return db, store.NewService(db, registry, nil)
}

func TestCreateRequiresCode(t *testing.T) {
	_, svc := setupStoreService(t)

	err := svc.Create(context.Background(), &store.Store{Name: "No code"})
	verr, ok := tenancy.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, verr["code"], "can't be blank")
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	_, svc := setupStoreService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, &store.Store{Code: "s1", Name: "One"}))
	err := svc.Create(ctx, &store.Store{Code: "s1", Name: "Other"})
	verr, ok := tenancy.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, verr["code"], "has already been taken")
}

func TestFindByHost(t *testing.T) {
	_, svc := setupStoreService(t)
	ctx := context.Background()

	s1 := &store.Store{Code: "s1", Name: "One", URL: "shop.example.com"}
	require.NoError(t, svc.Create(ctx, s1))

	byURL, err := svc.FindByHost(ctx, "shop.example.com")
	require.NoError(t, err)
	require.Equal(t, s1.ID, byURL.ID)

	bySubdomain, err := svc.FindByHost(ctx, "s1.other.com")
	require.NoError(t, err)
	require.Equal(t, s1.ID, bySubdomain.ID)

	_, err = svc.FindByHost(ctx, "unknown.other.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteRestrictedWhileOwningRecords(t *testing.T) {
	db, svc := setupStoreService(t)
	ctx := context.Background()

	s1 := &store.Store{Code: "s1", Name: "One"}
	require.NoError(t, svc.Create(ctx, s1))

	p := catalog.Product{Name: "Shoe", Slug: "shoe"}
	require.NoError(t, db.WithContext(store.WithStore(ctx, s1)).Create(&p).Error)

	err := svc.Delete(ctx, s1.ID)
	verr, ok := tenancy.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, verr["base"][0], "products")

	// Once the data is gone the store may go too.
	require.NoError(t, db.WithContext(store.WithStore(ctx, s1)).Unscoped().Delete(&p).Error)
	require.NoError(t, svc.Delete(ctx, s1.ID))

	_, err = svc.FindByID(ctx, s1.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteMissingStore(t *testing.T) {
	_, svc := setupStoreService(t)
	require.ErrorIs(t, svc.Delete(context.Background(), "no-such-id"), store.ErrNotFound)
}

func TestLazyDefaultShippingCategory(t *testing.T) {
	db, svc := setupStoreService(t)
	ctx := context.Background()

	s1 := &store.Store{Code: "s1", Name: "One"}
	require.NoError(t, svc.Create(ctx, s1))

	sc, err := svc.DefaultShippingCategory(ctx, s1)
	require.NoError(t, err)
	require.Equal(t, "Default", sc.Name)
	require.Equal(t, s1.ID, sc.StoreID)

	// Second call reuses the record.
	again, err := svc.DefaultShippingCategory(ctx, s1)
	require.NoError(t, err)
	require.Equal(t, sc.ID, again.ID)

	var count int64
	require.NoError(t, db.WithContext(store.WithStore(ctx, s1)).
		Model(&catalog.ShippingCategory{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// Each store gets its own.
	s2 := &store.Store{Code: "s2", Name: "Two"}
	require.NoError(t, svc.Create(ctx, s2))
	other, err := svc.DefaultShippingCategory(ctx, s2)
	require.NoError(t, err)
	require.NotEqual(t, sc.ID, other.ID)
	require.Equal(t, s2.ID, other.StoreID)
}

func TestLazyDefaultStockLocation(t *testing.T) {
	_, svc := setupStoreService(t)
	ctx := context.Background()

	s1 := &store.Store{Code: "s1", Name: "One", DefaultCountryISO: "US"}
	require.NoError(t, svc.Create(ctx, s1))

	loc, err := svc.DefaultStockLocation(ctx, s1)
	require.NoError(t, err)
	require.True(t, loc.IsDefault)
	require.Equal(t, "US", loc.CountryISO)
	require.Equal(t, s1.ID, loc.StoreID)

	again, err := svc.DefaultStockLocation(ctx, s1)
	require.NoError(t, err)
	require.Equal(t, loc.ID, again.ID)
}

func TestAllProductsIgnoresContext(t *testing.T) {
	db, svc := setupStoreService(t)
	ctx := context.Background()

	s1 := &store.Store{Code: "s1", Name: "One"}
	s2 := &store.Store{Code: "s2", Name: "Two"}
	require.NoError(t, svc.Create(ctx, s1))
	require.NoError(t, svc.Create(ctx, s2))

	require.NoError(t, db.WithContext(store.WithStore(ctx, s1)).Create(&catalog.Product{Name: "A", Slug: "a"}).Error)
	require.NoError(t, db.WithContext(store.WithStore(ctx, s2)).Create(&catalog.Product{Name: "B", Slug: "b"}).Error)

	// Even while scoped to s2, the owner listing sees s1's products.
	products, err := svc.AllProducts(store.WithStore(ctx, s2), s1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "A", products[0].Name)
}
