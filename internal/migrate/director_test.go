package migrate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// legacySchema is a pre-tenancy slice of the catalog: no store_id
// anywhere, a global unique index on product slugs.
const legacySchema = `
	CREATE TABLE products (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL,
		name TEXT NOT NULL
	);
	CREATE UNIQUE INDEX idx_products_slug ON products (slug);

	CREATE TABLE variants (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		sku TEXT
	);

	CREATE TABLE option_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE option_values (
		id TEXT PRIMARY KEY,
		option_type_id TEXT NOT NULL,
		name TEXT NOT NULL
	);
`

func testPlan() Plan {
	return Plan{Tables: []TableSpec{
		{
			Table:          "products",
			Swaps:          []UniqueSwap{{OldIndex: "idx_products_slug", Columns: []string{"slug"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "option_types",
			EnforceNotNull: true,
		},
		{
			Table:          "variants",
			Backfill:       []BackfillSource{{ParentTable: "products", ForeignKey: "product_id"}},
			EnforceNotNull: true,
		},
		{
			Table:          "option_values",
			Backfill:       []BackfillSource{{ParentTable: "option_types", ForeignKey: "option_type_id"}},
			EnforceNotNull: true,
		},
	}}
}

func setupLegacyDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:migrate_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(legacySchema).Error)

	require.NoError(t, db.Exec(`INSERT INTO products (id, slug, name) VALUES ('p1', 'shoe', 'Shoe')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO variants (id, product_id, sku) VALUES ('v1', 'p1', 'SHOE-S')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO option_types (id, name) VALUES ('ot1', 'size')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO option_values (id, option_type_id, name) VALUES ('ov1', 'ot1', 'small')`).Error)
	return db
}

func storeIDOf(t *testing.T, db *gorm.DB, table, id string) string {
	t.Helper()
	var sid *string
	require.NoError(t, db.Raw(
		fmt.Sprintf("SELECT store_id FROM %s WHERE id = ?", table), id).Scan(&sid).Error)
	if sid == nil {
		return ""
	}
	return *sid
}

func TestRunAddsColumnsAndBackfills(t *testing.T) {
	db := setupLegacyDB(t)
	d := NewDirector(db, testPlan(), nil, WithDefaultStore("store-1"))

	require.NoError(t, d.Run(context.Background()))

	// Roots take the default store; children follow their parents.
	require.Equal(t, "store-1", storeIDOf(t, db, "products", "p1"))
	require.Equal(t, "store-1", storeIDOf(t, db, "option_types", "ot1"))
	require.Equal(t, "store-1", storeIDOf(t, db, "variants", "v1"))
	require.Equal(t, "store-1", storeIDOf(t, db, "option_values", "ov1"))
}

func TestRunIsRepeatable(t *testing.T) {
	db := setupLegacyDB(t)
	d := NewDirector(db, testPlan(), nil, WithDefaultStore("store-1"))

	require.NoError(t, d.Run(context.Background()))
	require.NoError(t, d.Run(context.Background()))
}

func TestBackfillLeavesExistingValuesAlone(t *testing.T) {
	db := setupLegacyDB(t)
	d := NewDirector(db, testPlan(), nil, WithDefaultStore("store-1"))
	require.NoError(t, d.AddStoreColumns(context.Background()))

	require.NoError(t, db.Exec(`UPDATE variants SET store_id = 'store-2' WHERE id = 'v1'`).Error)

	require.NoError(t, d.Backfill(context.Background()))
	require.Equal(t, "store-2", storeIDOf(t, db, "variants", "v1"))
}

func TestSwapReplacesGlobalIndexWithScopedOne(t *testing.T) {
	db := setupLegacyDB(t)
	d := NewDirector(db, testPlan(), nil, WithDefaultStore("store-1"))

	require.NoError(t, d.Run(context.Background()))

	// Same slug in another store now inserts cleanly.
	require.NoError(t, db.Exec(
		`INSERT INTO products (id, slug, name, store_id) VALUES ('p2', 'shoe', 'Shoe', 'store-2')`).Error)

	// Same slug in the same store still violates the index.
	err := db.Exec(
		`INSERT INTO products (id, slug, name, store_id) VALUES ('p3', 'shoe', 'Shoe', 'store-1')`).Error
	require.Error(t, err)

	// Blank slugs stay exempt via the index predicate.
	require.NoError(t, db.Exec(
		`INSERT INTO products (id, slug, name, store_id) VALUES ('p4', '', 'Blank A', 'store-1')`).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO products (id, slug, name, store_id) VALUES ('p5', '', 'Blank B', 'store-1')`).Error)
}

func TestEnforceNotNullHaltsOnIncompleteBackfill(t *testing.T) {
	db := setupLegacyDB(t)
	// No default store, so root rows keep a NULL store id.
	d := NewDirector(db, testPlan(), nil)

	err := d.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "without a store id")
}

func TestRollbackRestoresGlobalIndex(t *testing.T) {
	db := setupLegacyDB(t)
	d := NewDirector(db, testPlan(), nil, WithDefaultStore("store-1"))
	require.NoError(t, d.Run(context.Background()))

	require.NoError(t, d.Rollback(context.Background(), false))

	// The global unique index is back: a cross-store duplicate fails again.
	err := db.Exec(
		`INSERT INTO products (id, slug, name, store_id) VALUES ('p2', 'shoe', 'Shoe', 'store-2')`).Error
	require.Error(t, err)

	// Data written during the migration stays in place.
	require.Equal(t, "store-1", storeIDOf(t, db, "products", "p1"))
}

func TestRollbackDropColumn(t *testing.T) {
	db := setupLegacyDB(t)
	d := NewDirector(db, testPlan(), nil, WithDefaultStore("store-1"))
	require.NoError(t, d.Run(context.Background()))

	require.NoError(t, d.Rollback(context.Background(), true))
	require.False(t, db.Migrator().HasColumn("products", "store_id"))
}

func TestDryRunExecutesNothing(t *testing.T) {
	db := setupLegacyDB(t)
	d := NewDirector(db, testPlan(), nil, WithDefaultStore("store-1"), DryRun())

	require.NoError(t, d.AddStoreColumns(context.Background()))
	require.False(t, db.Migrator().HasColumn("products", "store_id"))
}
