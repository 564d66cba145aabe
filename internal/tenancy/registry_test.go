package tenancy

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type regProduct struct {
	ID string `gorm:"primaryKey"`
	Scoped
	Slug string
	Name string
}

type regWidget struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

type regChild struct {
	ID string `gorm:"primaryKey"`
	Scoped
	ParentID string
	Parent   *regParent
}

type regParent struct {
	ID string `gorm:"primaryKey"`
	Scoped
	ChildID string
	Child   *regChild
}

type regNode struct {
	ID string `gorm:"primaryKey"`
	Scoped
	ParentID *string
	Parent   *regNode
}

func openRegistryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:registry_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&regProduct{}))
	err := reg.Register(&regProduct{})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterRejectsNonStructs(t *testing.T) {
	reg := NewRegistry()
	require.Error(t, reg.Register("not a model"))
}

func TestGlobalAfterScopedConflicts(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&regProduct{},
		ScopedUnique("Slug"),
		GlobalUnique("Slug"),
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "scoped uniqueness rule")
}

func TestScopedOverridesGlobal(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&regProduct{},
		GlobalUnique("Slug"),
		ScopedUnique("Slug"),
	))

	r, ok := reg.Lookup(reflect.TypeOf(&regProduct{}))
	require.True(t, ok)
	rules := r.Rules()
	require.Len(t, rules, 1)
	require.False(t, rules[0].Global)
}

func TestFinalizeRequiresStoreColumn(t *testing.T) {
	db := openRegistryTestDB(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(&regWidget{}))

	err := reg.Finalize(db)
	require.Error(t, err)
	require.Contains(t, err.Error(), "store_id")
}

func TestFinalizeRejectsUnknownAssociation(t *testing.T) {
	db := openRegistryTestDB(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(&regProduct{}, InheritFrom("Vendor")))

	err := reg.Finalize(db)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Vendor")
}

func TestFinalizeRejectsUnknownUniqueAttribute(t *testing.T) {
	db := openRegistryTestDB(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(&regProduct{}, ScopedUnique("Color")))

	err := reg.Finalize(db)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Color")
}

func TestFinalizeDetectsInheritanceCycle(t *testing.T) {
	db := openRegistryTestDB(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(&regChild{}, InheritFrom("Parent")))
	require.NoError(t, reg.Register(&regParent{}, InheritFrom("Child")))

	err := reg.Finalize(db)
	require.Error(t, err)
	require.Contains(t, err.Error(), "circular")
}

func TestFinalizeAllowsSelfReference(t *testing.T) {
	db := openRegistryTestDB(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(&regNode{}, InheritFrom("Parent")))

	require.NoError(t, reg.Finalize(db))
}

func TestFinalizeResolvesTableNames(t *testing.T) {
	db := openRegistryTestDB(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(&regProduct{}))
	require.NoError(t, reg.Finalize(db))

	regs := reg.Registrations()
	require.Len(t, regs, 1)
	require.Equal(t, "reg_products", regs[0].TableName())
}
