// Package domain wires the e-commerce model packages into the tenancy
// registry and storage layer in one place.
package domain

import (
	"backend/internal/catalog"
	"backend/internal/inventory"
	"backend/internal/order"
	"backend/internal/store"
	"backend/internal/tenancy"

	"gorm.io/gorm"
)

// Register declares every store-bearing model to the registry.
func Register(reg *tenancy.Registry) error {
	for _, fn := range []func(*tenancy.Registry) error{
		catalog.Register,
		inventory.Register,
		order.Register,
	} {
		if err := fn(reg); err != nil {
			return err
		}
	}
	return nil
}

// Migrate creates or updates the schema for the stores table and every
// registered model.
func Migrate(db *gorm.DB, reg *tenancy.Registry) error {
	models := append([]any{&store.Store{}}, reg.Models()...)
	return db.AutoMigrate(models...)
}
