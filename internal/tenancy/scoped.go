package tenancy

import "gorm.io/gorm"

// Column is the tenant discriminator column carried by every scoped table.
const Column = "store_id"

// Scoped is embedded by every store-owned model. The column stays nullable at
// the type level; the migration director enforces NOT NULL once backfill is
// verified complete.
type Scoped struct {
	StoreID string `json:"storeId,omitempty" gorm:"column:store_id;type:uuid;index"`
}

// GetStoreID returns the owning store id, empty when not yet stamped.
func (s Scoped) GetStoreID() string {
	return s.StoreID
}

// SameStore reports whether other belongs to the same store. Records that do
// not carry a store id are never considered foreign.
func (s Scoped) SameStore(other any) bool {
	scoped, ok := other.(StoreScoped)
	if !ok {
		return true
	}
	return s.StoreID == scoped.GetStoreID()
}

// ScopeSameStore narrows a query to rows owned by the same store as the
// receiver. Without a store id it is a no-op, matching an unstamped record.
func (s Scoped) ScopeSameStore(db *gorm.DB) *gorm.DB {
	if s.StoreID == "" {
		return db
	}
	return db.Where(Column+" = ?", s.StoreID)
}

// StoreScoped is satisfied by any model embedding Scoped.
type StoreScoped interface {
	GetStoreID() string
}
