package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the isolation boundary. Every scoped record references Store.ID
// through its store_id column; the store itself is never scoped.
type Store struct {
	ID   string `json:"id" gorm:"primaryKey;type:uuid"`
	Code string `json:"code" gorm:"size:64;uniqueIndex;not null"`
	Name string `json:"name" gorm:"size:255;not null"`
	URL  string `json:"url" gorm:"size:255;index"`

	MailFromAddress string `json:"mailFromAddress" gorm:"size:255"`

	// Defaults applied to records created under this store
	DefaultCurrency   string `json:"defaultCurrency" gorm:"size:3;not null;default:USD"`
	DefaultLocale     string `json:"defaultLocale" gorm:"size:16;not null;default:en"`
	DefaultCountryISO string `json:"defaultCountryIso" gorm:"size:2"`

	Settings datatypes.JSON `json:"settings,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (Store) TableName() string {
	return "stores"
}

// BeforeCreate assigns the primary key when the caller did not.
func (s *Store) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
