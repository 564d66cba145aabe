// Package audit persists a trail of administrative tenancy bypasses. The
// bypass removes the isolation guarantee, so every use is worth keeping a
// record of.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BypassEvent is one recorded use of the tenancy bypass.
type BypassEvent struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	Operation   string    `json:"operation" gorm:"size:20;not null;index"`
	TargetTable string    `json:"targetTable" gorm:"size:100;not null;index"`
	Actor       string    `json:"actor" gorm:"size:255"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
}

func (BypassEvent) TableName() string {
	return "tenancy_bypass_events"
}

type actorKey struct{}

// WithActor tags the context with the acting identity (admin user, job name)
// so recorded bypasses can be attributed.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	a, _ := ctx.Value(actorKey{}).(string)
	return a
}

// Recorder writes bypass events. Writes are best-effort: an audit failure is
// logged but never interrupts the operation it describes.
type Recorder struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewRecorder builds a Recorder on the given DB handle.
func NewRecorder(db *gorm.DB, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{db: db, log: log}
}

// Migrate creates the audit table.
func (r *Recorder) Migrate() error {
	return r.db.AutoMigrate(&BypassEvent{})
}

// RecordBypass implements tenancy.Auditor.
func (r *Recorder) RecordBypass(ctx context.Context, operation, table string) {
	event := BypassEvent{
		ID:          uuid.NewString(),
		Operation:   operation,
		TargetTable: table,
		Actor:       actorFrom(ctx),
	}
	// Session detached from the caller's statement; the event table is not a
	// scoped model, so no recursion through the interceptor occurs.
	if err := r.db.Session(&gorm.Session{NewDB: true}).Create(&event).Error; err != nil {
		r.log.Warn("failed to record tenancy bypass",
			zap.String("operation", operation),
			zap.String("table", table),
			zap.Error(err),
		)
	}
}
