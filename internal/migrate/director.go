// Package migrate implements the one-shot procedure that converts a
// single-store schema into a store-scoped one: add nullable store_id
// columns, backfill them by walking foreign keys in dependency order,
// swap global unique indexes for store-scoped partial ones, and finally
// enforce NOT NULL once the backfill is verified complete.
//
// Every step checks before it acts, so an interrupted run can be
// resumed by running the director again.
package migrate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"backend/internal/tenancy"
)

// BackfillSource describes how a table derives store_id from a parent
// that has already been backfilled.
type BackfillSource struct {
	// ParentTable is the already-backfilled table to copy store_id from.
	ParentTable string
	// ForeignKey is the column on the child referencing the parent.
	ForeignKey string
	// ParentKey is the referenced column on the parent, "id" when empty.
	ParentKey string
	// JoinTable routes the lookup through an intermediate join table
	// instead of a direct foreign key. When set, ForeignKey is the join
	// table column referencing the child and JoinParentKey the one
	// referencing the parent.
	JoinTable     string
	JoinParentKey string
}

// UniqueSwap replaces a global unique index with a store-scoped partial
// composite one. Globally-unique attributes are simply not listed here.
type UniqueSwap struct {
	// OldIndex is the pre-existing global unique index to drop.
	OldIndex string
	// Columns are the key columns; the replacement index covers
	// (store_id, Columns...) and excludes blank keys.
	Columns []string
}

// TableSpec is one table's migration instructions.
type TableSpec struct {
	Table string
	// Backfill sources are consulted in order; each fills only rows
	// still missing a store_id.
	Backfill []BackfillSource
	Swaps    []UniqueSwap
	// EnforceNotNull marks store-exclusive tables whose store_id column
	// becomes NOT NULL in the final phase.
	EnforceNotNull bool
}

// Plan lists tables in dependency order: tables with no store-bearing
// parent first, tables backfilled through join tables last.
type Plan struct {
	Tables []TableSpec
}

// Director executes a Plan against a database.
type Director struct {
	db     *gorm.DB
	plan   Plan
	log    *zap.Logger
	dryRun bool
	// DefaultStoreID fills root tables that have no backfill source.
	defaultStoreID string
}

type DirectorOption func(*Director)

// DryRun logs every statement without executing anything.
func DryRun() DirectorOption {
	return func(d *Director) { d.dryRun = true }
}

// WithDefaultStore backfills root tables with the given store id.
func WithDefaultStore(storeID string) DirectorOption {
	return func(d *Director) { d.defaultStoreID = storeID }
}

func NewDirector(db *gorm.DB, plan Plan, log *zap.Logger, opts ...DirectorOption) *Director {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Director{db: db, plan: plan, log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes all phases in order. It halts on the first failure and
// never proceeds to NOT NULL enforcement with incomplete data.
func (d *Director) Run(ctx context.Context) error {
	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"add store columns", d.AddStoreColumns},
		{"backfill", d.Backfill},
		{"swap unique indexes", d.SwapUniqueIndexes},
		{"enforce not null", d.EnforceNotNull},
	}
	for _, phase := range phases {
		d.log.Info("migration phase starting", zap.String("phase", phase.name))
		if err := phase.fn(ctx); err != nil {
			d.log.Error("migration phase failed", zap.String("phase", phase.name), zap.Error(err))
			return fmt.Errorf("%s: %w", phase.name, err)
		}
	}
	d.log.Info("migration complete")
	return nil
}

// AddStoreColumns adds a nullable store_id column plus index to every
// table in the plan. Tables that already carry the column are skipped.
func (d *Director) AddStoreColumns(ctx context.Context) error {
	for _, spec := range d.plan.Tables {
		if d.db.Migrator().HasColumn(spec.Table, tenancy.Column) {
			d.log.Debug("column exists, skipping", zap.String("table", spec.Table))
		} else {
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", spec.Table, tenancy.Column, d.storeColumnType())
			if err := d.exec(ctx, stmt); err != nil {
				return fmt.Errorf("table %s: %w", spec.Table, err)
			}
		}
		idx := fmt.Sprintf("idx_%s_%s", spec.Table, tenancy.Column)
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx, spec.Table, tenancy.Column)
		if err := d.exec(ctx, stmt); err != nil {
			return fmt.Errorf("table %s: %w", spec.Table, err)
		}
	}
	return nil
}

// Backfill copies store_id onto rows that are still missing it, table
// by table in plan order, source by source in declaration order.
func (d *Director) Backfill(ctx context.Context) error {
	for _, spec := range d.plan.Tables {
		if len(spec.Backfill) == 0 {
			if d.defaultStoreID == "" {
				continue
			}
			stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s IS NULL",
				spec.Table, tenancy.Column, tenancy.Column)
			if err := d.exec(ctx, stmt, d.defaultStoreID); err != nil {
				return fmt.Errorf("table %s: %w", spec.Table, err)
			}
			continue
		}
		for _, src := range spec.Backfill {
			if err := d.exec(ctx, backfillSQL(spec.Table, src)); err != nil {
				return fmt.Errorf("table %s from %s: %w", spec.Table, src.ParentTable, err)
			}
		}
	}
	return nil
}

func backfillSQL(table string, src BackfillSource) string {
	parentKey := src.ParentKey
	if parentKey == "" {
		parentKey = "id"
	}
	if src.JoinTable != "" {
		return fmt.Sprintf(
			"UPDATE %[1]s SET %[2]s = (SELECT p.%[2]s FROM %[3]s p JOIN %[4]s j ON j.%[5]s = p.%[6]s WHERE j.%[7]s = %[1]s.id AND p.%[2]s IS NOT NULL LIMIT 1) WHERE %[1]s.%[2]s IS NULL",
			table, tenancy.Column, src.ParentTable, src.JoinTable, src.JoinParentKey, parentKey, src.ForeignKey)
	}
	return fmt.Sprintf(
		"UPDATE %[1]s SET %[2]s = (SELECT p.%[2]s FROM %[3]s p WHERE p.%[4]s = %[1]s.%[5]s) WHERE %[1]s.%[2]s IS NULL AND %[1]s.%[5]s IS NOT NULL",
		table, tenancy.Column, src.ParentTable, parentKey, src.ForeignKey)
}

// SwapUniqueIndexes drops each declared global unique index and creates
// a store-scoped partial composite replacement. Blank and NULL key
// values stay exempt from uniqueness via the index predicate.
func (d *Director) SwapUniqueIndexes(ctx context.Context) error {
	for _, spec := range d.plan.Tables {
		for _, swap := range spec.Swaps {
			if swap.OldIndex != "" && d.db.Migrator().HasIndex(spec.Table, swap.OldIndex) {
				if err := d.exec(ctx, fmt.Sprintf("DROP INDEX %s", swap.OldIndex)); err != nil {
					return fmt.Errorf("table %s index %s: %w", spec.Table, swap.OldIndex, err)
				}
			}
			stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s) WHERE %s",
				scopedIndexName(spec.Table, swap.Columns), spec.Table,
				strings.Join(append([]string{tenancy.Column}, swap.Columns...), ", "),
				blankPredicate(swap.Columns))
			if err := d.exec(ctx, stmt); err != nil {
				return fmt.Errorf("table %s: %w", spec.Table, err)
			}
		}
	}
	return nil
}

// EnforceNotNull verifies every marked table has zero remaining NULL
// store ids before altering the column. A table with stragglers halts
// the run so the backfill can be investigated and resumed.
func (d *Director) EnforceNotNull(ctx context.Context) error {
	for _, spec := range d.plan.Tables {
		if !spec.EnforceNotNull {
			continue
		}
		var remaining int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", spec.Table, tenancy.Column)
		if err := d.db.WithContext(ctx).Raw(query).Scan(&remaining).Error; err != nil {
			return fmt.Errorf("table %s: %w", spec.Table, err)
		}
		if remaining > 0 {
			d.log.Error("backfill incomplete, refusing to enforce NOT NULL",
				zap.String("table", spec.Table),
				zap.Int64("remaining", remaining),
			)
			return fmt.Errorf("table %s has %d rows without a store id", spec.Table, remaining)
		}
		if d.db.Dialector.Name() != "postgres" {
			d.log.Warn("dialect cannot alter column nullability, skipping",
				zap.String("table", spec.Table),
				zap.String("dialect", d.db.Dialector.Name()),
			)
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", spec.Table, tenancy.Column)
		if err := d.exec(ctx, stmt); err != nil {
			return fmt.Errorf("table %s: %w", spec.Table, err)
		}
	}
	return nil
}

// Rollback undoes the schema changes: drops NOT NULL, restores the
// prior global unique indexes, and optionally drops the column. Data
// written into store_id is left in place unless the column is dropped.
func (d *Director) Rollback(ctx context.Context, dropColumn bool) error {
	for i := len(d.plan.Tables) - 1; i >= 0; i-- {
		spec := d.plan.Tables[i]
		if spec.EnforceNotNull && d.db.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", spec.Table, tenancy.Column)
			if err := d.exec(ctx, stmt); err != nil {
				return fmt.Errorf("table %s: %w", spec.Table, err)
			}
		}
		for _, swap := range spec.Swaps {
			scoped := scopedIndexName(spec.Table, swap.Columns)
			if d.db.Migrator().HasIndex(spec.Table, scoped) {
				if err := d.exec(ctx, fmt.Sprintf("DROP INDEX %s", scoped)); err != nil {
					return fmt.Errorf("table %s index %s: %w", spec.Table, scoped, err)
				}
			}
			if swap.OldIndex == "" {
				continue
			}
			stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
				swap.OldIndex, spec.Table, strings.Join(swap.Columns, ", "))
			if err := d.exec(ctx, stmt); err != nil {
				return fmt.Errorf("table %s: %w", spec.Table, err)
			}
		}
		if dropColumn && d.db.Migrator().HasColumn(spec.Table, tenancy.Column) {
			idx := fmt.Sprintf("idx_%s_%s", spec.Table, tenancy.Column)
			if d.db.Migrator().HasIndex(spec.Table, idx) {
				if err := d.exec(ctx, fmt.Sprintf("DROP INDEX %s", idx)); err != nil {
					return fmt.Errorf("table %s: %w", spec.Table, err)
				}
			}
			stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", spec.Table, tenancy.Column)
			if err := d.exec(ctx, stmt); err != nil {
				return fmt.Errorf("table %s: %w", spec.Table, err)
			}
		}
	}
	return nil
}

func (d *Director) storeColumnType() string {
	if d.db.Dialector.Name() == "postgres" {
		return "uuid"
	}
	return "text"
}

func (d *Director) exec(ctx context.Context, stmt string, args ...interface{}) error {
	if d.dryRun {
		d.log.Info("dry run", zap.String("sql", stmt))
		return nil
	}
	d.log.Debug("executing", zap.String("sql", stmt))
	return d.db.WithContext(ctx).Exec(stmt, args...).Error
}

func scopedIndexName(table string, columns []string) string {
	return fmt.Sprintf("idx_%s_store_%s", table, strings.Join(columns, "_"))
}

func blankPredicate(columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s IS NOT NULL AND %s <> ''", col, col))
	}
	return strings.Join(parts, " AND ")
}
