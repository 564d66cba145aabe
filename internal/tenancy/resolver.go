package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// resolveStoreID derives a store id for an entity about to be persisted. The
// resolution is idempotent: an entity that already carries a store id is
// returned unchanged. Otherwise each declared parent association is consulted
// in priority order and the first non-empty parent store id wins; candidates
// are never merged and no conflict detection runs across them. A loaded
// association value is preferred; with only a foreign key set, the parent row
// is looked up directly, outside tenant filtering, selecting nothing but its
// store id.
func (p *Plugin) resolveStoreID(db *gorm.DB, reg *Registration, sch *schema.Schema, rv reflect.Value) (string, error) {
	ctx := db.Statement.Context

	if sid := fieldString(ctx, sch, Column, rv); sid != "" {
		return sid, nil
	}

	for _, assoc := range reg.Inherit {
		rel := sch.Relationships.Relations[assoc]
		if rel == nil {
			continue
		}

		if parent, ok := loadedValue(rv.FieldByName(rel.Field.Name)); ok {
			if scoped, ok := parent.Interface().(StoreScoped); ok {
				if sid := scoped.GetStoreID(); sid != "" {
					return sid, nil
				}
			}
			continue
		}

		if rel.Type != schema.BelongsTo || len(rel.References) == 0 {
			continue
		}
		ref := rel.References[0]
		fk, zero := ref.ForeignKey.ValueOf(ctx, rv)
		if zero {
			continue
		}
		sid, err := p.lookupParentStoreID(db, rel.FieldSchema.Table, ref.PrimaryKey.DBName, fk)
		if err != nil {
			return "", err
		}
		if sid != "" {
			return sid, nil
		}
	}

	return "", nil
}

// lookupParentStoreID fetches a parent row's store id by primary key. The
// query runs on a fresh session marked internal so it neither inherits the
// statement's clauses nor shows up in the bypass audit trail.
func (p *Plugin) lookupParentStoreID(db *gorm.DB, table, pkColumn string, pkValue any) (string, error) {
	ctx := markInternal(db.Statement.Context)

	var sid sql.NullString
	row := db.Session(&gorm.Session{NewDB: true, Context: ctx}).
		Table(table).
		Select(Column).
		Where(pkColumn+" = ?", pkValue).
		Row()
	if err := row.Scan(&sid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return sid.String, nil
}

// fieldString reads a string-typed field off an entity, empty when unset.
func fieldString(ctx context.Context, sch *schema.Schema, column string, rv reflect.Value) string {
	f := sch.LookUpField(column)
	if f == nil {
		return ""
	}
	v, zero := f.ValueOf(ctx, rv)
	if zero {
		return ""
	}
	return asString(v)
}

// loadedValue unwraps an association field to its struct value. A nil pointer
// or zero struct counts as not loaded.
func loadedValue(fv reflect.Value) (reflect.Value, bool) {
	if !fv.IsValid() {
		return fv, false
	}
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return fv, false
		}
		fv = fv.Elem()
	}
	if fv.Kind() != reflect.Struct || fv.IsZero() {
		return fv, false
	}
	return fv, true
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case *string:
		if s != nil {
			return *s
		}
	}
	return ""
}
