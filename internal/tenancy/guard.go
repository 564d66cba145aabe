package tenancy

import (
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const sameStoreMessage = "must belong to the same store"

// checkSameStore validates that every record referenced by the declared
// associations belongs to the same store as the entity. A mismatch attaches a
// field-level error naming the offending association; it is a recoverable
// validation failure, not a fault. An entity with no store id yet is skipped
// entirely (the resolver runs first, so this only happens under permissive
// policy), and nil or empty associations are not violations.
func (p *Plugin) checkSameStore(db *gorm.DB, reg *Registration, sch *schema.Schema, rv reflect.Value, verr ValidationErrors) {
	ctx := db.Statement.Context
	sid := fieldString(ctx, sch, Column, rv)
	if sid == "" {
		return
	}

	for _, assoc := range reg.SameStore {
		rel := sch.Relationships.Relations[assoc]
		if rel == nil {
			continue
		}

		fv := rv.FieldByName(rel.Field.Name)
		if !fv.IsValid() {
			continue
		}

		if mismatch := p.associationMismatch(db, rel, fv, rv, sid); mismatch {
			verr.Add(associationErrorKey(rel), sameStoreMessage)
			CrossStoreRejections.WithLabelValues(sch.Table).Inc()
		}
	}
}

// associationMismatch inspects one association value. Collections are checked
// record by record; a belongs-to with only its foreign key set is resolved by
// looking the parent row up directly so a swapped key cannot dodge the check.
func (p *Plugin) associationMismatch(db *gorm.DB, rel *schema.Relationship, fv, rv reflect.Value, sid string) bool {
	switch fv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < fv.Len(); i++ {
			if record, ok := loadedValue(fv.Index(i)); ok {
				if foreignStore(record, sid) {
					return true
				}
			}
		}
		return false
	default:
		if record, ok := loadedValue(fv); ok {
			return foreignStore(record, sid)
		}
	}

	if rel.Type != schema.BelongsTo || len(rel.References) == 0 {
		return false
	}
	ref := rel.References[0]
	fk, zero := ref.ForeignKey.ValueOf(db.Statement.Context, rv)
	if zero {
		return false
	}
	parentSID, err := p.lookupParentStoreID(db, rel.FieldSchema.Table, ref.PrimaryKey.DBName, fk)
	if err != nil {
		db.AddError(err)
		return false
	}
	return parentSID != "" && parentSID != sid
}

// foreignStore reports whether a loaded record carries a store id differing
// from sid. Records without a store id yet are not foreign; they will inherit.
func foreignStore(record reflect.Value, sid string) bool {
	scoped, ok := record.Interface().(StoreScoped)
	if !ok {
		return false
	}
	other := scoped.GetStoreID()
	return other != "" && other != sid
}

// associationErrorKey names the association in validation errors the way the
// schema names columns: OptionValues becomes option_values.
func associationErrorKey(rel *schema.Relationship) string {
	return (schema.NamingStrategy{}).ColumnName("", rel.Name)
}
