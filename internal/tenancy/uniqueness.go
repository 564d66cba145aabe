package tenancy

import (
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// checkUniqueness validates every uniqueness rule declared for the model
// against the row about to be written. Scoped rules compare within
// {store_id} ∪ extra scope columns; global rules compare across all stores.
// Soft-deleted rows never participate, so a re-created record may reuse the
// key of a deleted one. Blank values are exempt unless the rule opts in.
func (p *Plugin) checkUniqueness(db *gorm.DB, reg *Registration, sch *schema.Schema, rv reflect.Value, verr ValidationErrors) {
	ctx := db.Statement.Context
	sid := fieldString(ctx, sch, Column, rv)
	if sid == "" {
		// Partial updates may not carry the column; the row still belongs to
		// the current store.
		sid, _ = CurrentStore(ctx)
	}

	for _, rule := range reg.Rules() {
		f := sch.LookUpField(rule.Field)
		if f == nil {
			continue
		}
		val, zero := f.ValueOf(ctx, rv)
		if isBlank(val, zero) && !rule.IncludeBlank {
			continue
		}
		p.checkUniqueRule(db, reg, sch, rule, f, val, sid, rv, verr)
	}
}

// checkUniqueRule runs one uniqueness comparison for the row rv. The row's
// own primary key, when set, is excluded so updates do not collide with
// themselves.
func (p *Plugin) checkUniqueRule(db *gorm.DB, reg *Registration, sch *schema.Schema, rule UniqueRule, f *schema.Field, val any, sid string, rv reflect.Value, verr ValidationErrors) {
	// A record without a store id has no scope to be unique within yet; the
	// stamping layer runs first, so this only happens under permissive policy.
	if !rule.Global && sid == "" {
		return
	}

	// The comparison query must see every store's rows: a global rule checks
	// across stores, and a scoped rule carries its own store filter below. The
	// context must ride along in the same Session call; a chained WithContext
	// clones the triggering statement and drags its conditions into the count.
	ctx := markInternal(WithoutStore(db.Statement.Context))
	q := db.Session(&gorm.Session{NewDB: true, Context: ctx}).Model(reg.Model)

	if rule.CaseInsensitive {
		q = q.Where(fmt.Sprintf("LOWER(%s) = LOWER(?)", f.DBName), val)
	} else {
		q = q.Where(f.DBName+" = ?", val)
	}
	if !rule.Global {
		q = q.Where(Column+" = ?", sid)
	}
	for _, scope := range rule.ExtraScope {
		sf := sch.LookUpField(scope)
		if sf == nil {
			continue
		}
		sv, _ := sf.ValueOf(db.Statement.Context, rv)
		q = q.Where(sf.DBName+" = ?", sv)
	}
	if pk := primaryKeyOf(db, sch, rv); pk != nil {
		q = q.Where(sch.PrioritizedPrimaryField.DBName+" <> ?", pk)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		db.AddError(err)
		return
	}
	if count > 0 {
		verr.Add(f.DBName, "has already been taken")
		scopeLabel := "store"
		if rule.Global {
			scopeLabel = "global"
		}
		UniquenessRejections.WithLabelValues(sch.Table, scopeLabel).Inc()
	}
}

// primaryKeyOf returns the row's primary key, or nil when unset.
func primaryKeyOf(db *gorm.DB, sch *schema.Schema, rv reflect.Value) any {
	pk := sch.PrioritizedPrimaryField
	if pk == nil {
		return nil
	}
	v, zero := pk.ValueOf(db.Statement.Context, rv)
	if zero {
		return nil
	}
	return v
}

func isBlank(v any, zero bool) bool {
	if zero {
		return true
	}
	return asString(v) == "" && isStringLike(v)
}

func isStringLike(v any) bool {
	switch v.(type) {
	case string, *string:
		return true
	}
	return false
}
