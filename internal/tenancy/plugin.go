package tenancy

import (
	"context"
	"reflect"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Policy controls behavior when no current store is set. The permissive
// default lets administrative and background work run unscoped, matching the
// retrofit situation this engine was built for; flipping RequireStore turns a
// missing store into a hard failure on every scoped operation.
type Policy struct {
	RequireStore bool
}

// Auditor receives a record of every administrative bypass. Bypassed
// operations drop the isolation guarantee, so their usage must be auditable.
type Auditor interface {
	RecordBypass(ctx context.Context, operation, table string)
}

// Plugin is the scope interceptor. Installed once per process via db.Use, it
// wraps reads and writes of every registered model: reads gain an automatic
// store filter, inserts are stamped (consulting the inheritance declarations
// first), and updates or deletes aimed at another store's rows match nothing,
// so cross-store access is indistinguishable from a missing record.
type Plugin struct {
	registry *Registry
	policy   Policy
	log      *zap.Logger
	audit    Auditor
}

// PluginOption configures the Plugin.
type PluginOption func(*Plugin)

// WithPolicy sets the missing-store policy.
func WithPolicy(policy Policy) PluginOption {
	return func(p *Plugin) { p.policy = policy }
}

// WithLogger sets the logger used for bypass reporting.
func WithLogger(log *zap.Logger) PluginOption {
	return func(p *Plugin) { p.log = log }
}

// WithAuditor attaches an audit sink for bypass usage.
func WithAuditor(a Auditor) PluginOption {
	return func(p *Plugin) { p.audit = a }
}

// New builds the interceptor for the given registry.
func New(registry *Registry, opts ...PluginOption) *Plugin {
	p := &Plugin{registry: registry, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements gorm.Plugin.
func (p *Plugin) Name() string {
	return "tenancy"
}

// Initialize implements gorm.Plugin. It finalizes the registry first, so
// configuration errors (unknown associations, conflicting uniqueness rules,
// circular inheritance) are fatal at boot rather than surfacing mid-request.
func (p *Plugin) Initialize(db *gorm.DB) error {
	if err := p.registry.Finalize(db); err != nil {
		return err
	}

	if err := db.Callback().Query().Before("gorm:query").Register("tenancy:query", p.scopeQuery); err != nil {
		return err
	}
	if err := db.Callback().Create().Before("gorm:create").Register("tenancy:create", p.beforeCreate); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenancy:update", p.beforeUpdate); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:delete").Register("tenancy:delete", p.beforeDelete)
}

// scopeQuery injects the store equality filter into reads of registered
// models.
func (p *Plugin) scopeQuery(db *gorm.DB) {
	reg, ok := p.registration(db)
	if !ok {
		return
	}
	ctx := db.Statement.Context

	if Bypassed(ctx) {
		p.observeBypass(ctx, "query", reg.TableName())
		return
	}
	sid, ok := CurrentStore(ctx)
	if !ok {
		if p.policy.RequireStore {
			StoreRequiredFailures.WithLabelValues("query", db.Statement.Table).Inc()
			_ = db.AddError(ErrStoreRequired)
		}
		return
	}
	p.addStoreFilter(db, sid)
}

// beforeCreate resolves, stamps, and validates every row about to be
// inserted.
func (p *Plugin) beforeCreate(db *gorm.DB) {
	reg, ok := p.registration(db)
	if !ok {
		return
	}
	sch := db.Statement.Schema
	ctx := db.Statement.Context
	bypassed := Bypassed(ctx)
	if bypassed {
		p.observeBypass(ctx, "create", sch.Table)
	}
	ctxStore, hasCtxStore := CurrentStore(ctx)

	verr := ValidationErrors{}
	eachRow(db.Statement.ReflectValue, func(rv reflect.Value) {
		if db.Error != nil {
			return
		}
		p.prepareCreate(db, reg, rv, ctxStore, hasCtxStore, bypassed, verr)
	})
	if db.Error == nil && verr.Any() {
		_ = db.AddError(verr)
	}
}

func (p *Plugin) prepareCreate(db *gorm.DB, reg *Registration, rv reflect.Value, ctxStore string, hasCtxStore, bypassed bool, verr ValidationErrors) {
	sch := db.Statement.Schema

	sid, err := p.resolveStoreID(db, reg, sch, rv)
	if err != nil {
		_ = db.AddError(err)
		return
	}
	if sid == "" && hasCtxStore {
		sid = ctxStore
	}

	switch {
	case sid == "":
		if p.policy.RequireStore && !bypassed {
			StoreRequiredFailures.WithLabelValues("create", sch.Table).Inc()
			verr.Add("store", "must exist")
			return
		}
	default:
		if hasCtxStore && sid != ctxStore && !bypassed {
			verr.Add("store", "must match the current store")
			return
		}
		if f := sch.LookUpField(Column); f != nil {
			if err := f.Set(db.Statement.Context, rv, sid); err != nil {
				_ = db.AddError(err)
				return
			}
		}
	}

	p.checkUniqueness(db, reg, sch, rv, verr)
	p.checkSameStore(db, reg, sch, rv, verr)
}

// beforeUpdate filters updates to the current store and revalidates the row.
// An explicit store_id assignment additionally becomes part of the filter, so
// a tenant-transfer attempt updates zero rows; the store id is immutable once
// persisted.
func (p *Plugin) beforeUpdate(db *gorm.DB) {
	reg, ok := p.registration(db)
	if !ok {
		return
	}
	sch := db.Statement.Schema
	ctx := db.Statement.Context
	bypassed := Bypassed(ctx)

	if bypassed {
		p.observeBypass(ctx, "update", sch.Table)
	} else {
		if sid, ok := CurrentStore(ctx); ok {
			p.addStoreFilter(db, sid)
		} else if p.policy.RequireStore {
			StoreRequiredFailures.WithLabelValues("update", sch.Table).Inc()
			_ = db.AddError(ErrStoreRequired)
			return
		}
		if assigned, ok := p.assignedStoreValue(db); ok {
			p.addStoreFilter(db, assigned)
		}
	}

	verr := ValidationErrors{}
	switch dest := db.Statement.Dest.(type) {
	case map[string]interface{}:
		p.checkMapUpdate(db, reg, dest, verr)
	default:
		rv := reflect.Indirect(reflect.ValueOf(db.Statement.Dest))
		if rv.Kind() == reflect.Struct && rv.Type() == sch.ModelType {
			p.checkUniqueness(db, reg, sch, rv, verr)
			p.checkSameStore(db, reg, sch, rv, verr)
		}
	}
	if db.Error == nil && verr.Any() {
		_ = db.AddError(verr)
	}
}

// checkMapUpdate revalidates rows targeted by a map update. The statement's
// model value is empty here, so each targeted row is loaded, the assignments
// are applied to the copy, and the copy runs through the same uniqueness and
// association checks as a struct save. A swapped foreign key or a renamed
// attribute therefore cannot dodge revalidation, the row's real primary key
// excludes it from colliding with itself, and extra scope columns compare
// against the row's actual values.
func (p *Plugin) checkMapUpdate(db *gorm.DB, reg *Registration, dest map[string]interface{}, verr ValidationErrors) {
	sch := db.Statement.Schema
	if !updateNeedsRevalidation(reg, sch, dest) {
		return
	}
	rows, err := p.loadUpdateTargets(db, sch)
	if err != nil {
		_ = db.AddError(err)
		return
	}
	for i := 0; i < rows.Len(); i++ {
		rv := rows.Index(i)
		for key, val := range dest {
			f := sch.LookUpField(key)
			if f == nil {
				continue
			}
			if err := f.Set(db.Statement.Context, rv, val); err != nil {
				_ = db.AddError(err)
				return
			}
		}
		p.checkUniqueness(db, reg, sch, rv, verr)
		p.checkSameStore(db, reg, sch, rv, verr)
	}
}

// updateNeedsRevalidation reports whether a map update assigns a uniqueness
// attribute or the foreign key of a same-store association. Updates touching
// neither skip the target load entirely.
func updateNeedsRevalidation(reg *Registration, sch *schema.Schema, dest map[string]interface{}) bool {
	watched := map[string]struct{}{}
	for _, rule := range reg.Rules() {
		if f := sch.LookUpField(rule.Field); f != nil {
			watched[f.Name] = struct{}{}
		}
	}
	for _, assoc := range reg.SameStore {
		rel := sch.Relationships.Relations[assoc]
		if rel == nil || rel.Type != schema.BelongsTo {
			continue
		}
		for _, ref := range rel.References {
			if ref.ForeignKey != nil {
				watched[ref.ForeignKey.Name] = struct{}{}
			}
		}
	}
	for key := range dest {
		if f := sch.LookUpField(key); f != nil {
			if _, ok := watched[f.Name]; ok {
				return true
			}
		}
	}
	return false
}

// loadUpdateTargets fetches the rows a map update is about to modify, reusing
// the update's own conditions, store filter included.
func (p *Plugin) loadUpdateTargets(db *gorm.DB, sch *schema.Schema) (reflect.Value, error) {
	ctx := markInternal(WithoutStore(db.Statement.Context))
	tx := db.Session(&gorm.Session{NewDB: true, Context: ctx})
	if c, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := c.Expression.(clause.Where); ok {
			tx = tx.Clauses(clause.Where{Exprs: where.Exprs})
		}
	}
	slice := reflect.New(reflect.SliceOf(sch.ModelType))
	if err := tx.Find(slice.Interface()).Error; err != nil {
		return reflect.Value{}, err
	}
	return slice.Elem(), nil
}

// beforeDelete filters deletes to the current store.
func (p *Plugin) beforeDelete(db *gorm.DB) {
	reg, ok := p.registration(db)
	if !ok {
		return
	}
	ctx := db.Statement.Context

	if Bypassed(ctx) {
		p.observeBypass(ctx, "delete", reg.TableName())
		return
	}
	if sid, ok := CurrentStore(ctx); ok {
		p.addStoreFilter(db, sid)
	} else if p.policy.RequireStore {
		StoreRequiredFailures.WithLabelValues("delete", db.Statement.Table).Inc()
		_ = db.AddError(ErrStoreRequired)
	}
}

// registration matches the statement's model against the registry.
func (p *Plugin) registration(db *gorm.DB) (*Registration, bool) {
	if db.Error != nil || db.Statement.Schema == nil {
		return nil, false
	}
	return p.registry.Lookup(db.Statement.Schema.ModelType)
}

func (p *Plugin) addStoreFilter(db *gorm.DB, sid string) {
	db.Statement.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: Column},
			Value:  sid,
		},
	}})
}

// assignedStoreValue extracts an explicit store_id assignment from the update
// destination, when one is present and non-empty.
func (p *Plugin) assignedStoreValue(db *gorm.DB) (string, bool) {
	switch dest := db.Statement.Dest.(type) {
	case map[string]interface{}:
		for _, key := range []string{Column, "StoreID"} {
			if v, ok := dest[key]; ok {
				if s := asString(v); s != "" {
					return s, true
				}
			}
		}
	default:
		rv := reflect.Indirect(reflect.ValueOf(db.Statement.Dest))
		if rv.Kind() == reflect.Struct && db.Statement.Schema != nil && rv.Type() == db.Statement.Schema.ModelType {
			if sid := fieldString(db.Statement.Context, db.Statement.Schema, Column, rv); sid != "" {
				return sid, true
			}
		}
	}
	return "", false
}

// observeBypass reports administrative bypass usage. The engine's own
// internal lookups are excluded.
func (p *Plugin) observeBypass(ctx context.Context, operation, table string) {
	if isInternal(ctx) {
		return
	}
	BypassTotal.WithLabelValues(operation, table).Inc()
	p.log.Debug("tenancy bypass",
		zap.String("operation", operation),
		zap.String("table", table),
	)
	if p.audit != nil {
		p.audit.RecordBypass(ctx, operation, table)
	}
}

// eachRow applies fn to every row in a create destination, which may be a
// single struct or a batch.
func eachRow(rv reflect.Value, fn func(reflect.Value)) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			if elem.Kind() == reflect.Ptr {
				if elem.IsNil() {
					continue
				}
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Struct {
				fn(elem)
			}
		}
	case reflect.Struct:
		fn(rv)
	}
}
