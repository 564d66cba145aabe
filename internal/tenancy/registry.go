package tenancy

import (
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Registry holds the per-model tenancy declarations: which models are
// store-bearing, where a missing store id may be inherited from, which
// attributes are unique per store or globally, and which associations must
// stay within one store. Models are enumerated explicitly at startup instead
// of discovered at runtime.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*Registration
	order  []reflect.Type

	cache     sync.Map
	finalized bool
}

// Registration is the declaration set for one model.
type Registration struct {
	Model any

	// Inherit lists parent associations consulted, in priority order, when a
	// record is created without a store id. First non-empty parent wins.
	Inherit []string

	// SameStore lists associations whose records must belong to the same
	// store as the record itself.
	SameStore []string

	rules     map[string]UniqueRule
	ruleOrder []string

	schema *schema.Schema
}

// UniqueRule describes one uniqueness declaration for a single attribute.
// Scoped and global are mutually exclusive per attribute.
type UniqueRule struct {
	Field           string
	ExtraScope      []string
	CaseInsensitive bool
	IncludeBlank    bool
	Global          bool
}

// Rules returns the uniqueness rules in declaration order.
func (r *Registration) Rules() []UniqueRule {
	out := make([]UniqueRule, 0, len(r.ruleOrder))
	for _, f := range r.ruleOrder {
		out = append(out, r.rules[f])
	}
	return out
}

// Schema returns the parsed gorm schema. Only valid after Finalize.
func (r *Registration) Schema() *schema.Schema {
	return r.schema
}

// TableName returns the model's table name. Only valid after Finalize.
func (r *Registration) TableName() string {
	if r.schema == nil {
		return ""
	}
	return r.schema.Table
}

// Option configures a Registration.
type Option func(*Registration) error

// InheritFrom declares the ordered parent associations a missing store id is
// derived from.
func InheritFrom(associations ...string) Option {
	return func(r *Registration) error {
		r.Inherit = append(r.Inherit, associations...)
		return nil
	}
}

// SameStore declares associations that must reference records of the same
// store. Violations become field-level validation errors, not faults.
func SameStore(associations ...string) Option {
	return func(r *Registration) error {
		r.SameStore = append(r.SameStore, associations...)
		return nil
	}
}

// UniqueOption refines a uniqueness declaration.
type UniqueOption func(*UniqueRule)

// WithScope adds extra columns to the uniqueness scope beyond the store id.
func WithScope(fields ...string) UniqueOption {
	return func(u *UniqueRule) {
		u.ExtraScope = append(u.ExtraScope, fields...)
	}
}

// CaseInsensitive compares the attribute case-insensitively.
func CaseInsensitive() UniqueOption {
	return func(u *UniqueRule) {
		u.CaseInsensitive = true
	}
}

// IncludeBlank subjects blank values to the uniqueness check. By default
// blank values are exempt, so multiple records with an unset key coexist.
func IncludeBlank() UniqueOption {
	return func(u *UniqueRule) {
		u.IncludeBlank = true
	}
}

// ScopedUnique declares the attribute unique within {store_id} plus any extra
// scope columns. It replaces a prior global declaration for the same
// attribute: the override direction is deliberate, converting a retrofitted
// global invariant into a per-store one.
func ScopedUnique(field string, opts ...UniqueOption) Option {
	return func(r *Registration) error {
		rule := UniqueRule{Field: field}
		for _, o := range opts {
			o(&rule)
		}
		if _, exists := r.rules[field]; !exists {
			r.ruleOrder = append(r.ruleOrder, field)
		}
		r.rules[field] = rule
		return nil
	}
}

// GlobalUnique declares the attribute unique across all stores. Reserved for
// external-facing identifiers (order numbers, payment numbers) referenced
// without store context; each use should state why. Declaring it for an
// attribute that already carries a scoped rule is a configuration error.
func GlobalUnique(field string) Option {
	return func(r *Registration) error {
		if prev, exists := r.rules[field]; exists && !prev.Global {
			return fmt.Errorf("tenancy: %q already has a scoped uniqueness rule; global would conflict", field)
		}
		if _, exists := r.rules[field]; !exists {
			r.ruleOrder = append(r.ruleOrder, field)
		}
		r.rules[field] = UniqueRule{Field: field, Global: true}
		return nil
	}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]*Registration)}
}

// Register declares model as store-bearing and applies the given options.
// Each model registers exactly once; the registry is the single source of
// truth for its declarations.
func (r *Registry) Register(model any, opts ...Option) error {
	t := indirectType(reflect.TypeOf(model))
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("tenancy: cannot register %T, want a struct model", model)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[t]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, t.Name())
	}

	reg := &Registration{Model: model, rules: make(map[string]UniqueRule)}
	for _, opt := range opts {
		if err := opt(reg); err != nil {
			return err
		}
	}

	r.byType[t] = reg
	r.order = append(r.order, t)
	return nil
}

// Lookup returns the registration for the given model type.
func (r *Registry) Lookup(t reflect.Type) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byType[indirectType(t)]
	return reg, ok
}

// Registrations returns all registrations in registration order.
func (r *Registry) Registrations() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Registration, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.byType[t])
	}
	return out
}

// Models returns the registered model values, convenient for AutoMigrate.
func (r *Registry) Models() []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]any, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.byType[t].Model)
	}
	return out
}

// Finalize parses every registered model's schema and validates the
// declarations: the store column must exist, declared associations and unique
// attributes must resolve, and inheritance declarations must not form a cycle
// between distinct model types. Configuration errors surface here, at boot,
// not at request time.
func (r *Registry) Finalize(db *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	namer := db.Config.NamingStrategy
	for t, reg := range r.byType {
		sch, err := schema.Parse(reg.Model, &r.cache, namer)
		if err != nil {
			return fmt.Errorf("tenancy: parsing schema for %s: %w", t.Name(), err)
		}
		reg.schema = sch

		if sch.LookUpField(Column) == nil {
			return fmt.Errorf("tenancy: %s registered but has no %s column", t.Name(), Column)
		}
		for _, assoc := range append(append([]string{}, reg.Inherit...), reg.SameStore...) {
			if sch.Relationships.Relations[assoc] == nil {
				return fmt.Errorf("tenancy: %s declares unknown association %q", t.Name(), assoc)
			}
		}
		for _, rule := range reg.rules {
			if sch.LookUpField(rule.Field) == nil {
				return fmt.Errorf("tenancy: %s declares uniqueness on unknown attribute %q", t.Name(), rule.Field)
			}
			for _, scope := range rule.ExtraScope {
				if sch.LookUpField(scope) == nil {
					return fmt.Errorf("tenancy: %s uniqueness scope references unknown attribute %q", t.Name(), scope)
				}
			}
		}
	}

	if err := r.detectInheritanceCycles(); err != nil {
		return err
	}

	r.finalized = true
	return nil
}

// detectInheritanceCycles walks the inheritance declarations as a graph of
// model types. Self-references (a Taxon deriving its store from its parent
// Taxon) model hierarchies and are legal; a cycle between distinct types
// means no creation order can ever resolve a store id and is rejected.
func (r *Registry) detectInheritanceCycles() error {
	const (
		unseen = iota
		visiting
		done
	)
	state := make(map[reflect.Type]int)

	var visit func(t reflect.Type, trail []string) error
	visit = func(t reflect.Type, trail []string) error {
		reg, ok := r.byType[t]
		if !ok {
			return nil
		}
		switch state[t] {
		case visiting:
			return fmt.Errorf("tenancy: circular inheritance declarations: %v -> %s", trail, t.Name())
		case done:
			return nil
		}
		state[t] = visiting
		for _, assoc := range reg.Inherit {
			rel := reg.schema.Relationships.Relations[assoc]
			if rel == nil || rel.FieldSchema == nil {
				continue
			}
			parent := rel.FieldSchema.ModelType
			if parent == t {
				continue
			}
			if err := visit(parent, append(trail, t.Name())); err != nil {
				return err
			}
		}
		state[t] = done
		return nil
	}

	for t := range r.byType {
		if err := visit(t, nil); err != nil {
			return err
		}
	}
	return nil
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
