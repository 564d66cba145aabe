package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend/internal/catalog"
	"backend/internal/inventory"
	"backend/internal/order"
	"backend/internal/tenancy"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested store does not exist.
var ErrNotFound = errors.New("store: not found")

// Service manages stores. Stores are administrative records, so every
// operation here runs with the tenancy bypass; the bypass usage is what the
// interceptor audits.
type Service struct {
	db       *gorm.DB
	registry *tenancy.Registry
	log      *zap.Logger
}

// NewService constructs the store service.
func NewService(db *gorm.DB, registry *tenancy.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, registry: registry, log: log}
}

// WithStore scopes the context to the given store.
func WithStore(ctx context.Context, s *Store) context.Context {
	return tenancy.WithStore(ctx, s.ID)
}

// Create persists a new store.
func (s *Service) Create(ctx context.Context, st *Store) error {
	if strings.TrimSpace(st.Code) == "" {
		verr := tenancy.ValidationErrors{}
		verr.Add("code", "can't be blank")
		return verr
	}

	ctx = tenancy.WithoutStore(ctx)
	var count int64
	if err := s.db.WithContext(ctx).Model(&Store{}).Where("code = ?", st.Code).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		verr := tenancy.ValidationErrors{}
		verr.Add("code", "has already been taken")
		return verr
	}

	if err := s.db.WithContext(ctx).Create(st).Error; err != nil {
		return err
	}
	s.log.Info("store created", zap.String("store_id", st.ID), zap.String("code", st.Code))
	return nil
}

// FindByID fetches a store by primary key.
func (s *Service) FindByID(ctx context.Context, id string) (*Store, error) {
	return s.findOne(ctx, "id = ?", id)
}

// FindByCode fetches a store by its unique code.
func (s *Service) FindByCode(ctx context.Context, code string) (*Store, error) {
	return s.findOne(ctx, "code = ?", code)
}

// FindByHost matches a store by URL or by the first label of the host, so
// "s1.example.com" resolves the store with code "s1".
func (s *Service) FindByHost(ctx context.Context, host string) (*Store, error) {
	if host == "" {
		return nil, ErrNotFound
	}
	if st, err := s.findOne(ctx, "url = ?", host); err == nil {
		return st, nil
	}
	sub, _, found := strings.Cut(host, ".")
	if !found || sub == "" {
		return nil, ErrNotFound
	}
	return s.FindByCode(ctx, sub)
}

func (s *Service) findOne(ctx context.Context, query string, args ...any) (*Store, error) {
	var st Store
	err := s.db.WithContext(tenancy.WithoutStore(ctx)).Where(query, args...).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// All lists every store.
func (s *Service) All(ctx context.Context) ([]Store, error) {
	var stores []Store
	err := s.db.WithContext(tenancy.WithoutStore(ctx)).Order("code").Find(&stores).Error
	return stores, err
}

// Delete removes a store, but only when it owns no scoped records. Ownership
// blocks deletion deliberately: a store with data disappears only after its
// data does, never by cascade.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx = tenancy.WithoutStore(ctx)

	var occupied []string
	for _, reg := range s.registry.Registrations() {
		table := reg.TableName()
		if table == "" {
			continue
		}
		var count int64
		if err := s.db.WithContext(ctx).Table(table).Where(tenancy.Column+" = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			occupied = append(occupied, table)
		}
	}
	if len(occupied) > 0 {
		verr := tenancy.ValidationErrors{}
		verr.Add("base", fmt.Sprintf("cannot be deleted while records exist in: %s", strings.Join(occupied, ", ")))
		return verr
	}

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Store{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.log.Info("store deleted", zap.String("store_id", id))
	return nil
}

// DefaultShippingCategory returns the store's "Default" shipping category,
// creating it on first use.
func (s *Service) DefaultShippingCategory(ctx context.Context, st *Store) (*catalog.ShippingCategory, error) {
	return s.shippingCategory(ctx, st, "Default")
}

// DigitalShippingCategory returns the store's "Digital" shipping category,
// creating it on first use.
func (s *Service) DigitalShippingCategory(ctx context.Context, st *Store) (*catalog.ShippingCategory, error) {
	return s.shippingCategory(ctx, st, "Digital")
}

func (s *Service) shippingCategory(ctx context.Context, st *Store, name string) (*catalog.ShippingCategory, error) {
	ctx = WithStore(ctx, st)
	var sc catalog.ShippingCategory
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&sc).Error
	if err == nil {
		return &sc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	sc = catalog.ShippingCategory{Name: name}
	if err := s.db.WithContext(ctx).Create(&sc).Error; err != nil {
		return nil, err
	}
	return &sc, nil
}

// DefaultStockLocation returns the store's default stock location, creating
// it on first use with the store's default country.
func (s *Service) DefaultStockLocation(ctx context.Context, st *Store) (*inventory.StockLocation, error) {
	ctx = WithStore(ctx, st)
	var loc inventory.StockLocation
	err := s.db.WithContext(ctx).Where("is_default = ?", true).First(&loc).Error
	if err == nil {
		return &loc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	loc = inventory.StockLocation{Name: "Default", IsDefault: true, CountryISO: st.DefaultCountryISO}
	if err := s.db.WithContext(ctx).Create(&loc).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

// AllOwned loads every record of the destination's type owned by the store,
// regardless of the current context. Administrative bypass; audited.
func (s *Service) AllOwned(ctx context.Context, st *Store, dest any) error {
	return s.db.
		WithContext(tenancy.WithoutStore(ctx)).
		Where(tenancy.Column+" = ?", st.ID).
		Find(dest).Error
}

// AllProducts lists the store's products ignoring the current context.
func (s *Service) AllProducts(ctx context.Context, st *Store) ([]catalog.Product, error) {
	var products []catalog.Product
	err := s.AllOwned(ctx, st, &products)
	return products, err
}

// AllOrders lists the store's orders ignoring the current context.
func (s *Service) AllOrders(ctx context.Context, st *Store) ([]order.Order, error) {
	var orders []order.Order
	err := s.AllOwned(ctx, st, &orders)
	return orders, err
}
