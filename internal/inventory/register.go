package inventory

import "backend/internal/tenancy"

// Register declares the inventory models to the tenancy registry. Stock items
// derive their store from the stock location first, falling back to the
// variant; movements follow their stock item.
func Register(reg *tenancy.Registry) error {
	declarations := []struct {
		model any
		opts  []tenancy.Option
	}{
		{&StockLocation{}, []tenancy.Option{
			tenancy.ScopedUnique("Name"),
		}},
		{&StockItem{}, []tenancy.Option{
			tenancy.InheritFrom("StockLocation", "Variant"),
			tenancy.SameStore("Variant"),
		}},
		{&StockMovement{}, []tenancy.Option{
			tenancy.InheritFrom("StockItem"),
		}},
	}

	for _, d := range declarations {
		if err := reg.Register(d.model, d.opts...); err != nil {
			return err
		}
	}
	return nil
}
