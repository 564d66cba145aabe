package order

import "backend/internal/tenancy"

// Register declares the order models to the tenancy registry. Order, payment,
// and shipment numbers are deliberately global: they are quoted by customers
// and auditors with no store in hand, so they must not collide even across
// stores. Everything else scopes per store.
func Register(reg *tenancy.Registry) error {
	declarations := []struct {
		model any
		opts  []tenancy.Option
	}{
		{&Order{}, []tenancy.Option{
			tenancy.GlobalUnique("Number"),
			tenancy.SameStore("LineItems"),
		}},
		{&LineItem{}, []tenancy.Option{
			tenancy.InheritFrom("Order", "Variant"),
			tenancy.SameStore("Variant"),
		}},
		{&PaymentMethod{}, []tenancy.Option{
			tenancy.ScopedUnique("Name"),
		}},
		{&Payment{}, []tenancy.Option{
			tenancy.InheritFrom("Order"),
			tenancy.GlobalUnique("Number"),
			tenancy.SameStore("Order", "PaymentMethod"),
		}},
		{&ShippingMethod{}, []tenancy.Option{
			tenancy.ScopedUnique("Name"),
		}},
		{&Shipment{}, []tenancy.Option{
			tenancy.InheritFrom("Order"),
			tenancy.GlobalUnique("Number"),
		}},
		{&ShippingRate{}, []tenancy.Option{
			tenancy.InheritFrom("Shipment", "TaxRate", "ShippingMethod"),
		}},
	}

	for _, d := range declarations {
		if err := reg.Register(d.model, d.opts...); err != nil {
			return err
		}
	}
	return nil
}
