package catalog

import "backend/internal/tenancy"

// Register declares the catalog models to the tenancy registry. Slugs are
// case-sensitively unique per store; option value names are unique per option
// type within a store; a variant may only carry option values of its own
// store.
func Register(reg *tenancy.Registry) error {
	declarations := []struct {
		model any
		opts  []tenancy.Option
	}{
		{&Product{}, []tenancy.Option{
			tenancy.ScopedUnique("Slug"),
		}},
		{&Variant{}, []tenancy.Option{
			tenancy.InheritFrom("Product"),
			tenancy.SameStore("OptionValues"),
			tenancy.ScopedUnique("SKU"),
		}},
		{&OptionType{}, []tenancy.Option{
			tenancy.ScopedUnique("Name"),
		}},
		{&OptionValue{}, []tenancy.Option{
			tenancy.InheritFrom("OptionType"),
			tenancy.SameStore("OptionType"),
			tenancy.ScopedUnique("Name", tenancy.WithScope("OptionTypeID")),
		}},
		{&Property{}, []tenancy.Option{
			tenancy.ScopedUnique("Name"),
		}},
		{&Taxonomy{}, []tenancy.Option{
			tenancy.ScopedUnique("Name"),
		}},
		{&Taxon{}, []tenancy.Option{
			tenancy.InheritFrom("Taxonomy", "Parent"),
		}},
		{&ShippingCategory{}, []tenancy.Option{
			tenancy.ScopedUnique("Name"),
		}},
		{&TaxCategory{}, []tenancy.Option{
			tenancy.ScopedUnique("Name"),
		}},
		{&TaxRate{}, nil},
	}

	for _, d := range declarations {
		if err := reg.Register(d.model, d.opts...); err != nil {
			return err
		}
	}
	return nil
}
