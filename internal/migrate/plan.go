package migrate

// DefaultPlan covers every store-bearing table in dependency order.
// Root tables have no backfill source and receive the default store id.
// Order, payment and shipment numbers keep their original global unique
// indexes, so those tables declare no swaps.
func DefaultPlan() Plan {
	return Plan{Tables: []TableSpec{
		{
			Table:          "products",
			Swaps:          []UniqueSwap{{OldIndex: "idx_products_slug", Columns: []string{"slug"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "option_types",
			Swaps:          []UniqueSwap{{OldIndex: "idx_option_types_name", Columns: []string{"name"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "properties",
			Swaps:          []UniqueSwap{{OldIndex: "idx_properties_name", Columns: []string{"name"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "taxonomies",
			Swaps:          []UniqueSwap{{OldIndex: "idx_taxonomies_name", Columns: []string{"name"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "shipping_categories",
			Swaps:          []UniqueSwap{{OldIndex: "idx_shipping_categories_name", Columns: []string{"name"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "tax_categories",
			Swaps:          []UniqueSwap{{OldIndex: "idx_tax_categories_name", Columns: []string{"name"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "tax_rates",
			EnforceNotNull: true,
		},
		{
			Table:          "stock_locations",
			Swaps:          []UniqueSwap{{OldIndex: "idx_stock_locations_name", Columns: []string{"name"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "payment_methods",
			Swaps:          []UniqueSwap{{OldIndex: "idx_payment_methods_name", Columns: []string{"name"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "shipping_methods",
			Swaps:          []UniqueSwap{{OldIndex: "idx_shipping_methods_name", Columns: []string{"name"}}},
			EnforceNotNull: true,
		},
		{
			Table:          "orders",
			EnforceNotNull: true,
		},
		{
			Table:          "variants",
			Backfill:       []BackfillSource{{ParentTable: "products", ForeignKey: "product_id"}},
			EnforceNotNull: true,
		},
		{
			Table:          "taxons",
			Backfill:       []BackfillSource{{ParentTable: "taxonomies", ForeignKey: "taxonomy_id"}},
			EnforceNotNull: true,
		},
		{
			Table: "option_values",
			Backfill: []BackfillSource{
				{ParentTable: "option_types", ForeignKey: "option_type_id"},
			},
			Swaps: []UniqueSwap{{
				OldIndex: "idx_option_values_name",
				Columns:  []string{"option_type_id", "name"},
			}},
			EnforceNotNull: true,
		},
		{
			Table: "stock_items",
			Backfill: []BackfillSource{
				{ParentTable: "stock_locations", ForeignKey: "stock_location_id"},
				{ParentTable: "variants", ForeignKey: "variant_id"},
			},
			EnforceNotNull: true,
		},
		{
			Table:          "stock_movements",
			Backfill:       []BackfillSource{{ParentTable: "stock_items", ForeignKey: "stock_item_id"}},
			EnforceNotNull: true,
		},
		{
			Table:          "line_items",
			Backfill:       []BackfillSource{{ParentTable: "orders", ForeignKey: "order_id"}},
			EnforceNotNull: true,
		},
		{
			Table:          "payments",
			Backfill:       []BackfillSource{{ParentTable: "orders", ForeignKey: "order_id"}},
			EnforceNotNull: true,
		},
		{
			Table:          "shipments",
			Backfill:       []BackfillSource{{ParentTable: "orders", ForeignKey: "order_id"}},
			EnforceNotNull: true,
		},
		{
			Table: "shipping_rates",
			Backfill: []BackfillSource{
				{ParentTable: "shipments", ForeignKey: "shipment_id"},
				{ParentTable: "tax_rates", ForeignKey: "tax_rate_id"},
				{ParentTable: "shipping_methods", ForeignKey: "shipping_method_id"},
			},
			EnforceNotNull: true,
		},
	}}
}
