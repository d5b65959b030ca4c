package catalog

import "context"

// SeedDemo loads a small demo inventory into the store. Used by the
// server when no catalog database is configured.
func SeedDemo(ctx context.Context, store Store) error {
	listings := []Listing{
		{ID: "bike_12345", SellerID: "seller_amy", Title: "Trek Mountain Bike", Description: "Like-new Trek hardtail, barely ridden", AskingPrice: 750, Condition: "like-new", Extras: []string{"helmet", "lock"}},
		{ID: "bike_20931", SellerID: "seller_raj", Title: "Giant Talon Mountain Bike", Description: "Good condition, fresh tune-up", AskingPrice: 680, Condition: "good", Extras: []string{"lock"}},
		{ID: "bike_55710", SellerID: "seller_kim", Title: "Specialized Rockhopper", Description: "Some scratches, rides great", AskingPrice: 620, Condition: "fair"},
		{ID: "sofa_80021", SellerID: "seller_amy", Title: "Mid-century Sofa", Description: "Three-seater, pet-free home", AskingPrice: 450, Condition: "good"},
		{ID: "desk_33107", SellerID: "seller_lee", Title: "Standing Desk", Description: "Electric sit-stand desk, 120x80", AskingPrice: 390, Condition: "like-new", Extras: []string{"cable tray"}},
	}
	for _, l := range listings {
		if err := store.Put(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
