package seed

import "github.com/Clark-Hu/store-ratings/internal/domain"

// Demo returns the sample dataset: an administrator, two customers, a store
// owner, three stores and three ratings.
func Demo() Fixture {
	return Fixture{
		Users: []User{
			{
				Name:     "System Administrator User",
				Email:    "admin@platform.com",
				Address:  "123 Admin Street, Admin City, AC 12345",
				Password: "Admin123!",
				Role:     domain.RoleAdmin,
			},
			{
				Name:     "John Smith Regular Customer",
				Email:    "john@email.com",
				Address:  "456 Customer Avenue, Customer City, CC 67890",
				Password: "User123!",
				Role:     domain.RoleUser,
			},
			{
				Name:     "Store Owner Coffee Shop",
				Email:    "owner@coffeeshop.com",
				Address:  "789 Business Boulevard, Business City, BC 54321",
				Password: "Owner123!",
				Role:     domain.RoleStoreOwner,
			},
			{
				Name:     "Alice Johnson Regular User",
				Email:    "alice@email.com",
				Address:  "321 Residential Road, Residential City, RC 98765",
				Password: "Alice123!",
				Role:     domain.RoleUser,
			},
		},
		Stores: []Store{
			{
				Name:       "Coffee Paradise Store",
				Email:      "contact@coffeeparadise.com",
				Address:    "789 Business Boulevard, Business City, BC 54321",
				OwnerEmail: "owner@coffeeshop.com",
			},
			{
				Name:    "Electronics Superstore",
				Email:   "info@electronicssuper.com",
				Address: "555 Tech Avenue, Tech City, TC 11111",
			},
			{
				Name:    "Fashion Boutique Center",
				Email:   "hello@fashionboutique.com",
				Address: "777 Style Street, Fashion District, FD 22222",
			},
		},
		Ratings: []Rating{
			{UserEmail: "john@email.com", StoreName: "Coffee Paradise Store", Rating: 4},
			{UserEmail: "alice@email.com", StoreName: "Coffee Paradise Store", Rating: 5},
			{UserEmail: "john@email.com", StoreName: "Electronics Superstore", Rating: 3},
		},
	}
}
