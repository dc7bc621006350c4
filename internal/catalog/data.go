package catalog

import (
	"github.com/example/storefront/internal/pricing"
	"github.com/example/storefront/internal/readmodel"
)

func seedProducts() []readmodel.Product {
	m := pricing.MustParseMoney
	return []readmodel.Product{
		{
			ID: "1", Name: "Fresh Organic Apples", Price: m("25.99"), OriginalPrice: m("29.99"),
			Image: "🍎", Category: "Groceries", Rating: 4.5, Store: "Fresh Market", InStock: true,
			Description: "Premium quality organic apples, freshly picked from local orchards. Crisp and juicy, perfect for snacking or baking.",
		},
		{
			ID: "2", Name: "Wireless Headphones", Price: m("899.99"), OriginalPrice: m("1299.99"),
			Image: "🎧", Category: "Electronics", Rating: 4.8, Store: "Tech World", InStock: true,
		},
		{
			ID: "3", Name: "Cotton T-Shirt", Price: m("199.99"), OriginalPrice: m("249.99"),
			Image: "👕", Category: "Fashion", Rating: 4.3, Store: "Fashion Hub", InStock: true,
		},
		{
			ID: "4", Name: "Coffee Beans 1kg", Price: m("149.99"), OriginalPrice: m("179.99"),
			Image: "☕", Category: "Groceries", Rating: 4.7, Store: "Fresh Market", InStock: true,
		},
		{
			ID: "5", Name: "Green Apples", Price: m("22.99"),
			Image: "🍏", Category: "Groceries", Rating: 4.3, Store: "Fresh Market", InStock: true,
		},
		{
			ID: "6", Name: "Apple Juice", Price: m("18.99"), OriginalPrice: m("22.99"),
			Image: "🧃", Category: "Beverages", Rating: 4.2, Store: "Beverage World", InStock: true,
		},
		{
			ID: "7", Name: "Apple Pie", Price: m("45.99"),
			Image: "🥧", Category: "Bakery", Rating: 4.7, Store: "Sweet Bakery", InStock: true,
		},
	}
}

func seedStores() []readmodel.Store {
	return []readmodel.Store{
		{ID: "1", Name: "Fresh Market", Image: "🏪", Rating: 4.6, DeliveryTime: "20-30 min"},
		{ID: "2", Name: "Tech World", Image: "💻", Rating: 4.8, DeliveryTime: "45-60 min"},
		{ID: "3", Name: "Fashion Hub", Image: "👗", Rating: 4.4, DeliveryTime: "30-45 min"},
		{ID: "4", Name: "Home Essentials", Image: "🏠", Rating: 4.5, DeliveryTime: "25-40 min"},
	}
}

func seedCategories() []readmodel.Category {
	return []readmodel.Category{
		{ID: "1", Name: "Groceries", Icon: "local-grocery-store", Color: "#4CAF50", ItemCount: 1250,
			Subcategories: []string{"Fruits & Vegetables", "Dairy & Eggs", "Meat & Seafood", "Bakery", "Beverages"}},
		{ID: "2", Name: "Electronics", Icon: "devices", Color: "#2196F3", ItemCount: 890,
			Subcategories: []string{"Smartphones", "Laptops", "Audio", "Gaming", "Accessories"}},
		{ID: "3", Name: "Fashion", Icon: "checkroom", Color: "#E91E63", ItemCount: 2100,
			Subcategories: []string{"Men's Clothing", "Women's Clothing", "Shoes", "Accessories", "Bags"}},
		{ID: "4", Name: "Home & Garden", Icon: "home", Color: "#FF9800", ItemCount: 750,
			Subcategories: []string{"Furniture", "Decor", "Kitchen", "Garden", "Tools"}},
		{ID: "5", Name: "Sports & Fitness", Icon: "sports-soccer", Color: "#9C27B0", ItemCount: 450,
			Subcategories: []string{"Exercise Equipment", "Sports Gear", "Outdoor", "Supplements", "Apparel"}},
		{ID: "6", Name: "Books & Media", Icon: "menu-book", Color: "#795548", ItemCount: 320,
			Subcategories: []string{"Books", "Movies", "Music", "Games", "Magazines"}},
		{ID: "7", Name: "Health & Beauty", Icon: "spa", Color: "#FF5722", ItemCount: 680,
			Subcategories: []string{"Skincare", "Makeup", "Hair Care", "Health", "Fragrances"}},
		{ID: "8", Name: "Toys & Kids", Icon: "toys", Color: "#607D8B", ItemCount: 540,
			Subcategories: []string{"Toys", "Baby Care", "Kids Clothing", "Educational", "Games"}},
		{ID: "9", Name: "Automotive", Icon: "directions-car", Color: "#3F51B5", ItemCount: 290,
			Subcategories: []string{"Car Parts", "Accessories", "Tools", "Care Products", "Electronics"}},
		{ID: "10", Name: "Pet Supplies", Icon: "pets", Color: "#009688", ItemCount: 180,
			Subcategories: []string{"Dog Supplies", "Cat Supplies", "Food", "Toys", "Health"}},
	}
}
