package product

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
)

const seedImageBaseURL = "https://raw.githubusercontent.com/MicrosoftDocs/mslearn-dotnet-cloudnative/main/dotnet-docker/Products/wwwroot/images/"

type seedProduct struct {
	name        string
	description string
	price       string
	image       string
}

var defaultCatalog = []seedProduct{
	{"Solar Powered Flashlight", "A fantastic product for outdoor enthusiasts", "19.99", "product1.png"},
	{"Hiking Poles", "Ideal for camping and hiking trips", "24.99", "product2.png"},
	{"Outdoor Rain Jacket", "This product will keep you warm and dry in all weathers", "49.99", "product3.png"},
	{"Survival Kit", "A must-have for any outdoor adventurer", "99.99", "product4.png"},
	{"Outdoor Backpack", "This backpack is perfect for carrying all your outdoor essentials", "39.99", "product5.png"},
	{"Camping Cookware", "This cookware set is ideal for cooking outdoors", "29.99", "product6.png"},
	{"Camping Stove", "This stove is perfect for cooking outdoors", "49.99", "product7.png"},
	{"Camping Lantern", "This lantern is perfect for lighting up your campsite", "19.99", "product8.png"},
	{"Camping Tent", "This tent is perfect for camping trips", "99.99", "product9.png"},
}

// DefaultCatalog returns the outdoor products inserted into an empty table.
func DefaultCatalog() []models.Product {
	out := make([]models.Product, 0, len(defaultCatalog))
	for _, p := range defaultCatalog {
		out = append(out, models.Product{
			Name:        p.name,
			Description: p.description,
			Price:       decimal.RequireFromString(p.price),
			ImageURL:    seedImageBaseURL + p.image,
		})
	}
	return out
}

// Seed inserts DefaultCatalog when the products table is empty. It returns
// the number of rows inserted.
func Seed(ctx context.Context, db *gorm.DB, logg *logger.Logger) (int, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	rows := DefaultCatalog()
	if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("seed products: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "count", len(rows)), "catalog.seeded")
	}
	return len(rows), nil
}
