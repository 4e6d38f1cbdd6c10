package seed

import (
	"log"
	"math/rand"
	"time"

	"github.com/KimutaiAsbel/SokoniConnect/models"
	"github.com/KimutaiAsbel/SokoniConnect/utils"

	"golang.org/x/crypto/bcrypt"
)

// SeedDemoData inserts the demo user, markets, products and sample
// alerts on first run. A populated users table means seeding already
// happened.
func SeedDemoData() error {
	var userCount int64
	if err := utils.SokoniDB.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}
	if userCount > 0 {
		log.Println("Sample data already exists, skipping seeding.")
		return nil
	}

	log.Println("Inserting sample data...")

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	demoUser := models.User{
		Username: "demo",
		Email:    "demo@sokoni.com",
		Password: string(passwordHash),
	}
	if err := utils.SokoniDB.Create(&demoUser).Error; err != nil {
		return err
	}

	markets := []models.Market{
		{Name: "Central Market", Location: "Downtown", Description: "Main marketplace in the city center"},
		{Name: "North Market", Location: "Northside", Description: "Community market serving northern districts"},
		{Name: "South Market", Location: "Southside", Description: "Fresh produce market in the south"},
	}
	if err := utils.SokoniDB.Create(&markets).Error; err != nil {
		return err
	}

	products := []models.Product{
		{Name: "Tomatoes", Category: "Vegetables", Description: "Fresh red tomatoes"},
		{Name: "Onions", Category: "Vegetables", Description: "Local white onions"},
		{Name: "Potatoes", Category: "Vegetables", Description: "Irish potatoes"},
		{Name: "Carrots", Category: "Vegetables", Description: "Fresh carrots"},
		{Name: "Cabbage", Category: "Vegetables", Description: "Green cabbage"},
		{Name: "Spinach", Category: "Vegetables", Description: "Fresh spinach leaves"},
		{Name: "Bananas", Category: "Fruits", Description: "Sweet bananas"},
		{Name: "Oranges", Category: "Fruits", Description: "Juicy oranges"},
		{Name: "Maize", Category: "Grains", Description: "White maize"},
		{Name: "Rice", Category: "Grains", Description: "Long grain rice"},
	}
	if err := utils.SokoniDB.Create(&products).Error; err != nil {
		return err
	}

	basePrices := []float64{50, 40, 30, 45, 25, 20, 80, 60, 35, 55}
	now := time.Now()

	for _, market := range markets {
		for i, product := range products {
			priceVariation := rand.Float64()*10 - 5
			price := basePrices[i] + priceVariation
			if price < 10 {
				price = 10
			}
			available := rand.Float64() > 0.2
			stock := 0
			if available {
				stock = rand.Intn(100) + 10
			}

			mp := models.MarketProduct{
				MarketID:      market.ID,
				ProductID:     product.ID,
				Price:         price,
				Availability:  available,
				StockQuantity: stock,
				LastUpdated:   now,
			}
			if err := utils.SokoniDB.Create(&mp).Error; err != nil {
				return err
			}
		}
	}

	alerts := []models.MarketAlert{
		{UserID: demoUser.ID, Title: "Tomato Price Drop", Description: "Alert when tomato prices drop below 45", AlertType: "price", MarketID: &markets[0].ID, ProductID: &products[0].ID, IsActive: true},
		{UserID: demoUser.ID, Title: "Market Day Reminder", Description: "Remind me about Central Market days", AlertType: "market_day", MarketID: &markets[0].ID, IsActive: true},
		{UserID: demoUser.ID, Title: "Onion Availability", Description: "Alert when onions are back in stock", AlertType: "availability", MarketID: &markets[1].ID, ProductID: &products[1].ID, IsActive: false},
	}
	if err := utils.SokoniDB.Create(&alerts).Error; err != nil {
		return err
	}

	log.Println("Sample data inserted successfully!")
	return nil
}
