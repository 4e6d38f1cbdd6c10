package markets

import (
	"net/http"

	"github.com/KimutaiAsbel/SokoniConnect/models"
	"github.com/KimutaiAsbel/SokoniConnect/utils"

	"github.com/gin-gonic/gin"
)

func GetMarkets(c *gin.Context) {
	var markets []models.Market
	if err := utils.SokoniDB.Order("name").Find(&markets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch markets"})
		return
	}

	c.JSON(http.StatusOK, markets)
}

type productRow struct {
	ID            uint     `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	Price         *float64 `json:"price"`
	Availability  *bool    `json:"availability"`
	StockQuantity *int     `json:"stock_quantity"`
	MarketName    *string  `json:"market_name"`
	MarketID      *uint    `json:"market_id"`
}

func GetProducts(c *gin.Context) {
	var rows []productRow
	err := utils.SokoniDB.Model(&models.Product{}).
		Select("products.id, products.name, products.category, products.description, market_products.price, market_products.availability, market_products.stock_quantity, markets.name AS market_name, market_products.market_id").
		Joins("LEFT JOIN market_products ON products.id = market_products.product_id").
		Joins("LEFT JOIN markets ON market_products.market_id = markets.id").
		Order("products.name, markets.name").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

type marketDataRow struct {
	ProductID     uint    `json:"productId"`
	ProductName   string  `json:"productName"`
	Price         float64 `json:"price"`
	Availability  bool    `json:"availability"`
	StockQuantity int     `json:"stock_quantity"`
	MarketName    string  `json:"marketName"`
	LastUpdated   string  `json:"last_updated"`
}

func GetMarketData(c *gin.Context) {
	query := utils.SokoniDB.Model(&models.MarketProduct{}).
		Select("products.id AS product_id, products.name AS product_name, market_products.price, market_products.availability, market_products.stock_quantity, markets.name AS market_name, market_products.last_updated").
		Joins("JOIN products ON market_products.product_id = products.id").
		Joins("JOIN markets ON market_products.market_id = markets.id")

	if marketID := c.Query("marketId"); marketID != "" {
		query = query.Where("market_products.market_id = ?", marketID)
	}

	var rows []marketDataRow
	if err := query.Order("products.name").Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch market data"})
		return
	}

	c.JSON(http.StatusOK, rows)
}
