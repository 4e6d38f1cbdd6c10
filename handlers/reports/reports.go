package reports

import (
	"net/http"

	"github.com/KimutaiAsbel/SokoniConnect/models"
	"github.com/KimutaiAsbel/SokoniConnect/utils"

	"github.com/gin-gonic/gin"
)

type reportFilter struct {
	ReportType  string `json:"reportType"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	MarketName  string `json:"marketName"`
	ProductName string `json:"productName"`
}

type reportRow struct {
	Date        string  `json:"date"`
	MarketName  string  `json:"marketName"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	TotalSales  float64 `json:"totalSales"`
	TraderCount int     `json:"traderCount"`
}

// GenerateReport aggregates market pricing and per-market-per-day
// trader attendance into the flat row shape the dashboard renders.
func GenerateReport(c *gin.Context) {
	var filter reportFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report filter"})
		return
	}

	if filter.StartDate == "" || filter.EndDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Start and end dates are required"})
		return
	}

	query := utils.SokoniDB.Model(&models.AttendanceRecord{}).
		Select("attendance_records.date AS date, markets.name AS market_name, products.name AS product_name, market_products.stock_quantity AS quantity, market_products.price AS price, market_products.price * market_products.stock_quantity AS total_sales, COUNT(DISTINCT attendance_records.user_id) AS trader_count").
		Joins("JOIN markets ON attendance_records.market_id = markets.id").
		Joins("JOIN market_products ON market_products.market_id = markets.id").
		Joins("JOIN products ON market_products.product_id = products.id").
		Where("attendance_records.date BETWEEN ? AND ?", filter.StartDate, filter.EndDate).
		Group("attendance_records.date, markets.name, products.name, market_products.stock_quantity, market_products.price")

	if filter.MarketName != "" {
		query = query.Where("markets.name = ?", filter.MarketName)
	}
	if filter.ProductName != "" {
		query = query.Where("products.name = ?", filter.ProductName)
	}

	var rows []reportRow
	if err := query.Order("attendance_records.date, markets.name, products.name").Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report"})
		return
	}

	c.JSON(http.StatusOK, rows)
}
