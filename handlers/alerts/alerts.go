package alerts

import (
	"net/http"

	"github.com/KimutaiAsbel/SokoniConnect/models"
	"github.com/KimutaiAsbel/SokoniConnect/utils"

	"github.com/gin-gonic/gin"
)

type alertRow struct {
	models.MarketAlert
	MarketName  *string `json:"market_name"`
	ProductName *string `json:"product_name"`
}

func GetAlerts(c *gin.Context) {
	userInterface, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	user := userInterface.(models.User)

	var rows []alertRow
	err := utils.SokoniDB.Model(&models.MarketAlert{}).
		Select("market_alerts.*, markets.name AS market_name, products.name AS product_name").
		Joins("LEFT JOIN markets ON market_alerts.market_id = markets.id").
		Joins("LEFT JOIN products ON market_alerts.product_id = products.id").
		Where("market_alerts.user_id = ?", user.ID).
		Order("market_alerts.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

type alertInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AlertType   string `json:"alert_type"`
	MarketID    *uint  `json:"market_id"`
	ProductID   *uint  `json:"product_id"`
	IsActive    bool   `json:"is_active"`
}

func CreateAlert(c *gin.Context) {
	userInterface, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	user := userInterface.(models.User)

	var input alertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if input.Title == "" || input.AlertType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and alert type are required"})
		return
	}

	alert := models.MarketAlert{
		UserID:      user.ID,
		Title:       input.Title,
		Description: input.Description,
		AlertType:   input.AlertType,
		MarketID:    input.MarketID,
		ProductID:   input.ProductID,
		IsActive:    input.IsActive,
	}

	if err := utils.SokoniDB.Create(&alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Alert created successfully",
		"alertId": alert.ID,
	})
}

func UpdateAlert(c *gin.Context) {
	userInterface, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	user := userInterface.(models.User)

	var input alertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	res := utils.SokoniDB.Model(&models.MarketAlert{}).
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		Updates(map[string]interface{}{
			"title":       input.Title,
			"description": input.Description,
			"alert_type":  input.AlertType,
			"market_id":   input.MarketID,
			"product_id":  input.ProductID,
			"is_active":   input.IsActive,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert updated successfully"})
}

func DeleteAlert(c *gin.Context) {
	userInterface, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	user := userInterface.(models.User)

	res := utils.SokoniDB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).Delete(&models.MarketAlert{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted successfully"})
}
