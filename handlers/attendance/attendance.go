package attendance

import (
	"net/http"
	"time"

	"github.com/KimutaiAsbel/SokoniConnect/models"
	"github.com/KimutaiAsbel/SokoniConnect/utils"

	"github.com/gin-gonic/gin"
)

type attendanceRow struct {
	models.AttendanceRecord
	MarketName string `json:"market_name"`
}

func GetAttendance(c *gin.Context) {
	userInterface, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	user := userInterface.(models.User)

	var rows []attendanceRow
	err := utils.SokoniDB.Model(&models.AttendanceRecord{}).
		Select("attendance_records.*, markets.name AS market_name").
		Joins("JOIN markets ON attendance_records.market_id = markets.id").
		Where("attendance_records.user_id = ?", user.ID).
		Order("attendance_records.date DESC, attendance_records.check_in_time DESC").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch attendance"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

type attendanceInput struct {
	MarketID uint `json:"market_id"`
}

func CheckIn(c *gin.Context) {
	userInterface, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	user := userInterface.(models.User)

	var input attendanceInput
	if err := c.ShouldBindJSON(&input); err != nil || input.MarketID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Market is required"})
		return
	}

	now := time.Now()
	date := now.Format("2006-01-02")

	// Reject a second open check-in for the same market and day
	var existing models.AttendanceRecord
	err := utils.SokoniDB.
		Where("user_id = ? AND market_id = ? AND date = ? AND check_out_time IS NULL", user.ID, input.MarketID, date).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Already checked in today"})
		return
	}

	record := models.AttendanceRecord{
		UserID:      user.ID,
		MarketID:    input.MarketID,
		CheckInTime: now,
		Date:        date,
	}

	if err := utils.SokoniDB.Create(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check in"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Checked in successfully",
		"recordId": record.ID,
	})
}

func CheckOut(c *gin.Context) {
	userInterface, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	user := userInterface.(models.User)

	var input attendanceInput
	if err := c.ShouldBindJSON(&input); err != nil || input.MarketID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Market is required"})
		return
	}

	now := time.Now()
	date := now.Format("2006-01-02")

	res := utils.SokoniDB.Model(&models.AttendanceRecord{}).
		Where("user_id = ? AND market_id = ? AND date = ? AND check_out_time IS NULL", user.ID, input.MarketID, date).
		Update("check_out_time", now)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check out"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No active check-in found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Checked out successfully"})
}
