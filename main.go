package main

import (
	"log"
	"os"
	"time"

	"github.com/KimutaiAsbel/SokoniConnect/handlers/alerts"
	"github.com/KimutaiAsbel/SokoniConnect/handlers/attendance"
	"github.com/KimutaiAsbel/SokoniConnect/handlers/auth"
	"github.com/KimutaiAsbel/SokoniConnect/handlers/markets"
	"github.com/KimutaiAsbel/SokoniConnect/handlers/payments"
	"github.com/KimutaiAsbel/SokoniConnect/handlers/reports"
	"github.com/KimutaiAsbel/SokoniConnect/migrations"
	"github.com/KimutaiAsbel/SokoniConnect/mpesa"
	"github.com/KimutaiAsbel/SokoniConnect/seed"
	"github.com/KimutaiAsbel/SokoniConnect/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env file:", err)
	}
}

func main() {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	utils.ConnectDatabase()

	migrations.MigrateCore()
	migrations.MigratePayments()

	// Seed Initial Data
	if err := seed.SeedDemoData(); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}

	payments.Configure(mpesa.NewClient(mpesa.LoadConfig()), payments.LoadFallbackPolicy())

	api := r.Group("/api")

	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/forgot-password", auth.ForgotPassword)
	api.POST("/auth/reset-password", auth.ResetPassword)

	api.GET("/markets", markets.GetMarkets)
	api.GET("/products", markets.GetProducts)
	api.GET("/market-data", markets.GetMarketData)

	api.POST("/reports/generate", reports.GenerateReport)

	// The gateway delivers results here; it treats any non-200 as a
	// delivery failure, so this route stays unauthenticated.
	api.POST("/payments/mpesa/callback", payments.MpesaCallback)

	protected := api.Group("/")
	protected.Use(auth.AuthMiddleware())
	{
		protected.GET("/alerts", alerts.GetAlerts)
		protected.POST("/alerts", alerts.CreateAlert)
		protected.PUT("/alerts/:id", alerts.UpdateAlert)
		protected.DELETE("/alerts/:id", alerts.DeleteAlert)

		protected.GET("/attendance", attendance.GetAttendance)
		protected.POST("/attendance/checkin", attendance.CheckIn)
		protected.POST("/attendance/checkout", attendance.CheckOut)

		protected.POST("/mpesa/initiate-payment", payments.InitiateMpesaPayment)
		protected.POST("/mpesa/check-payment-status", payments.CheckPaymentStatus)
		protected.GET("/mpesa/payment-history", payments.GetPaymentHistory)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
