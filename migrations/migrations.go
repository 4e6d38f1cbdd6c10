package migrations

import (
	"github.com/KimutaiAsbel/SokoniConnect/models"
	"github.com/KimutaiAsbel/SokoniConnect/utils"
)

func MigrateCore() {
	utils.SokoniDB.AutoMigrate(
		&models.User{},
		&models.Market{},
		&models.Product{},
		&models.MarketProduct{},
		&models.MarketAlert{},
		&models.AttendanceRecord{},
	)
}

func MigratePayments() {
	utils.SokoniDB.AutoMigrate(&models.Payment{})
}
