package models

import "time"

// MarketProduct is a product stocked by a specific market with its
// local price and availability.
type MarketProduct struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	MarketID      uint      `gorm:"not null;uniqueIndex:idx_market_product" json:"market_id"`
	ProductID     uint      `gorm:"not null;uniqueIndex:idx_market_product" json:"product_id"`
	Price         float64   `gorm:"not null" json:"price"`
	Availability  bool      `gorm:"default:true" json:"availability"`
	StockQuantity int       `gorm:"default:0" json:"stock_quantity"`
	LastUpdated   time.Time `json:"last_updated"`
}
