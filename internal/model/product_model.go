package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	Id            string  `gorm:"type:varchar(64);primaryKey"`
	Name          string  `gorm:"type:varchar(255);not null"`
	Category      string  `gorm:"type:varchar(128);index"`
	Description   string  `gorm:"type:text"`
	Price         float64 `gorm:"not null;default:0"`
	Currency      string  `gorm:"type:varchar(8);default:'FCFA'"`
	InStock       bool    `gorm:"default:true;index"`
	StockQuantity *int
	ImageUrl      string         `gorm:"type:text"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (Product) TableName() string {
	return "products"
}
