package specification

import "gorm.io/gorm"

type ByProductID struct {
	ID string
}

func (s ByProductID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// Offerable keeps products that are in stock with a positive or unknown quantity.
type Offerable struct{}

func (s Offerable) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("in_stock = ? AND (stock_quantity IS NULL OR stock_quantity > 0)", true)
}
