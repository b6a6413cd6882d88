package model

import "time"

type Product struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    string    `gorm:"column:seller_id;size:64;index" json:"sellerId"`
	Title       string    `gorm:"size:120;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Price       uint      `gorm:"not null" json:"price"`
	Category    string    `gorm:"size:64;index" json:"category"`
	ImageURL    *string   `gorm:"size:512" json:"imageUrl"`
	Sold        bool      `gorm:"default:false" json:"sold"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}
