package model

import "time"

type Conversation struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint64    `gorm:"column:product_id;index:idx_product_buyer,unique" json:"productId"`
	SellerID  string    `gorm:"column:seller_id;size:64;index" json:"sellerId"`
	BuyerID   string    `gorm:"column:buyer_id;size:64;index:idx_product_buyer,unique" json:"buyerId"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Participant reports whether uid is one of the two sides of the conversation.
func (c *Conversation) Participant(uid string) bool {
	return uid != "" && (c.SellerID == uid || c.BuyerID == uid)
}

// Other returns the participant that is not uid.
func (c *Conversation) Other(uid string) string {
	if c.BuyerID == uid {
		return c.SellerID
	}
	return c.BuyerID
}
