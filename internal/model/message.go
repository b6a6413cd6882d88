package model

import "time"

type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64    `gorm:"column:conversation_id;index" json:"conversationId"`
	SenderID       string    `gorm:"column:sender_id;size:64;index" json:"senderId"`
	ReceiverID     string    `gorm:"column:receiver_id;size:64;index" json:"receiverId"`
	ProductID      uint64    `gorm:"column:product_id;index" json:"productId"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsRead         bool      `gorm:"column:is_read;default:false" json:"isRead"`
	Sender         *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver       *User     `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
	Product        *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
