package repository

import (
	"context"
	"time"

	"github.com/stash-it/backend/internal/model"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	FindOrCreate(ctx context.Context, productID uint64, sellerID, buyerID string) (*model.Conversation, error)
	FindByUser(ctx context.Context, uid string) ([]model.Conversation, error)
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	Touch(ctx context.Context, id uint64, at time.Time) error
	CreateMessage(ctx context.Context, msg *model.Message) error
	FindMessageByID(ctx context.Context, id uint64) (*model.Message, error)
	ListMessages(ctx context.Context, convID uint64) ([]model.Message, error)
	MarkMessageRead(ctx context.Context, messageID uint64, receiverID string) (int64, error)
	MarkConversationRead(ctx context.Context, convID uint64, receiverID string) error
	SetDB(db *gorm.DB)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, productID uint64, sellerID, buyerID string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	cv := model.Conversation{ProductID: productID, SellerID: sellerID, BuyerID: buyerID}
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND buyer_id = ?", productID, buyerID).
		FirstOrCreate(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("seller_id = ? OR buyer_id = ?", uid, uid).
		Order("updated_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).Preload("Product").First(&cv, id).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id uint64, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

func (r *conversationRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *conversationRepository) FindMessageByID(ctx context.Context, id uint64) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Product").
		First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *conversationRepository) ListMessages(ctx context.Context, convID uint64) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkMessageRead flips is_read only when receiverID owns the message.
// The filter doubles as the authorization check: a mismatched caller
// simply affects zero rows.
func (r *conversationRepository) MarkMessageRead(ctx context.Context, messageID uint64, receiverID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ? AND receiver_id = ?", messageID, receiverID).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *conversationRepository) MarkConversationRead(ctx context.Context, convID uint64, receiverID string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", convID, receiverID, false).
		Update("is_read", true).Error
}
