package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/stash-it/backend/internal/model"
	"github.com/stash-it/backend/internal/repository"
	"gorm.io/gorm"
)

type ChatService interface {
	CreateOrGet(ctx context.Context, productID uint64, buyerID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, uid string) ([]model.Conversation, error)
	Get(ctx context.Context, convID uint64, uid string) (*model.Conversation, error)
	ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error)
	SendMessage(ctx context.Context, convID uint64, senderID, content string) (*model.Message, error)
	MarkRead(ctx context.Context, messageID uint64, uid string) (*model.Message, error)
	MarkConversationRead(ctx context.Context, convID uint64, uid string) error
}

type chatService struct {
	convRepo    repository.ConversationRepository
	productRepo repository.ProductRepository
}

func NewChatService(convRepo repository.ConversationRepository, productRepo repository.ProductRepository) ChatService {
	return &chatService{convRepo: convRepo, productRepo: productRepo}
}

func (s *chatService) CreateOrGet(ctx context.Context, productID uint64, buyerID string) (*model.Conversation, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.SellerID == "" {
		return nil, errors.New("product has no seller")
	}
	if p.SellerID == buyerID {
		return nil, errors.New("cannot chat with yourself")
	}
	return s.convRepo.FindOrCreate(ctx, productID, p.SellerID, buyerID)
}

func (s *chatService) ListByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	return s.convRepo.FindByUser(ctx, uid)
}

func (s *chatService) Get(ctx context.Context, convID uint64, uid string) (*model.Conversation, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !cv.Participant(uid) {
		return nil, ErrForbidden
	}
	return cv, nil
}

func (s *chatService) ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error) {
	if _, err := s.Get(ctx, convID, uid); err != nil {
		return nil, err
	}
	return s.convRepo.ListMessages(ctx, convID)
}

// SendMessage runs the delivery pipeline up to and including persistence.
// The receiver is always the other participant, and the stored product id
// always comes from the conversation record, never from the caller. The
// returned message carries preloaded sender/receiver/product rows for
// fan-out; the conversation touch after a successful write is best-effort.
func (s *chatService) SendMessage(ctx context.Context, convID uint64, senderID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidContent
	}

	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !cv.Participant(senderID) {
		return nil, ErrNotFound
	}

	msg := &model.Message{
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     cv.Other(senderID),
		ProductID:      cv.ProductID,
		Content:        content,
	}
	if err := s.convRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.convRepo.Touch(ctx, convID, time.Now()); err != nil {
		log.Printf("touch conversation %d: %v", convID, err)
	}

	hydrated, err := s.convRepo.FindMessageByID(ctx, msg.ID)
	if err != nil {
		// The write succeeded; fan out the unhydrated record rather
		// than reporting a failure the sender cannot act on.
		log.Printf("hydrate message %d: %v", msg.ID, err)
		return msg, nil
	}
	return hydrated, nil
}

// MarkRead flips the read flag when uid is the message's receiver. A
// message that does not exist or belongs to someone else affects zero
// rows and returns (nil, nil): callers must not be able to probe for
// other users' messages. On a real flip the hydrated message comes back
// so the caller can notify the original sender.
func (s *chatService) MarkRead(ctx context.Context, messageID uint64, uid string) (*model.Message, error) {
	rows, err := s.convRepo.MarkMessageRead(ctx, messageID, uid)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, nil
	}
	msg, err := s.convRepo.FindMessageByID(ctx, messageID)
	if err != nil {
		log.Printf("hydrate read message %d: %v", messageID, err)
		return nil, nil
	}
	return msg, nil
}

func (s *chatService) MarkConversationRead(ctx context.Context, convID uint64, uid string) error {
	if _, err := s.Get(ctx, convID, uid); err != nil {
		return err
	}
	return s.convRepo.MarkConversationRead(ctx, convID, uid)
}
