package service

import (
	"context"
	"errors"
	"strings"

	"github.com/stash-it/backend/internal/cache"
	"github.com/stash-it/backend/internal/model"
	"github.com/stash-it/backend/internal/repository"
	"gorm.io/gorm"
)

type ProductService interface {
	Create(ctx context.Context, sellerID, title, description string, price uint, category string, imageURL *string) (*model.Product, error)
	Get(ctx context.Context, id uint64) (*model.Product, error)
	List(ctx context.Context, f repository.ProductFilter, limit, offset int) ([]model.Product, int64, error)
	Update(ctx context.Context, id uint64, sellerID, title, description string, price uint, category string, sold bool) (*model.Product, error)
	Delete(ctx context.Context, id uint64, sellerID string) error
}

type productService struct {
	repo  repository.ProductRepository
	cache *cache.Cache
}

func NewProductService(repo repository.ProductRepository, c *cache.Cache) ProductService {
	return &productService{repo: repo, cache: c}
}

func (s *productService) Create(ctx context.Context, sellerID, title, description string, price uint, category string, imageURL *string) (*model.Product, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || len(title) > 120 {
		return nil, errors.New("invalid title")
	}
	if description == "" {
		return nil, errors.New("invalid description")
	}
	if imageURL != nil && strings.HasPrefix(strings.TrimSpace(*imageURL), "data:") {
		return nil, errors.New("imageUrl must be a URL, not data URI")
	}

	p := &model.Product{
		SellerID:    sellerID,
		Title:       title,
		Description: description,
		Price:       price,
		Category:    strings.TrimSpace(category),
		ImageURL:    imageURL,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) Get(ctx context.Context, id uint64) (*model.Product, error) {
	if p, ok := s.cache.GetProduct(ctx, id); ok {
		return p, nil
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.cache.SetProduct(ctx, p)
	return p, nil
}

func (s *productService) List(ctx context.Context, f repository.ProductFilter, limit, offset int) ([]model.Product, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	return s.repo.List(ctx, f, limit, offset)
}

func (s *productService) Update(ctx context.Context, id uint64, sellerID, title, description string, price uint, category string, sold bool) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" || len(title) > 120 {
		return nil, errors.New("invalid title")
	}
	p.Title = title
	p.Description = strings.TrimSpace(description)
	p.Price = price
	p.Category = strings.TrimSpace(category)
	p.Sold = sold
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.cache.InvalidateProduct(ctx, id)
	return p, nil
}

func (s *productService) Delete(ctx context.Context, id uint64, sellerID string) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if p.SellerID != sellerID {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateProduct(ctx, id)
	return nil
}
