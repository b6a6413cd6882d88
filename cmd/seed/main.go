package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stash-it/backend/internal/config"
	"github.com/stash-it/backend/internal/db"
	"github.com/stash-it/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type seedProduct struct {
	Title       string
	Description string
	Price       uint
	Category    string
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := gdb.AutoMigrate(&model.User{}, &model.Product{}, &model.Conversation{}, &model.Message{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	var count int64
	if err := gdb.WithContext(ctx).Model(&model.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if count > 0 && os.Getenv("FORCE_SEED") != "true" {
		log.Printf("products already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	sellers := make([]model.User, 0, 3)
	for i, name := range []string{"Ava Martin", "Ben Okafor", "Chloe Park"} {
		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u := model.User{
			ID:           uuid.NewString(),
			Name:         name,
			Email:        fmt.Sprintf("seller%d@campus.edu", i+1),
			PasswordHash: string(hash),
			College:      "State College",
		}
		if err := gdb.WithContext(ctx).Create(&u).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		sellers = append(sellers, u)
	}

	products := buildSeedProducts()
	for i, sp := range products {
		p := model.Product{
			SellerID:    sellers[i%len(sellers)].ID,
			Title:       sp.Title,
			Description: sp.Description,
			Price:       sp.Price,
			Category:    sp.Category,
		}
		if err := gdb.WithContext(ctx).Create(&p).Error; err != nil {
			return fmt.Errorf("create product: %w", err)
		}
	}

	log.Printf("seeded %d users and %d products", len(sellers), len(products))
	return nil
}

func buildSeedProducts() []seedProduct {
	return []seedProduct{
		{"Calculus textbook, 8th edition", "Lightly used, no highlights past chapter 4.", 35, "textbooks"},
		{"Mini fridge", "Fits under a lofted bed. Pickup only.", 60, "dorm"},
		{"TI-84 calculator", "Works fine, battery cover a bit loose.", 45, "electronics"},
		{"Desk lamp with USB port", "Warm and cool settings.", 15, "dorm"},
		{"Organic chemistry model kit", "Complete set, box included.", 20, "textbooks"},
		{"Mountain bike", "Rides well, recently tuned. Lock included.", 140, "sports"},
		{"Noise cancelling headphones", "Over-ear, comes with case and cable.", 80, "electronics"},
		{"Futon couch", "Folds flat, some wear on the armrest.", 55, "dorm"},
		{"Intro to Psychology bundle", "Textbook plus study guide.", 28, "textbooks"},
		{"Yoga mat and blocks", "Barely used.", 18, "sports"},
	}
}
