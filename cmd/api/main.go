package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/stash-it/backend/internal/cache"
	"github.com/stash-it/backend/internal/config"
	"github.com/stash-it/backend/internal/db"
	"github.com/stash-it/backend/internal/model"
	"github.com/stash-it/backend/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	c := cache.New(cfg)
	if err := c.Ping(context.Background()); err != nil {
		log.Printf("redis unreachable, starting without cache: %v", err)
	}

	// Serve /healthz right away; the database is injected once it is
	// reachable and requests fail cleanly until then.
	srv := server.New(nil, cfg, c)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	go func() {
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		if err := conn.AutoMigrate(
			&model.User{},
			&model.Product{},
			&model.Conversation{},
			&model.Message{},
		); err != nil {
			log.Printf("auto migrate error: %v", err)
		}
		srv.SetDB(conn)
	}()

	if err := <-errCh; err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
