package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stash-it/backend/internal/cache"
	"github.com/stash-it/backend/internal/config"
	"github.com/stash-it/backend/internal/handler"
	appmw "github.com/stash-it/backend/internal/middleware"
	"github.com/stash-it/backend/internal/realtime"
	"github.com/stash-it/backend/internal/repository"
	"github.com/stash-it/backend/internal/service"
	"gorm.io/gorm"
)

type Server struct {
	e           *echo.Echo
	hub         *realtime.Hub
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	convRepo    repository.ConversationRepository
}

func New(db *gorm.DB, cfg *config.Config, cc *cache.Cache) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			if strings.HasSuffix(u.Hostname(), "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	convRepo := repository.NewConversationRepository(db)

	authSvc := service.NewAuthService(userRepo, cc, cfg.JWTSecret, cfg.TokenTTL)
	userSvc := service.NewUserService(userRepo)
	productSvc := service.NewProductService(productRepo, cc)
	chatSvc := service.NewChatService(convRepo, productRepo)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	productHandler := handler.NewProductHandler(productSvc)
	convHandler := handler.NewConversationHandler(chatSvc)

	authMw := appmw.NewAuthMiddleware(authSvc)
	hub := realtime.NewHub()

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})

	e.GET("/ws", realtime.ServeWS(hub, authSvc, chatSvc))

	api := e.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout, authMw.RequireAuth)

	api.GET("/me", userHandler.Me, authMw.RequireAuth)
	api.PUT("/me", userHandler.UpdateMe, authMw.RequireAuth)
	api.GET("/me/products", productHandler.ListMine, authMw.RequireAuth)
	api.GET("/users/:id/public", userHandler.GetPublic)

	api.GET("/products", productHandler.List)
	api.GET("/products/:id", productHandler.Get)
	api.POST("/products", productHandler.Create, authMw.RequireAuth)
	api.PUT("/products/:id", productHandler.Update, authMw.RequireAuth)
	api.DELETE("/products/:id", productHandler.Delete, authMw.RequireAuth)
	api.POST("/products/:id/conversations", convHandler.CreateFromProduct, authMw.RequireAuth)

	// Presence is process-local and best-effort; a restart empties it.
	api.GET("/presence/online", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string][]string{"online": hub.ListOnline()})
	}, authMw.RequireAuth)
	api.GET("/presence/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"online": hub.IsOnline(c.Param("id"))})
	}, authMw.RequireAuth)

	api.GET("/conversations", convHandler.List, authMw.RequireAuth)
	api.GET("/conversations/:id", convHandler.Get, authMw.RequireAuth)
	api.GET("/conversations/:id/messages", convHandler.ListMessages, authMw.RequireAuth)
	api.POST("/conversations/:id/messages", convHandler.CreateMessage, authMw.RequireAuth)
	api.POST("/conversations/:id/read", convHandler.MarkRead, authMw.RequireAuth)

	return &Server{
		e:           e,
		hub:         hub,
		userRepo:    userRepo,
		productRepo: productRepo,
		convRepo:    convRepo,
	}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// SetDB injects a late database connection; the process comes up and
// serves /healthz before the DB is reachable.
func (s *Server) SetDB(db *gorm.DB) {
	if s.userRepo != nil {
		s.userRepo.SetDB(db)
	}
	if s.productRepo != nil {
		s.productRepo.SetDB(db)
	}
	if s.convRepo != nil {
		s.convRepo.SetDB(db)
	}
}
