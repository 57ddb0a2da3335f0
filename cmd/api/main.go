package main

import (
	"os"
	"os/signal"
	"syscall"

	"go-dispatch-ws/internal/handler"
	"go-dispatch-ws/internal/middleware"
	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/repository"
	"go-dispatch-ws/internal/service"
	"go-dispatch-ws/internal/ws"
	"go-dispatch-ws/pkg/config"
	"go-dispatch-ws/pkg/database"
	"go-dispatch-ws/pkg/jwt"
	"go-dispatch-ws/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const photoBucket = "products_photos"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DB, log, cfg.App.Env == "development")
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database")
	}

	// 3. Setup realtime hub
	hub := ws.NewHub(log.Named("realtime"))
	go hub.Run()

	// 4. Dependency Injection (Wiring Layers)
	signer := jwt.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())

	productRepo := repository.NewProductRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	userRepo := repository.NewUserRepo(db)
	accountRepo := repository.NewAccountRepo(db)

	productService := service.NewProductService(productRepo, db, hub)
	orderService := service.NewOrderService(orderRepo, productRepo, db, hub)
	userService := service.NewUserService(userRepo, accountRepo, db, hub)
	authService := service.NewAuthService(accountRepo, userRepo, db, signer, hub)
	storageService := service.NewStorageService(cfg.Storage.Dir, cfg.Storage.PublicURL, photoBucket)

	seedAdmin(log, accountRepo, authService)

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: 16 * 1024 * 1024,
	})
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	requireAuth := middleware.RequireAuth(signer, accountRepo)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	products := handler.NewProductHandler(productService)
	orders := handler.NewOrderHandler(orderService)
	users := handler.NewUserHandler(userService)
	auth := handler.NewAuthHandler(authService)
	storage := handler.NewStorageHandler(storageService)
	realtime := handler.NewRealtimeHandler(hub, log.Named("realtime"))

	// ============ AUTH ============
	authGroup := app.Group("/auth/v1")
	authGroup.Post("/token", auth.SignIn)
	authGroup.Post("/signup", requireAuth, adminOnly, auth.SignUp)
	authGroup.Get("/user", requireAuth, auth.CurrentUser)
	authGroup.Post("/logout", requireAuth, auth.SignOut)

	// ============ TABLES ============
	rest := app.Group("/rest/v1", requireAuth)

	rest.Get("/products", products.GetProducts)
	rest.Get("/products/:id", products.GetProduct)
	rest.Post("/products", adminOnly, products.CreateProduct)
	rest.Patch("/products/:id", adminOnly, products.UpdateProduct)
	rest.Delete("/products/:id", adminOnly, products.DeleteProduct)

	rest.Get("/orders", orders.GetOrders)
	rest.Get("/orders/:id", orders.GetOrder)
	rest.Patch("/orders/:id", orders.UpdateOrder) // service restricts dispatchers to completion
	rest.Delete("/orders/:id", adminOnly, orders.DeleteOrder)
	rest.Post("/rpc/place_order", orders.PlaceOrder)

	rest.Get("/users", users.GetUsers)
	rest.Get("/users/:id", users.GetUser)
	rest.Patch("/users/:id", adminOnly, users.UpdateUser)
	rest.Delete("/users/:id", adminOnly, users.DeleteUser)

	// ============ STORAGE ============
	app.Get("/storage/v1/object/public/:bucket/:name", storage.Download)
	app.Post("/storage/v1/object/:bucket/:name", requireAuth, adminOnly, storage.Upload)

	// ============ REALTIME ============
	app.Use("/realtime/v1", realtime.Upgrade, requireAuth)
	app.Get("/realtime/v1", realtime.Serve())

	// 6. Graceful Shutdown
	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	hub.Close()
	if err := app.Shutdown(); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// seedAdmin creates the default admin account on an empty database.
func seedAdmin(log *logger.Logger, accounts repository.AccountRepository, auth service.AuthService) {
	if _, err := accounts.FindByEmail("admin@example.com"); err == nil {
		return
	}
	_, err := auth.SignUp(&model.SignUpRequest{
		Email:    "admin@example.com",
		Password: "admin123",
		Data: model.UserMetadata{
			Role:           model.RoleAdmin,
			FullName:       "Administrator",
			Identification: "0000000000",
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create admin user")
		return
	}
	log.Info().Msg("Admin user created: admin@example.com / admin123")
}
