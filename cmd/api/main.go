package main

import (
	"context"
	"log"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/db"
	"github.com/rewear-app/rewear-api/internal/services/auth"
	"github.com/rewear-app/rewear-api/internal/services/cloudinary"
	"github.com/rewear-app/rewear-api/internal/services/email"
	"github.com/rewear-app/rewear-api/internal/services/favorite"
	"github.com/rewear-app/rewear-api/internal/services/item"
	"github.com/rewear-app/rewear-api/internal/services/points"
	swapservice "github.com/rewear-app/rewear-api/internal/services/swap"
	"github.com/rewear-app/rewear-api/internal/services/user"
	"github.com/rewear-app/rewear-api/internal/utils"
	ws "github.com/rewear-app/rewear-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	// Менеджер WebSocket-соединений
	manager := ws.NewManager()
	defer manager.Shutdown()

	// При наличии Redis события комнат транслируются между инстансами
	var dispatcher ws.Dispatcher = manager
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Неверный REDIS_URL: %v", err)
		}
		bridge := ws.NewRedisBridge(manager, redis.NewClient(opts))
		go bridge.Start(context.Background())
		dispatcher = bridge
	}

	// Почтовые уведомления (best-effort)
	emailService := email.NewService(cfg)

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "ReWear API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём сервисы
	authService := auth.NewAuthService(cfg)
	userService := user.NewUserService(cfg)
	itemService := item.NewItemService(cfg, dispatcher)
	swapService := swapservice.NewSwapService(cfg, dispatcher, emailService)
	pointsService := points.NewPointsService(cfg, dispatcher)
	favoriteService := favorite.NewFavoriteService(cfg)
	cloudinaryService := cloudinary.NewCloudinaryService(cfg)

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	userService.SetupRoutes(app)
	itemService.SetupRoutes(app)
	swapService.SetupRoutes(app)
	pointsService.SetupRoutes(app)
	favoriteService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)

	// Маршрут WebSocket-подключений
	setupWebSocket(app, cfg, manager)

	// Запускаем сервер
	log.Printf("✅ ReWear API запущен на порту %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// setupWebSocket регистрирует маршрут реального времени.
// Токен передаётся в query-параметре: браузерный WebSocket API
// не позволяет выставить заголовок Authorization.
func setupWebSocket(app *fiber.App, cfg *config.Config, manager *ws.Manager) {
	jwtService := utils.NewJWTService(cfg.JWTSecret)

	upgrader := fastws.FastHTTPUpgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(_ *fasthttp.RequestCtx) bool { return true },
	}

	app.Get("/ws", func(c fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Токен не указан"})
		}

		userID, err := jwtService.ExtractUserID(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Недействительный токен"})
		}

		err = upgrader.Upgrade(c.RequestCtx(), func(conn *fastws.Conn) {
			client := ws.NewClient(userID, conn, manager)
			client.Run()
		})
		if err != nil {
			log.Printf("Ошибка обновления соединения до WebSocket: %v", err)
			return fiber.ErrUpgradeRequired
		}
		return nil
	})
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
