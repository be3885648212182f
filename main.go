package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/pflag"

	"github.com/meinhoongagan/homeservice-app/account"
	"github.com/meinhoongagan/homeservice-app/booking"
	"github.com/meinhoongagan/homeservice-app/catalog"
	"github.com/meinhoongagan/homeservice-app/config"
	"github.com/meinhoongagan/homeservice-app/controllers"
	"github.com/meinhoongagan/homeservice-app/cron"
	"github.com/meinhoongagan/homeservice-app/db"
	"github.com/meinhoongagan/homeservice-app/events"
	"github.com/meinhoongagan/homeservice-app/messaging"
	"github.com/meinhoongagan/homeservice-app/middleware"
	"github.com/meinhoongagan/homeservice-app/redis"
	"github.com/meinhoongagan/homeservice-app/routes"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/store"
	"github.com/meinhoongagan/homeservice-app/utils"
)

func main() {
	cfg := config.Load()

	migrate := pflag.Bool("migrate", false, "create the document table and exit")
	port := pflag.String("port", cfg.Port, "HTTP listen port")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		notifier store.Notifier = store.NewBroadcaster()
		sessions session.Store  = session.NewMemoryStore()
	)
	if cfg.RedisEnabled() {
		client, err := redis.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Redis init failed: %v", err)
		}
		defer client.Close()
		relay := store.NewRedisNotifier(client)
		go relay.Run(ctx)
		notifier = relay
		sessions = session.NewRedisStore(client)
	}

	docs, err := openStore(cfg, notifier, *migrate)
	if err != nil {
		log.Fatal(err)
	}
	if docs == nil {
		return
	}

	loading := &store.Loading{}
	docs = store.Tracked(docs, loading)

	var publisher events.Publisher = events.Noop{}
	if cfg.KafkaEnabled() {
		publisher = events.NewKafkaProducer(cfg.KafkaBroker, cfg.KafkaTopic)
	}
	defer publisher.Close()

	var mailer utils.Mailer = utils.LogMailer{}
	if cfg.MailEnabled() {
		mailer = utils.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass)
	}

	var uploader utils.Uploader = utils.NoUploader{}
	if cfg.UploadEnabled() {
		cld, err := utils.NewCloudinaryUploader(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret, cfg.CloudinaryUploadPreset)
		if err != nil {
			log.Fatalf("Cloudinary init failed: %v", err)
		}
		uploader = cld
	}

	tokens := account.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	accounts := account.NewService(docs, sessions, tokens, uploader)
	bookings := booking.NewService(docs, publisher, mailer)
	defer bookings.Close()
	services := catalog.New(docs)
	channel := messaging.NewChannel(docs)

	scheduler, err := cron.StartCronJobs(cfg.ReminderSchedule, bookings)
	if err != nil {
		log.Fatalf("Cron init failed: %v", err)
	}
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{AppName: "homeservice-app"})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Hello, World!")
	})
	app.Get("/health", controllers.Health(loading))

	protected := middleware.Protected(tokens, sessions)
	routes.SetupAuthRoutes(app, controllers.NewAuthController(accounts), protected)
	routes.SetupServiceRoutes(app, controllers.NewCatalogController(services), protected)
	routes.SetupBookingRoutes(app, controllers.NewBookingController(bookings), protected)
	routes.SetupMessageRoutes(app, controllers.NewMessageController(channel), protected)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", *port)
	if err := app.Listen(":" + *port); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}

// openStore opens the configured document store. With migrate set it only
// prepares the schema and returns a nil store.
func openStore(cfg *config.Config, notifier store.Notifier, migrate bool) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		if migrate {
			log.Println("Nothing to migrate: STORE_DRIVER is memory")
			return nil, nil
		}
		log.Println("Using in-memory document store, data is lost on exit")
		return store.NewMemory(notifier), nil
	case "postgres":
		conn, err := db.Init(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db init failed: %w", err)
		}
		if migrate {
			if err := db.Migrate(); err != nil {
				return nil, fmt.Errorf("migration failed: %w", err)
			}
			return nil, nil
		}
		return store.NewPostgres(conn, notifier), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
