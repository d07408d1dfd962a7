package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/meinhoongagan/referencias-locales/config"
	"github.com/meinhoongagan/referencias-locales/controllers"
	"github.com/meinhoongagan/referencias-locales/cron"
	"github.com/meinhoongagan/referencias-locales/db"
	"github.com/meinhoongagan/referencias-locales/logger"
	"github.com/meinhoongagan/referencias-locales/notify"
	"github.com/meinhoongagan/referencias-locales/payments"
	"github.com/meinhoongagan/referencias-locales/redis"
	"github.com/meinhoongagan/referencias-locales/routes"
	"github.com/meinhoongagan/referencias-locales/setuptoken"
	"github.com/meinhoongagan/referencias-locales/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	gdb, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()

	if cfg.AutoMigrate {
		if err := db.Migrate(gdb); err != nil {
			return err
		}
		log.Info("database migrated")
	}
	if cfg.SeedOnStart {
		if err := db.SeedCategories(gdb, log); err != nil {
			return err
		}
		if err := db.BackfillSlugs(gdb, log); err != nil {
			return err
		}
	}

	var (
		tokens      setuptoken.Registry
		memoryStore *setuptoken.MemoryStore
	)
	if cfg.RedisAddr != "" {
		client, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		tokens = setuptoken.NewRedisStore(client)
		log.Info("setup tokens stored in redis", zap.String("addr", cfg.RedisAddr))
	} else {
		memoryStore = setuptoken.NewMemoryStore()
		tokens = memoryStore
		log.Info("setup tokens stored in memory")
	}

	var sender notify.Sender = notify.LogSender{Log: log}
	if cfg.MailEnabled() {
		sender = utils.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass)
	} else {
		log.Warn("SMTP_HOST not set, emails are logged instead of sent")
	}

	var uploader controllers.Uploader
	if cfg.CloudinaryEnabled() {
		cld, err := utils.NewCloudinaryUploader(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret, cfg.CloudinaryUploadPreset)
		if err != nil {
			return err
		}
		uploader = cld
	} else {
		log.Warn("Cloudinary not configured, uploads are disabled")
	}

	var intents payments.IntentCreator
	if cfg.StripeEnabled() {
		intents = payments.NewStripeClient(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, checkout is disabled")
	}
	pay := payments.NewService(gdb, intents, cfg.StripeWebhookSecret, cfg.StripeCurrency, log)

	h := controllers.New(gdb, log, tokens, pay, uploader, cfg.JWTSecret, cfg.BcryptCost)

	app := fiber.New(fiber.Config{
		AppName:      "referencias-locales",
		ErrorHandler: utils.ErrorHandler(log),
		BodyLimit:    6 << 20,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
	}))
	app.Use(logger.Middleware(log))
	routes.Setup(app, h)

	scheduler, err := cron.StartCronJobs(&cron.Jobs{
		DB:         gdb,
		Dispatcher: notify.NewDispatcher(gdb, sender, log, cfg.NotifyMaxAttempts),
		Tokens:     memoryStore,
		Log:        log,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		<-scheduler.Stop().Done()
		return err
	case s := <-sig:
		log.Info("shutting down", zap.String("signal", s.String()))
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	// Wait for a running dispatch pass to finish.
	<-scheduler.Stop().Done()
	return nil
}
