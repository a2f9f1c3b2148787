package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/circulink/internal/config"
	"github.com/iliyamo/circulink/internal/database"
	"github.com/iliyamo/circulink/internal/handler"
	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/mailer"
	"github.com/iliyamo/circulink/internal/queue"
	"github.com/iliyamo/circulink/internal/realtime"
	"github.com/iliyamo/circulink/internal/repository"
	"github.com/iliyamo/circulink/internal/router"
	"github.com/iliyamo/circulink/internal/scheduler"
	"github.com/iliyamo/circulink/internal/service"
	"github.com/iliyamo/circulink/internal/supervisor"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable: rate limiting and caching disabled, pending signups stored in mysql")
	} else {
		defer rdb.Close()
	}

	loc := cfg.Booking.Location()
	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())

	// Realtime: local hub, optionally fronted by the RabbitMQ fanout so
	// every instance delivers to its own sockets.
	hub := realtime.NewHub()
	tree.AddWorker(hub)
	var emitter realtime.Emitter = hub
	var auditPub service.AuditPublisher
	if cfg.AMQP.URL != "" {
		hostname, _ := os.Hostname()
		pub, err := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.AuditQueue, cfg.AMQP.NotifyExchange, hostname, hub)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, notifications stay in-process")
		} else {
			defer pub.Close()
			emitter, auditPub = pub, pub
			tree.AddWorker(pub)
			tree.AddWorker(queue.NewFanoutConsumer(cfg.AMQP.URL, cfg.AMQP.NotifyExchange, hub))
		}
	}

	// Audit sink: MongoDB when configured, JSON lines on disk otherwise.
	var (
		auditSink   service.AuditSink = queue.NewFileSink(cfg.AMQP.AuditLogDir)
		auditReader service.AuditReader
	)
	if cfg.Mongo.URI != "" {
		if client, err := repository.ConnectMongo(ctx, cfg.Mongo.URI); err != nil {
			log.Warn().Err(err).Msg("mongodb unavailable, audit entries go to files")
		} else {
			defer disconnect(client)
			repo := repository.NewAuditRepo(client.Database(cfg.Mongo.Database), cfg.Mongo.Collection)
			if err := repo.EnsureIndexes(ctx); err != nil {
				log.Warn().Err(err).Msg("audit index")
			}
			auditSink, auditReader = repo, repo
		}
	}
	if auditPub != nil {
		tree.AddWorker(queue.NewAuditConsumer(cfg.AMQP.URL, cfg.AMQP.AuditQueue, auditSink))
	}

	users := repository.NewUserRepo(db)
	reservations := repository.NewReservationRepo(db, loc)
	rooms := repository.NewRoomRepo(db)

	pending := pendingStore(db, rdb)
	if p, ok := pending.(service.ExpiredSignupPurger); ok {
		tree.AddWorker(service.SignupPurgeService(p, cfg.OTP.PurgeInterval))
	}

	validator := scheduler.NewValidator(scheduler.Policy{
		MaxDuration:    cfg.Booking.MaxDuration,
		WindowDays:     cfg.Booking.WindowDays,
		WeeklyDayLimit: cfg.Booking.WeeklyDayLimit,
		DailyLimit:     cfg.Booking.DailyLimit,
		Location:       loc,
	}, nil)

	notify := service.NewNotificationService(repository.NewNotificationRepo(db), emitter)
	accounts := service.NewAccountService(users, repository.NewTokenRepo(db), pending,
		mailer.New(cfg.Mail.APIKey, cfg.Mail.From), notify, service.AccountConfig{
			JWTSecret:      cfg.JWTSecret,
			AccessTTL:      time.Duration(cfg.AccessTTLMin) * time.Minute,
			RefreshTTL:     time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
			BcryptCost:     cfg.BcryptCost,
			OTPTTL:         cfg.OTP.TTL,
			OTPMaxAttempts: cfg.OTP.MaxAttempts,
		}, nil)
	sweeper := service.NewSweeper(reservations, nil)
	tree.AddWorker(sweeper.Service(cfg.Booking.SweepInterval))
	audit := service.NewAuditService(auditPub, auditSink, auditReader)

	e := router.New(router.Handlers{
		Auth:          handler.NewAuthHandler(accounts),
		Rooms:         handler.NewRoomHandler(service.NewAvailabilityService(rooms, reservations, loc)),
		Reservations:  handler.NewReservationHandler(service.NewReservationService(reservations, users, rooms, notify, validator, nil)),
		Notifications: handler.NewNotificationHandler(notify),
		Reports:       handler.NewReportHandler(service.NewReportService(repository.NewReportRepo(db), users, notify)),
		Announcements: handler.NewAnnouncementHandler(service.NewAnnouncementService(repository.NewAnnouncementRepo(db), notify, nil)),
		Admin:         handler.NewAdminHandler(accounts, sweeper, audit),
		WS:            handler.NewWSHandler(hub),
	}, router.Options{
		JWTSecret:     cfg.JWTSecret,
		Redis:         rdb,
		DB:            db,
		RateLimit:     config.LoadRateLimitConfig(),
		AuthRateLimit: config.LoadAuthRateLimitConfig(),
		Cache:         config.LoadCacheConfig(),
		Audit:         audit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tree.AddAPI(supervisor.NewHTTPService(srv, 10*time.Second))

	log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Str("timezone", loc.String()).Msg("listening")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("supervisor stopped")
	}
	log.Info().Msg("shut down")
}

// pendingStore prefers Redis, whose keys expire on their own.
func pendingStore(db *sql.DB, rdb *redis.Client) repository.PendingSignupStore {
	if rdb != nil {
		return repository.NewRedisPendingStore(rdb, "circulink:signup:")
	}
	return repository.NewSQLPendingStore(db)
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}
