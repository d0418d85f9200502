package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/slms/leave-service/internal/config"
	"github.com/slms/leave-service/internal/database"
	"github.com/slms/leave-service/internal/handler"
	"github.com/slms/leave-service/internal/logging"
	"github.com/slms/leave-service/internal/mail"
	"github.com/slms/leave-service/internal/middleware"
	"github.com/slms/leave-service/internal/queue"
	"github.com/slms/leave-service/internal/repository"
	"github.com/slms/leave-service/internal/router"
	"github.com/slms/leave-service/internal/service"
	"github.com/slms/leave-service/internal/session"
	"github.com/slms/leave-service/internal/upload"
	"github.com/slms/leave-service/internal/utils"
	"github.com/slms/leave-service/internal/validation"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database open failed")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	sessions := sessionStore(ctx, cfg, rdb, log)

	users := repository.NewUserRepo(db)
	departments := repository.NewDepartmentRepo(db)
	leaves := repository.NewLeaveRepo(db)
	tokens := repository.NewTokenRepo(db)

	signer := utils.NewTokenSigner(cfg.JWTSecret)
	hasher := utils.NewHasher(cfg.BcryptCost)
	publisher := queue.NewPublisher(cfg.RabbitURL, log.WithField("component", "mail-publisher"))

	leaveSvc := service.NewLeaveService(leaves)
	userSvc := service.NewUserService(users, departments, leaveSvc, sessions, hasher, publisher, cfg.SessionTTL, log)
	authSvc := service.NewAuthService(userSvc, users, tokens, sessions, signer, hasher, publisher, service.AuthConfig{
		SessionTTL:    cfg.SessionTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		FrontEndURL:   cfg.FrontEndURL,
	}, log)
	deptSvc := service.NewDepartmentService(departments, users)

	if err := userSvc.EnsureAdmin(ctx, cfg.Admin); err != nil {
		log.WithError(err).Fatal("admin seed failed")
	}

	if cfg.MailConsumer {
		sender := mail.NewSender(cfg.SMTP, log.WithField("component", "mail-sender"))
		consumer := queue.NewConsumer(cfg.RabbitURL, sender.Deliver, log.WithField("component", "mail-consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("mail consumer stopped")
			}
		}()
	}
	go purgeResetTokens(ctx, tokens, time.Hour, log)

	uploader := imageUploader(ctx, cfg.S3, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = handler.ErrorHandler(cfg.IsProduction(), log)
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("4M"))

	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc, userSvc, uploader),
		Users:       handler.NewUserHandler(userSvc, uploader),
		Departments: handler.NewDepartmentHandler(deptSvc),
		Leaves:      handler.NewLeaveHandler(leaveSvc),
		Health:      handler.Health(db),
		Guard:       middleware.NewGuard(signer, sessions, log),
		Limiter:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:       middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log),
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

// sessionStore picks the session backend.  Redis is used only when asked
// for and reachable; otherwise sessions live in this process.
func sessionStore(ctx context.Context, cfg config.Config, rdb *redis.Client, log logrus.FieldLogger) session.Store {
	if cfg.SessionBackend == "redis" {
		if rdb != nil {
			return session.NewRedisStore(rdb, "")
		}
		log.Warn("SESSION_BACKEND=redis but redis is unavailable, using memory")
	}
	mem := session.NewMemoryStore()
	go mem.RunSweeper(ctx, time.Minute)
	return mem
}

// imageUploader returns nil when uploads are disabled or S3 cannot be
// configured; profile images are then rejected.
func imageUploader(ctx context.Context, cfg config.S3Config, log logrus.FieldLogger) handler.Uploader {
	if !cfg.Enabled {
		return nil
	}
	up, err := upload.NewS3Uploader(ctx, cfg, log.WithField("component", "uploader"))
	if err != nil {
		log.WithError(err).Warn("s3 uploader disabled")
		return nil
	}
	return up
}

type tokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func purgeResetTokens(ctx context.Context, tokens tokenPurger, every time.Duration, log logrus.FieldLogger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := tokens.DeleteExpired(ctx, now.UTC())
			if err != nil {
				log.WithError(err).Warn("reset token purge failed")
				continue
			}
			if n > 0 {
				log.WithField("deleted", n).Debug("expired reset tokens purged")
			}
		}
	}
}
