package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/api/routes"
	"github.com/julienlmr/gameshelf-backend/internal/achievements"
	authsvc "github.com/julienlmr/gameshelf-backend/internal/auth"
	"github.com/julienlmr/gameshelf-backend/internal/collection"
	"github.com/julienlmr/gameshelf-backend/internal/friends"
	"github.com/julienlmr/gameshelf-backend/internal/games"
	"github.com/julienlmr/gameshelf-backend/internal/notifications"
	"github.com/julienlmr/gameshelf-backend/internal/prices"
	"github.com/julienlmr/gameshelf-backend/internal/sharetokens"
	"github.com/julienlmr/gameshelf-backend/internal/users"
	"github.com/julienlmr/gameshelf-backend/internal/wishlist"
	"github.com/julienlmr/gameshelf-backend/pkg/auth/session"
	"github.com/julienlmr/gameshelf-backend/pkg/config"
	"github.com/julienlmr/gameshelf-backend/pkg/db"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
	"github.com/julienlmr/gameshelf-backend/pkg/migrate"
	"github.com/julienlmr/gameshelf-backend/pkg/pubsub"
	"github.com/julienlmr/gameshelf-backend/pkg/redis"
)

// sweeperHandle breaks the construction cycle between the notifications
// service (which sweeps achievements before listing) and the achievements
// service (which invalidates notification counts after an unlock).
type sweeperHandle struct {
	svc achievements.Service
}

func (h *sweeperHandle) EvaluateUnlocks(ctx context.Context, userID uuid.UUID) error {
	if h.svc == nil {
		return nil
	}
	return h.svc.EvaluateUnlocks(ctx, userID)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	usersRepo := users.NewRepository(dbClient.DB())
	gamesRepo := games.NewRepository(dbClient.DB())
	collectionRepo := collection.NewRepository(dbClient.DB())
	sharetokensRepo := sharetokens.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	wishlistRepo := wishlist.NewRepository(dbClient.DB())
	friendsRepo := friends.NewRepository(dbClient.DB())
	achievementsRepo := achievements.NewRepository(dbClient.DB())
	pricesRepo := prices.NewRepository(dbClient.DB())

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := authsvc.NewRegisterService(authsvc.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	catalogClient, err := games.NewCatalogClient(cfg.GameAPI)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog client", err)
		os.Exit(1)
	}

	gamesService, err := games.NewService(games.ServiceParams{
		Catalog: catalogClient,
		Repo:    gamesRepo,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create games service", err)
		os.Exit(1)
	}

	priceClient, err := prices.NewPriceClient(cfg.PriceAPI)
	if err != nil {
		logg.Error(context.Background(), "failed to create price client", err)
		os.Exit(1)
	}

	pricesService, err := prices.NewService(prices.ServiceParams{
		Repo:   pricesRepo,
		Games:  gamesRepo,
		Client: priceClient,
		MaxAge: cfg.PriceAPI.SyncMaxAge,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create prices service", err)
		os.Exit(1)
	}

	collectionService, err := collection.NewService(collection.ServiceParams{
		Repo:     collectionRepo,
		Games:    gamesRepo,
		TxRunner: dbClient,
		DismissItemNotifications: func(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
			_, err := notificationsRepo.WithTx(tx).DismissForItem(ctx, itemID, time.Now().UTC())
			return err
		},
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create collection service", err)
		os.Exit(1)
	}

	sharetokensService, err := sharetokens.NewService(sharetokens.ServiceParams{
		Repo:     sharetokensRepo,
		TxRunner: dbClient,
		App:      cfg.App,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create share token service", err)
		os.Exit(1)
	}

	sweeper := &sweeperHandle{}
	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:     notificationsRepo,
		TxRunner: dbClient,
		Sweeper:  sweeper,
		Cache:    redisClient,
		CacheTTL: cfg.Share.UnreadCountTTL,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	friendsService, err := friends.NewService(friends.ServiceParams{
		Repo:        friendsRepo,
		Users:       usersRepo,
		TxRunner:    dbClient,
		Invalidator: notificationsService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create friends service", err)
		os.Exit(1)
	}

	achievementsService, err := achievements.NewService(achievements.ServiceParams{
		Repo:        achievementsRepo,
		Collection:  collectionRepo,
		Friends:     friendsRepo,
		TxRunner:    dbClient,
		Invalidator: notificationsService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create achievements service", err)
		os.Exit(1)
	}
	sweeper.svc = achievementsService

	publisher, err := notifications.NewPublisher(pubsubClient.NotificationPublisher(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification publisher", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:        wishlistRepo,
		Tokens:      sharetokensService,
		Users:       usersRepo,
		TxRunner:    dbClient,
		Publisher:   publisher,
		Invalidator: notificationsService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:          authService,
			Register:      registerService,
			Games:         gamesService,
			Prices:        pricesService,
			Collection:    collectionService,
			Wishlist:      wishlistService,
			ShareTokens:   sharetokensService,
			Notifications: notificationsService,
			Friends:       friendsService,
			Achievements:  achievementsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
