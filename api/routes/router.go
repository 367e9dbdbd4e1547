package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/julienlmr/gameshelf-backend/api/controllers"
	"github.com/julienlmr/gameshelf-backend/api/middleware"
	achievementsvc "github.com/julienlmr/gameshelf-backend/internal/achievements"
	authsvc "github.com/julienlmr/gameshelf-backend/internal/auth"
	collectionsvc "github.com/julienlmr/gameshelf-backend/internal/collection"
	friendsvc "github.com/julienlmr/gameshelf-backend/internal/friends"
	gamessvc "github.com/julienlmr/gameshelf-backend/internal/games"
	notificationsvc "github.com/julienlmr/gameshelf-backend/internal/notifications"
	pricessvc "github.com/julienlmr/gameshelf-backend/internal/prices"
	sharesvc "github.com/julienlmr/gameshelf-backend/internal/sharetokens"
	wishlistsvc "github.com/julienlmr/gameshelf-backend/internal/wishlist"
	"github.com/julienlmr/gameshelf-backend/pkg/auth/session"
	"github.com/julienlmr/gameshelf-backend/pkg/config"
	"github.com/julienlmr/gameshelf-backend/pkg/db"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
	"github.com/julienlmr/gameshelf-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth          authsvc.Service
	Register      authsvc.RegisterService
	Games         gamessvc.Service
	Prices        pricessvc.Service
	Collection    collectionsvc.Service
	Wishlist      wishlistsvc.Service
	ShareTokens   sharesvc.Service
	Notifications notificationsvc.Service
	Friends       friendsvc.Service
	Achievements  achievementsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.Register(svcs.Register, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(svcs.Auth, logg))
		r.Post("/refresh", controllers.Refresh(svcs.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.Logout(svcs.Auth, logg))
	})

	// Anonymous share surface, throttled per IP and per token.
	r.Route("/api/public/wishlist/{token}", func(r chi.Router) {
		r.Use(middleware.ShareRateLimit(cfg.Share, redisClient, logg))
		r.Get("/", controllers.SharedWishlist(svcs.Wishlist, logg))
		r.Post("/buy", controllers.WishlistBuy(svcs.Wishlist, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Route("/games", func(r chi.Router) {
			r.Get("/search", controllers.GameSearch(svcs.Games, logg))
			r.Get("/{gameID}", controllers.GameGet(svcs.Games, logg))
			r.Get("/{gameID}/price", controllers.GamePrice(svcs.Prices, logg))
		})

		r.Route("/collection", func(r chi.Router) {
			r.Get("/", controllers.CollectionList(svcs.Collection, logg))
			r.Post("/", controllers.CollectionAdd(svcs.Collection, logg))
			r.Get("/{itemID}", controllers.CollectionGet(svcs.Collection, logg))
			r.Patch("/{itemID}", controllers.CollectionUpdate(svcs.Collection, logg))
			r.Delete("/{itemID}", controllers.CollectionRemove(svcs.Collection, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Post("/buy", controllers.WishlistBuyAsOwner(svcs.Wishlist, logg))
			r.Route("/share", func(r chi.Router) {
				r.Get("/", controllers.ShareCurrent(svcs.ShareTokens, logg))
				r.Post("/", controllers.ShareRotate(svcs.ShareTokens, logg))
				r.Post("/toggle", controllers.ShareToggle(svcs.ShareTokens, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.NotificationUnreadCount(svcs.Notifications, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(svcs.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.NotificationMarkRead(svcs.Notifications, logg))
			r.Post("/{notificationID}/dismiss", controllers.NotificationDismiss(svcs.Notifications, logg))
			r.Patch("/{notificationID}/validate", controllers.PurchaseValidate(svcs.Wishlist, logg))
			r.Patch("/{notificationID}/refuse", controllers.PurchaseRefuse(svcs.Wishlist, logg))
		})

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", controllers.FriendList(svcs.Friends, logg))
			r.Post("/", controllers.FriendRequest(svcs.Friends, logg))
			r.Patch("/{friendshipID}/accept", controllers.FriendAccept(svcs.Friends, logg))
			r.Delete("/{friendshipID}", controllers.FriendRemove(svcs.Friends, logg))
		})

		r.Get("/achievements", controllers.AchievementList(svcs.Achievements, logg))
	})

	return r
}
