package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/jkhalligan/gala-ticket-platform/api/controllers"
	webhookcontrollers "github.com/jkhalligan/gala-ticket-platform/api/controllers/webhooks"
	"github.com/jkhalligan/gala-ticket-platform/api/middleware"
	"github.com/jkhalligan/gala-ticket-platform/internal/audit"
	"github.com/jkhalligan/gala-ticket-platform/internal/events"
	"github.com/jkhalligan/gala-ticket-platform/internal/export"
	"github.com/jkhalligan/gala-ticket-platform/internal/guests"
	"github.com/jkhalligan/gala-ticket-platform/internal/orders"
	"github.com/jkhalligan/gala-ticket-platform/internal/promos"
	"github.com/jkhalligan/gala-ticket-platform/internal/tables"
	"github.com/jkhalligan/gala-ticket-platform/pkg/config"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/metrics"
	"github.com/jkhalligan/gala-ticket-platform/pkg/redis"
	"github.com/jkhalligan/gala-ticket-platform/pkg/square"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger, cachePinger controllers.Pinger,
	redisClient *redis.Client,
	squareClient *square.Client,
	eventsService events.Service,
	tablesService tables.Service,
	guestsService guests.Service,
	ordersService orders.Service,
	promosService promos.Service,
	exportService export.Service,
	webhookService webhookcontrollers.PaymentsWebhookService,
	checkoutMetrics *metrics.CheckoutMetrics,
	auditRec *audit.Recorder,
	gormDB *gorm.DB,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, cachePinger))
	})

	r.Handle("/metrics", promhttp.Handler())

	// A typed nil would satisfy the handler's interface check, so only a
	// live gateway client is handed through.
	var signingClient interface{ SigningSecret() string }
	if squareClient != nil {
		signingClient = squareClient
	}
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.SquareWebhook(webhookService, signingClient, logg))
	})

	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		idemStore = redisClient
	}

	// Payment links are token-authenticated and reachable without a session.
	r.Route("/api/public/v1/invitations", func(r chi.Router) {
		r.Use(middleware.PublicRateLimit("invite", cfg.RateLimit, redisClient, logg))
		r.Use(middleware.Idempotency(idemStore, logg))
		r.Get("/{token}", controllers.InvitationAccess(ordersService, logg))
		r.Post("/{token}/pay", controllers.InvitationPay(ordersService, checkoutMetrics, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/v1/events", func(r chi.Router) {
			r.Get("/", controllers.EventList(eventsService, logg))
			r.Get("/{eventId}", controllers.EventGet(eventsService, logg))
			r.Get("/{eventId}/products", controllers.ProductList(eventsService, logg))
			r.Get("/{eventId}/tables", controllers.TableList(tablesService, logg))
			r.Get("/{eventId}/promos/validate", controllers.PromoValidate(promosService, logg))
		})

		r.Route("/v1/tables", func(r chi.Router) {
			r.Post("/", controllers.TableCreate(tablesService, logg))
			r.Get("/{tableId}", controllers.TableGet(tablesService, logg))
			r.Patch("/{tableId}", controllers.TableUpdate(tablesService, logg))
			r.Delete("/{tableId}", controllers.TableDelete(tablesService, logg))
			r.Route("/{tableId}/roles", func(r chi.Router) {
				r.Get("/", controllers.RoleList(tablesService, logg))
				r.Post("/", controllers.RoleGrant(tablesService, logg))
				r.Delete("/{userId}", controllers.RoleRevoke(tablesService, logg))
			})
			r.Get("/{tableId}/guests", controllers.GuestListByTable(guestsService, logg))
		})

		r.Route("/v1/guests", func(r chi.Router) {
			r.Post("/", controllers.GuestAdd(guestsService, logg))
			r.Get("/{assignmentId}", controllers.GuestGet(guestsService, logg))
			r.Patch("/{assignmentId}", controllers.GuestUpdate(guestsService, logg))
			r.Delete("/{assignmentId}", controllers.GuestRemove(guestsService, logg))
			r.Post("/{assignmentId}/move", controllers.GuestReassign(guestsService, logg))
			r.Post("/{assignmentId}/transfer", controllers.GuestTransfer(guestsService, logg))
			r.Post("/{assignmentId}/check-in", controllers.GuestCheckIn(guestsService, logg))
			r.Post("/check-in", controllers.GuestCheckInByRefCode(guestsService, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/mine", controllers.OrderListMine(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderGet(ordersService, logg))
		})
		r.Post("/v1/checkout", controllers.Checkout(ordersService, checkoutMetrics, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/v1/events", func(r chi.Router) {
			r.Post("/", controllers.EventCreate(eventsService, logg))
			r.Patch("/{eventId}", controllers.EventUpdate(eventsService, logg))
			r.Delete("/{eventId}", controllers.EventDelete(eventsService, logg))
			r.Post("/{eventId}/products", controllers.ProductCreate(eventsService, logg))
			r.Get("/{eventId}/orders", controllers.OrderListByEvent(ordersService, logg))
			r.Get("/{eventId}/promos", controllers.PromoList(promosService, logg))
			r.Get("/{eventId}/audit", controllers.AuditList(auditRec, gormDB, logg))
			r.Post("/{eventId}/export", controllers.ExportRun(exportService, logg))
			r.Post("/{eventId}/import-overrides", controllers.ExportImport(exportService, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/{orderId}/refund", controllers.OrderRefund(ordersService, logg))
			r.Post("/{orderId}/cancel-invitation", controllers.InvitationCancel(ordersService, logg))
		})

		r.Route("/v1/invitations", func(r chi.Router) {
			r.Post("/", controllers.InvitationCreate(ordersService, logg))
		})

		r.Route("/v1/promos", func(r chi.Router) {
			r.Post("/", controllers.PromoCreate(promosService, logg))
			r.Post("/{promoId}/deactivate", controllers.PromoDeactivate(promosService, logg))
		})
	})

	return r
}
