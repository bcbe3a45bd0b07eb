package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecofashion/ecofashion-backend/api/controllers"
	"github.com/ecofashion/ecofashion-backend/api/handlers"
	"github.com/ecofashion/ecofashion-backend/api/middleware"
	cartsvc "github.com/ecofashion/ecofashion-backend/internal/cart"
	checkoutsvc "github.com/ecofashion/ecofashion-backend/internal/checkout"
	inventorysvc "github.com/ecofashion/ecofashion-backend/internal/inventory"
	paymentsvc "github.com/ecofashion/ecofashion-backend/internal/payments"
	settlementsvc "github.com/ecofashion/ecofashion-backend/internal/settlement"
	walletsvc "github.com/ecofashion/ecofashion-backend/internal/wallet"
	"github.com/ecofashion/ecofashion-backend/pkg/config"
	"github.com/ecofashion/ecofashion-backend/pkg/logger"
	pkgredis "github.com/ecofashion/ecofashion-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *pkgredis.Client
	DB          handlers.Pinger
	Metrics     http.Handler
	Carts       cartsvc.Service
	Checkout    checkoutsvc.Service
	Payments    paymentsvc.Service
	Wallets     walletsvc.Service
	Settlements settlementsvc.Service
	Inventory   inventorysvc.Service
}

// NewRouter wires middleware and routes for the marketplace API.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	probes := map[string]handlers.Pinger{}
	if deps.DB != nil {
		probes["db"] = deps.DB
	}
	if deps.Redis != nil {
		probes["redis"] = deps.Redis
	}
	r.Get("/healthz", handlers.Healthz(cfg, logg))
	r.Get("/readyz", handlers.Ready(logg, probes))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// Gateway callbacks arrive without credentials; VNPay signs them itself.
	r.Route("/api/v1/payments/vnpay", func(r chi.Router) {
		r.Get("/return", controllers.VNPayReturn(deps.Payments, logg))
		r.Get("/ipn", controllers.VNPayIPN(deps.Payments, logg))
	})
	r.Get("/api/v1/wallet/deposit/return", controllers.WalletDepositReturn(deps.Wallets, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(storeOrNil(deps.Redis), logg))
		r.Use(middleware.RateLimit(limiterOrNil(deps.Redis), logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Delete("/", controllers.CartClear(deps.Carts, logg))
			r.Post("/items", controllers.CartAddItem(deps.Carts, logg))
			r.Patch("/items/{itemID}", controllers.CartUpdateItem(deps.Carts, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.Carts, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Post("/checkout/from-cart", controllers.CheckoutFromCart(deps.Checkout, logg))

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Post("/pay/gateway", controllers.PayOrderWithGateway(deps.Payments, logg))
			r.Post("/pay/wallet", controllers.PayOrderWithWallet(deps.Payments, logg))
			r.Post("/settlements/release", controllers.ReleaseOrderSettlements(deps.Settlements, logg))
		})
		r.Route("/order-groups/{groupID}", func(r chi.Router) {
			r.Post("/pay/wallet", controllers.PayOrderGroupWithWallet(deps.Payments, logg))
			r.Post("/settlements/release", controllers.ReleaseGroupSettlements(deps.Settlements, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletFetch(deps.Wallets, logg))
			r.Post("/deposit", controllers.WalletDeposit(deps.Wallets, logg))
			r.Post("/withdrawals", controllers.WalletRequestWithdrawal(deps.Wallets, logg))
			r.Post("/withdrawals/{transactionID}/complete", controllers.WalletCompleteWithdrawal(deps.Wallets, logg))
			r.Post("/withdrawals/{transactionID}/fail", controllers.WalletFailWithdrawal(deps.Wallets, logg))
			r.Get("/transactions", controllers.WalletTransactions(deps.Wallets, logg))
		})

		r.Get("/settlements", controllers.SellerSettlements(deps.Settlements, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/receipts", controllers.InventoryReceive(deps.Inventory, logg))
			r.Post("/consumptions", controllers.InventoryConsume(deps.Inventory, logg))
		})
	})

	return r
}

// limiterOrNil and storeOrNil avoid handing the middleware a typed-nil
// interface when Redis is absent.
func limiterOrNil(client *pkgredis.Client) middleware.Limiter {
	if client == nil {
		return nil
	}
	return client
}

func storeOrNil(client *pkgredis.Client) pkgredis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}
