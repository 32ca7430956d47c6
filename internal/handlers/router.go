package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/config"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/services"
	"trip-expense-service/internal/synccache"
)

// Services bundles everything the router wires up.
type Services struct {
	Brands            *services.LookupService
	Businesses        *services.LookupService
	Departments       *services.LookupService
	ExpenseCategories *services.LookupService
	Taxes             *services.LookupService
	SalesTaxGroups    *services.LookupService
	Currencies        *services.CurrencyService
	Companies         *services.CompanyService
	Products          *services.ProductService
	Users             *services.UserService
	Accounts          *services.AccountService
	BudgetUpload      *services.BudgetUploadService
	Expenses          *services.ExpenseService
	Costs             *services.CostService
	Cash              *services.CashService
	Export            *services.ExportService
	Sync              *synccache.SyncService
}

// routeRoles maps URL namespace and method onto the roles allowed through.
// Admin passes everywhere; a namespace/method pair with no entry is denied.
var routeRoles = map[string]map[string][]string{
	"brands":             referenceRoles(),
	"businesses":         referenceRoles(),
	"departments":        referenceRoles(),
	"expense-categories": referenceRoles(),
	"taxes":              referenceRoles(),
	"sales-tax-groups":   referenceRoles(),
	"currencies":         referenceRoles(),
	"companies":          referenceRoles(),
	"products":           referenceRoles(),
	"users": {
		http.MethodGet:    {models.RoleFinanceManager, models.RoleOperationsManager},
		http.MethodPost:   {},
		http.MethodPut:    {},
		http.MethodDelete: {},
	},
	"accounts": {
		http.MethodGet:    {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodPost:   {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodPut:    {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodDelete: {models.RoleFinanceManager},
	},
	"budgets": {
		http.MethodPost: {models.RoleFinanceManager},
	},
	"costs": {
		http.MethodGet:    {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodPost:   {models.RoleFinanceManager},
		http.MethodPut:    {models.RoleFinanceManager},
		http.MethodDelete: {models.RoleFinanceManager},
	},
	"expenses": {
		http.MethodGet:    {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodPost:   {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodPut:    {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodDelete: {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
	},
	"cash": {
		http.MethodGet: {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
	},
	"exports": {
		http.MethodGet: {models.RoleFinanceManager},
	},
	"sync": {
		http.MethodGet:    {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodPost:   {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodPut:    {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodDelete: {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
	},
}

func referenceRoles() map[string][]string {
	return map[string][]string{
		http.MethodGet:    {models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader},
		http.MethodPost:   {models.RoleFinanceManager},
		http.MethodPut:    {models.RoleFinanceManager},
		http.MethodDelete: {models.RoleFinanceManager},
	}
}

func SetupRouter(cfg *config.Config, svcs Services) *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	api.Use(loggingMiddleware)
	api.Use(jsonContentTypeMiddleware)
	api.Use(auth.Middleware(cfg.JWTSecret))
	api.Use(roleMiddleware)

	registerLookupRoutes(api, "brands", NewLookupHandler(svcs.Brands))
	registerLookupRoutes(api, "businesses", NewLookupHandler(svcs.Businesses))
	registerLookupRoutes(api, "departments", NewLookupHandler(svcs.Departments))
	registerLookupRoutes(api, "expense-categories", NewLookupHandler(svcs.ExpenseCategories))
	registerLookupRoutes(api, "taxes", NewLookupHandler(svcs.Taxes))
	registerLookupRoutes(api, "sales-tax-groups", NewLookupHandler(svcs.SalesTaxGroups))

	currencyHandler := NewCurrencyHandler(svcs.Currencies)
	api.HandleFunc("/currencies", currencyHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/currencies", currencyHandler.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/currencies/{id:[0-9]+}", currencyHandler.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/currencies/{id:[0-9]+}", currencyHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/currencies/{id:[0-9]+}", currencyHandler.Delete).Methods(http.MethodDelete)

	companyHandler := NewCompanyHandler(svcs.Companies)
	api.HandleFunc("/companies", companyHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/companies", companyHandler.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/companies/{id:[0-9]+}", companyHandler.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/companies/{id:[0-9]+}", companyHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/companies/{id:[0-9]+}", companyHandler.Delete).Methods(http.MethodDelete)

	productHandler := NewProductHandler(svcs.Products)
	api.HandleFunc("/products", productHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/products", productHandler.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", productHandler.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", productHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/products/{id:[0-9]+}", productHandler.Delete).Methods(http.MethodDelete)

	userHandler := NewUserHandler(svcs.Users)
	api.HandleFunc("/users", userHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/users", userHandler.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}", userHandler.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}", userHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/users/{id:[0-9]+}", userHandler.Delete).Methods(http.MethodDelete)

	accountHandler := NewAccountHandler(svcs.Accounts)
	api.HandleFunc("/accounts", accountHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/accounts", accountHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id:[0-9]+}", accountHandler.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id:[0-9]+}", accountHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/accounts/{id:[0-9]+}", accountHandler.Delete).Methods(http.MethodDelete)

	budgetHandler := NewBudgetHandler(svcs.BudgetUpload)
	api.HandleFunc("/budgets/upload", budgetHandler.Upload).Methods(http.MethodPost)

	expenseHandler := NewExpenseHandler(svcs.Expenses, svcs.Costs, svcs.Cash)
	api.HandleFunc("/expenses", expenseHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/expenses", expenseHandler.ListByAccount).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id:[0-9]+}", expenseHandler.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id:[0-9]+}", expenseHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id:[0-9]+}", expenseHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/expenses/{id:[0-9]+}/receipt", expenseHandler.AttachReceipt).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id:[0-9]+}/receipt", expenseHandler.DownloadReceipt).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id:[0-9]+}/receipt", expenseHandler.DeleteReceipt).Methods(http.MethodDelete)

	api.HandleFunc("/costs", expenseHandler.CreateCost).Methods(http.MethodPost)
	api.HandleFunc("/costs", expenseHandler.ListCostsByBudget).Methods(http.MethodGet)
	api.HandleFunc("/costs/{id:[0-9]+}", expenseHandler.UpdateCost).Methods(http.MethodPut)
	api.HandleFunc("/costs/{id:[0-9]+}", expenseHandler.DeleteCost).Methods(http.MethodDelete)

	api.HandleFunc("/cash/balances", expenseHandler.CashBalances).Methods(http.MethodGet)

	exportHandler := NewExportHandler(svcs.Export)
	api.HandleFunc("/exports/accounts/{id:[0-9]+}", exportHandler.ExportJournal).Methods(http.MethodGet)

	syncHandler := NewSyncHandler(svcs.Sync)
	// Fixed path first: mux matches in registration order, so registering the
	// {collection} routes ahead of it would swallow replay requests.
	api.HandleFunc("/sync/replay", syncHandler.Replay).Methods(http.MethodPost)
	api.HandleFunc("/sync/{collection}", syncHandler.CreateRecord).Methods(http.MethodPost)
	api.HandleFunc("/sync/{collection}/{id:[0-9]+}", syncHandler.GetRecord).Methods(http.MethodGet)
	api.HandleFunc("/sync/{collection}/{id:[0-9]+}", syncHandler.UpdateRecord).Methods(http.MethodPut)
	api.HandleFunc("/sync/{collection}/{id:[0-9]+}", syncHandler.DeleteRecord).Methods(http.MethodDelete)

	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	return router
}

func registerLookupRoutes(api *mux.Router, namespace string, h *LookupHandler) {
	api.HandleFunc("/"+namespace, h.Create).Methods(http.MethodPost)
	api.HandleFunc("/"+namespace, h.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/"+namespace+"/{id:[0-9]+}", h.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/"+namespace+"/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	api.HandleFunc("/"+namespace+"/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s %s", r.RemoteAddr, r.Method, r.URL)
		next.ServeHTTP(w, r)
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// roleMiddleware gates each namespace by method. It runs after the auth
// middleware, so a principal is always present here.
func roleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := auth.PrincipalFromContext(r.Context())
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if principal.Role == models.RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}

		allowed := routeRoles[routeNamespace(r.URL.Path)][r.Method]
		for _, role := range allowed {
			if role == principal.Role {
				next.ServeHTTP(w, r)
				return
			}
		}
		respondWithError(w, http.StatusForbidden, "Access denied")
	})
}

func routeNamespace(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "healthy",
	}
	respondWithJSON(w, http.StatusOK, response)
}
