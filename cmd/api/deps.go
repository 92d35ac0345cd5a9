package main

import (
	"github.com/rs/zerolog"

	"fintrack/internal/domain/account"
	"fintrack/internal/domain/category"
	"fintrack/internal/domain/recurring"
	"fintrack/internal/domain/transaction"
	"fintrack/internal/domain/user"
	"fintrack/internal/infrastructure/amqp"
	"fintrack/internal/infrastructure/postgres"
	httphandlers "fintrack/internal/interfaces/http"
	"fintrack/internal/shared/auth"
	"fintrack/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB   *postgres.DB
	AMQP *amqp.Client

	AuthHandler        *httphandlers.AuthHandler
	UserHandler        *httphandlers.UserHandler
	AccountHandler     *httphandlers.AccountHandler
	CategoryHandler    *httphandlers.CategoryHandler
	TransactionHandler *httphandlers.TransactionHandler
	RecurringHandler   *httphandlers.RecurringHandler
	HealthHandler      *httphandlers.HealthHandler

	JWT *auth.JWT
}

func NewDependencies(cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("connected to database")

	userService := user.NewService(postgres.NewUserRepository(db))
	accountService := account.NewService(postgres.NewAccountRepository(db), userService)
	categoryService := category.NewService(postgres.NewCategoryRepository(db), userService)
	ledger := transaction.NewService(postgres.NewTransactionStore(db), userService, logger)

	recurringRepo := postgres.NewRecurringRepository(db)
	recurringService := recurring.NewService(recurringRepo, userService)

	deps := &Dependencies{DB: db}

	// With a broker configured, materialization runs in the worker process.
	// Without one the API materializes inline.
	var requester httphandlers.MaterializationRequester
	if cfg.AMQP.Enabled() {
		client, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		deps.AMQP = client
		requester = client
		logger.Info().Msg("materialization requests go to AMQP")
	} else {
		requester = recurring.NewMaterializer(recurringRepo, ledger, logger)
		logger.Info().Msg("AMQP disabled, materializing inline")
	}

	jwt := auth.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL)

	deps.JWT = jwt
	deps.AuthHandler = httphandlers.NewAuthHandler(userService, jwt)
	deps.UserHandler = httphandlers.NewUserHandler(userService)
	deps.AccountHandler = httphandlers.NewAccountHandler(accountService)
	deps.CategoryHandler = httphandlers.NewCategoryHandler(categoryService)
	deps.TransactionHandler = httphandlers.NewTransactionHandler(ledger)
	deps.RecurringHandler = httphandlers.NewRecurringHandler(recurringService, requester)
	deps.HealthHandler = httphandlers.NewHealthHandler(db)
	return deps, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.AMQP != nil {
		d.AMQP.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
