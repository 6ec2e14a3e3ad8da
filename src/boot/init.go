package boot

import (
	"context"
	"fms/src/config"
	"fms/src/db"
	"fms/src/lib"
	awslib "fms/src/lib/aws"
	"fms/src/lib/mailer"
	"fms/src/services"
	"fms/src/store"
	"fmt"
	"log"
	"net/http"
)

// App is everything the HTTP layer needs. The gateways are exposed so the
// callback routes can verify provider signatures.
type App struct {
	Config   *config.Config
	Store    store.Store
	Services *services.Services
	VNPay    *lib.VNPay
	MoMo     *lib.MoMo
	Stripe   *lib.StripeGateway

	publisher *lib.KafkaPublisher
}

func InitStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		log.Println("[Store] Using in-memory store")
		return store.NewMemoryStore(), nil
	case "postgres":
		gdb, err := db.GetDb(cfg.Database)
		if err != nil {
			return nil, err
		}
		s := store.NewGormStore(gdb)
		if err := s.Migrate(); err != nil {
			log.Printf("[Store] error migration: %s\n", err.Error())
			return nil, err
		}
		return s, nil
	case "firestore":
		client, err := lib.GetFirestoreClient(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		return store.NewFirestoreStore(client), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// InitApp wires the engines with every optional integration the config
// enables. A missing integration falls back to a no-op.
func InitApp(ctx context.Context, cfg *config.Config, st store.Store) (*App, error) {
	app := &App{
		Config: cfg,
		Store:  st,
		VNPay:  lib.NewVNPay(cfg.VNPay, cfg.Pricing.Location),
		MoMo:   lib.NewMoMo(cfg.MoMo, &http.Client{Timeout: cfg.MoMo.Timeout}),
		Stripe: lib.NewStripeGateway(cfg.Stripe, lib.GetStripeClient(cfg.Stripe.SecretKey)),
	}
	opts := services.Options{
		Store:             st,
		Policy:            cfg.Pricing.Policy(),
		FoodVATPercent:    cfg.Pricing.FoodVATPercent,
		Location:          cfg.Pricing.Location,
		PendingPaymentTTL: cfg.Jobs.PendingPaymentTTL,
		Gateways:          []services.Gateway{app.VNPay, app.MoMo, app.Stripe},
	}

	if cfg.Redis.URL != "" {
		if rdb := lib.GetRedisClient(cfg.Redis.URL); rdb != nil {
			opts.Cache = lib.NewCatalogCache(rdb, cfg.Redis.CatalogTTL)
		}
	}
	if cfg.Kafka.Enabled {
		p, err := lib.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		app.publisher = p
		opts.Publisher = p
	}
	if cfg.SMTP.Enabled {
		opts.Notifier = mailer.NewNotifier(lib.NewSMTPSender(cfg.SMTP), cfg.SMTP.From, cfg.SMTP.FromName)
	}
	if cfg.S3.ReportBucket != "" {
		client, err := awslib.GetS3Client(ctx)
		if err != nil {
			return nil, err
		}
		opts.Reports = awslib.NewReportUploader(client, cfg.S3.ReportBucket, cfg.S3.ReportPrefix)
	}

	app.Services = services.New(opts)
	return app, nil
}

// InitBroker makes sure every event topic exists before the first publish.
func InitBroker(ctx context.Context, cfg config.KafkaConfig) {
	if !cfg.Enabled {
		return
	}
	results, err := lib.KafkaCreateTopics(ctx, cfg, lib.Topics...)
	if err != nil {
		log.Printf("[Kafka] Error creating topics: %s\n", err.Error())
		return
	}
	for _, r := range results {
		log.Printf("[Kafka] topic %s: %s\n", r.Topic, r.Error.String())
	}
}

func runCount(name string, fn func(context.Context) (int, error)) func() {
	return func() {
		n, err := fn(context.Background())
		if err != nil {
			log.Printf("[Jobs] %s failed: %s\n", name, err.Error())
			return
		}
		if n > 0 {
			log.Printf("[Jobs] %s: %d record(s)\n", name, n)
		}
	}
}

func InitScheduler(app *App) error {
	cfg := app.Config.Jobs
	if !cfg.Enabled {
		log.Println("[Jobs] Scheduler disabled")
		return nil
	}
	jobs := app.Services.Jobs
	if _, err := lib.CreateDurationJob("expire-reservations", cfg.ExpirationInterval, runCount("expire-reservations", jobs.ExpireReservations)); err != nil {
		return err
	}
	if _, err := lib.CreateDurationJob("fail-stale-payments", cfg.StaleScanInterval, runCount("fail-stale-payments", jobs.FailStalePayments)); err != nil {
		return err
	}
	if _, err := lib.CreateDurationJob("recalculate-ranks", cfg.RankRecalcInterval, runCount("recalculate-ranks", jobs.RecalculateRanks)); err != nil {
		return err
	}
	report := func() {
		if err := jobs.RunDailyReport(context.Background()); err != nil {
			log.Printf("[Jobs] daily-report failed: %s\n", err.Error())
		}
	}
	if _, err := lib.CreateDailyJob("daily-report", cfg.ReportHour, report); err != nil {
		return err
	}
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	log.Println("Jobs in queue:", len(sched.Jobs()))
	sched.Start()
	return nil
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("An error has occurred while stopping Scheduler: %s\n", err.Error())
	}
}

// Close flushes the event producer and releases the database pool.
func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if err := db.Close(); err != nil {
		log.Printf("[DB] Error closing pool: %s\n", err.Error())
	}
}
