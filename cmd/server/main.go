package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"rentmyparking/internal/api"
	"rentmyparking/internal/auth"
	"rentmyparking/internal/config"
	"rentmyparking/internal/geocode"
	"rentmyparking/internal/logger"
	"rentmyparking/internal/metrics"
	"rentmyparking/internal/repository"
	"rentmyparking/internal/service"
	"rentmyparking/internal/subscription"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rentmyparking",
		Short:         "Peer-to-peer parking rental backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, change listener and reminder schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := repository.Migrate(db, cfg.MigrationsPath, args[0] == "down"); err != nil {
				return err
			}
			slog.Info("migrations applied", "direction", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remind",
		Short: "Run one reminder pass for stale pending requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			sender := newSender(cfg)
			jobs := service.NewJobService(repository.NewJobRepository(db), repository.NewAccountRepository(db), sender, cfg.ReminderAfter)
			n, err := jobs.RemindPendingRequests(cmd.Context())
			sender.Wait()
			if err != nil {
				return err
			}
			fmt.Printf("%d reminder(s) sent\n", n)
			return nil
		},
	})

	return cmd
}

// setup loads configuration, installs the default logger and opens the
// database.
func setup(ctx context.Context) (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open DB: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	return cfg, db, nil
}

func newSender(cfg *config.Config) *service.SenderService {
	var mailer service.MailSender
	if cfg.SendGridEnabled() {
		mailer = service.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName)
	} else {
		slog.Warn("SendGrid is not configured, emails will not be sent")
	}
	var sms service.SMSSender
	if cfg.TwilioEnabled() {
		sms = service.NewTwilioSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	} else {
		slog.Warn("Twilio is not configured, SMS will not be sent")
	}
	return service.NewSenderService(mailer, sms)
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, db, err := setup(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := repository.Migrate(db, cfg.MigrationsPath, false); err != nil {
		return err
	}

	geocoder, err := geocode.NewGoogleGeocoder(cfg.GoogleMapsAPIKey, cfg.GeocodeTimeout)
	if err != nil {
		return err
	}

	accounts := repository.NewAccountRepository(db)
	requests := repository.NewReservationRepository(db)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL, cfg.ConfirmationTTL)
	sender := newSender(cfg)
	defer sender.Wait()

	// The fetcher needs the services and the services need a publisher, so
	// the manager is bound after both exist.
	var reservations *service.ReservationService
	var profiles *service.ProfileService
	manager := subscription.NewManager(func(ctx context.Context, q subscription.Query) (any, error) {
		return service.NewViewFetcher(reservations, profiles)(ctx, q)
	})
	defer manager.Close()
	manager.OnCountChange(func(n int) { metrics.ActiveSubscriptions.Set(float64(n)) })

	var changes subscription.Publisher = manager
	if cfg.ChangeFeed == config.ChangeFeedPostgres {
		feed := repository.NewChangeFeed(db, cfg.DatabaseURL)
		changes = feed
		go func() {
			if err := feed.Listen(ctx, manager); err != nil {
				slog.Error("change listener stopped", "error", err)
			}
		}()
	}

	reservations = service.NewReservationService(accounts, requests, repository.NewTxManager(db), tokens, sender, changes)
	profiles = service.NewProfileService(accounts, changes)
	authService := service.NewAuthService(accounts, tokens)
	search := service.NewSearchService(accounts, geocoder, cfg.GeocodeWorkers, cfg.CityMatch)
	jobs := service.NewJobService(repository.NewJobRepository(db), accounts, sender, cfg.ReminderAfter)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReminderSchedule, func() {
		if _, err := jobs.RemindPendingRequests(ctx); err != nil {
			slog.Error("Cron Job: reminder pass failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid REMINDER_SCHEDULE %q: %w", cfg.ReminderSchedule, err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	handler := api.NewRouter(api.Services{
		Auth:          authService,
		Search:        search,
		Reservations:  reservations,
		Profiles:      profiles,
		Subscriptions: manager,
		Health:        db.PingContext,
	}, tokens, api.RouterOptions{CORSOrigins: cfg.CORSOrigins, AccessLog: os.Stdout})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "port", cfg.Port, "change_feed", cfg.ChangeFeed, "city_match", cfg.CityMatch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	// Open WebSocket streams end when the manager closes their handles.
	manager.Close()
	return srv.Shutdown(shutdownCtx)
}
