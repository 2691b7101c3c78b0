// server runs the HTTP API: authentication, session management, and lockout
// enforcement in front of the task-management backend.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountrepo "taskboard/backend/internal/account/repository"
	"taskboard/backend/internal/audit"
	auditrepo "taskboard/backend/internal/audit/repository"
	authhandler "taskboard/backend/internal/auth/handler"
	authservice "taskboard/backend/internal/auth/service"
	"taskboard/backend/internal/config"
	"taskboard/backend/internal/db"
	"taskboard/backend/internal/envelope"
	healthhandler "taskboard/backend/internal/health/handler"
	"taskboard/backend/internal/lockout"
	"taskboard/backend/internal/security"
	"taskboard/backend/internal/server"
	"taskboard/backend/internal/server/middleware"
	"taskboard/backend/internal/telemetry"
	telemetryotel "taskboard/backend/internal/telemetry/otel"
	"taskboard/backend/internal/token"
)

// purgeInterval is how often expired denylist entries are swept. Purging is a
// memory/storage optimization; validation is correct without it.
const purgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "taskboard-api", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	provider := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL())

	ledger := token.NewPostgresLedger(conn)
	tokens := token.NewService(provider, ledger)

	var codec *envelope.Codec
	if cfg.EnvelopeSecret != "" {
		key, err := envelope.DeriveKey(cfg.EnvelopeSecret, cfg.EnvelopeSalt)
		if err != nil {
			log.Fatalf("ENVELOPE_SECRET: %v", err)
		}
		if codec, err = envelope.NewCodec(key); err != nil {
			log.Fatalf("envelope codec: %v", err)
		}
	}

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), middleware.ClientIPFrom)
	policy := lockout.Policy{
		SoftThreshold: cfg.LockoutSoftThreshold,
		LockDuration:  cfg.LockDuration(),
		HardCycles:    cfg.LockoutHardCycles,
	}
	svc := authservice.NewAuthService(
		accountrepo.NewPostgresRepository(conn),
		tokens,
		security.NewHasher(cfg.BcryptCost),
		policy,
		auditLogger,
	)

	router := server.NewRouter(server.Deps{
		Auth:    authhandler.NewHandler(svc, codec),
		Health:  healthhandler.NewServer(conn),
		Tokens:  tokens,
		APIKey:  cfg.APIKey,
		Emitter: emitter,
	})

	go purgeExpiredTokens(ctx, ledger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Give in-flight async telemetry emits time to land before tearing down
	// the providers.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

func purgeExpiredTokens(ctx context.Context, ledger token.Ledger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ledger.PurgeExpired(ctx, time.Now().UTC()); err != nil {
				log.Printf("token purge: %v", err)
			}
		}
	}
}
