package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gatekit/gatekit/pkg/auth"
	"github.com/gatekit/gatekit/pkg/auth/keys"
	"github.com/gatekit/gatekit/pkg/auth/verifier/facebook"
	"github.com/gatekit/gatekit/pkg/auth/verifier/google"
	"github.com/gatekit/gatekit/pkg/logger"
	"github.com/gatekit/gatekit/pkg/networking"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication gateway",
		Long: `Start the HTTP server. Requests to protected routes must carry a valid
bearer token from one of the configured providers; the decision result is
exposed to downstream handlers through the request context.`,
		RunE: runServe,
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().Bool("dev-mode", false, "Accept plain HTTP requests (development only)")
	cmd.Flags().String("login-url", "", "Login page to advertise on 401 responses")
	cmd.Flags().String("google-client-id", "", "Google OAuth2 client ID to accept ID tokens for")
	cmd.Flags().Bool("google-remote", false, "Verify Google tokens through the tokeninfo endpoint instead of locally")
	cmd.Flags().String("facebook-app-id", "", "Facebook app ID")
	cmd.Flags().String("facebook-app-secret", "", "Facebook app secret")

	for _, flag := range []string{
		"address", "dev-mode", "login-url",
		"google-client-id", "google-remote",
		"facebook-app-id", "facebook-app-secret",
	} {
		if err := viper.BindPFlag(flag, cmd.Flags().Lookup(flag)); err != nil {
			logger.Fatalf("Failed to bind %s flag: %v", flag, err)
		}
	}

	return cmd
}

// buildVerifiers assembles the verifier chain from configuration. The
// Google verifier, when configured, is the default for requests without a
// provider hint.
func buildVerifiers(ctx context.Context, client *http.Client) ([]auth.TokenVerifier, error) {
	var verifiers []auth.TokenVerifier

	if clientID := viper.GetString("google-client-id"); clientID != "" {
		if viper.GetBool("google-remote") {
			v, err := google.NewRemoteVerifier(client, []string{clientID}, google.RemoteAsDefault())
			if err != nil {
				return nil, fmt.Errorf("failed to create Google remote verifier: %w", err)
			}
			verifiers = append(verifiers, v)
		} else {
			keyManager, err := keys.NewManager(ctx, client)
			if err != nil {
				return nil, fmt.Errorf("failed to create key manager: %w", err)
			}
			v, err := google.NewSignatureVerifier(keyManager, clientID, google.AsDefault())
			if err != nil {
				return nil, fmt.Errorf("failed to create Google signature verifier: %w", err)
			}
			verifiers = append(verifiers, v)
		}
	}

	if appID := viper.GetString("facebook-app-id"); appID != "" {
		appSecret := viper.GetString("facebook-app-secret")
		v, err := facebook.NewDebugTokenVerifier(client, appID, appSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Facebook verifier: %w", err)
		}
		verifiers = append(verifiers, v)
	}

	if len(verifiers) == 0 {
		return nil, fmt.Errorf("no identity providers configured")
	}
	return verifiers, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	address := viper.GetString("address")
	devMode := viper.GetBool("dev-mode")

	// Outbound calls go to provider endpoints only, never to private
	// addresses, and never over plain HTTP.
	client, err := networking.NewHttpClientBuilder().Build()
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	verifiers, err := buildVerifiers(ctx, client)
	if err != nil {
		return err
	}

	platform := auth.PlatformIdentityProvider(auth.NoPlatform{})
	if loginURL := viper.GetString("login-url"); loginURL != "" {
		platform = &auth.StaticPlatform{Login: loginURL}
	}

	var engineOpts []auth.EngineOption
	if devMode {
		logger.Warn("Dev mode enabled, accepting plain HTTP requests")
		engineOpts = append(engineOpts, auth.WithDevMode())
	}
	engine, err := auth.NewEngine(verifiers, platform, auth.RequireUser(), engineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create decision engine: %w", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(serverRequestTimeout))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(engine))
		r.Get("/whoami", whoamiHandler)
	})

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infof("Server listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}

// whoamiHandler reports the authenticated caller back as JSON.
func whoamiHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := auth.SecurityContextFromContext(r.Context())
	if !ok {
		http.Error(w, "no security context", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"principal":%q,"scheme":%q}`+"\n",
		sc.Principal().String(), sc.AuthenticationScheme())
}
