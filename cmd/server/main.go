package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/pollutionauth/internal/authkit"
	"github.com/tyemirov/pollutionauth/internal/validation"
	"github.com/tyemirov/pollutionauth/internal/web"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "pollution-auth",
		Short:   "Pollution API authentication service: bcrypt credentials, HS256 bearer tokens, jti revocation",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("jwt_signing_key", "", "HS256 signing secret for access and refresh tokens")
	rootCmd.Flags().String("jwt_signing_key_id", defaultSigningKeyID, "Key id written to the kid header of minted tokens")
	rootCmd.Flags().StringSlice("jwt_previous_signing_keys", []string{}, "Retired keys still accepted for verification, as id:secret")
	rootCmd.Flags().Duration("access_ttl", authkit.DefaultAccessTTL, "Access token TTL")
	rootCmd.Flags().Duration("refresh_ttl", authkit.DefaultRefreshTTL, "Refresh token TTL")
	rootCmd.Flags().Int("bcrypt_cost", authkit.DefaultPasswordCost, "bcrypt work factor for new passwords")
	rootCmd.Flags().String("database_url", "", "Credential database URL (postgres:// or sqlite://; leave empty for in-memory store)")
	rootCmd.Flags().String("redis_url", "", "Redis URL for the token denylist (leave empty for in-memory denylist)")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for browser clients served from another origin")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")
	rootCmd.Flags().Int("login_rate_per_minute", 10, "Login and registration attempts allowed per client IP per minute")
	rootCmd.Flags().StringSlice("trusted_proxies", []string{}, "Proxy IPs or CIDRs whose X-Forwarded-For is honored (empty trusts none)")

	for _, flagName := range []string{
		"listen_addr",
		"jwt_signing_key",
		"jwt_signing_key_id",
		"jwt_previous_signing_keys",
		"access_ttl",
		"refresh_ttl",
		"bcrypt_cost",
		"database_url",
		"redis_url",
		"enable_cors",
		"cors_allowed_origins",
		"login_rate_per_minute",
		"trusted_proxies",
	} {
		_ = viper.BindPFlag(flagName, rootCmd.Flags().Lookup(flagName))
	}

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	configCodeMissingJWTSigningKey    = "config.missing_jwt_signing_key"
	configCodeInvalidSigningKeys      = "config.invalid_signing_keys"
	configCodeInvalidAccessTTL        = "config.invalid_access_ttl"
	configCodeInvalidRefreshTTL       = "config.invalid_refresh_ttl"
	configCodeInvalidBcryptCost       = "config.invalid_bcrypt_cost"
	configCodeMissingCORSOrigins      = "config.missing_cors_allowed_origins"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeInvalidTrustedProxies   = "config.invalid_trusted_proxies"

	defaultSigningKeyID = "primary"
	minimumBcryptCost   = 4
	maximumBcryptCost   = 31
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadServerConfig reads and validates the token and credential settings from viper.
func LoadServerConfig() (authkit.ServerConfig, error) {
	jwtSigningKey := viper.GetString("jwt_signing_key")
	if jwtSigningKey == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingJWTSigningKey, "jwt_signing_key must be provided")
	}

	previousKeys, parseErr := authkit.ParseSigningKeySpecs(viper.GetStringSlice("jwt_previous_signing_keys"))
	if parseErr != nil {
		return authkit.ServerConfig{}, configError(configCodeInvalidSigningKeys, "jwt_previous_signing_keys entries must be id:secret")
	}
	currentKeyID := strings.TrimSpace(viper.GetString("jwt_signing_key_id"))
	if currentKeyID == "" {
		currentKeyID = defaultSigningKeyID
	}
	keyRing, ringErr := authkit.NewKeyRing(authkit.SigningKey{
		ID:     currentKeyID,
		Secret: []byte(jwtSigningKey),
	}, previousKeys...)
	if ringErr != nil {
		return authkit.ServerConfig{}, configError(configCodeInvalidSigningKeys, ringErr.Error())
	}

	accessTTL := viper.GetDuration("access_ttl")
	if accessTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidAccessTTL, "access_ttl must be greater than zero")
	}

	refreshTTL := viper.GetDuration("refresh_ttl")
	if refreshTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidRefreshTTL, "refresh_ttl must be greater than zero")
	}

	bcryptCost := authkit.DefaultPasswordCost
	if viper.IsSet("bcrypt_cost") {
		bcryptCost = viper.GetInt("bcrypt_cost")
	}
	if bcryptCost < minimumBcryptCost || bcryptCost > maximumBcryptCost {
		return authkit.ServerConfig{}, configError(configCodeInvalidBcryptCost, "bcrypt_cost must be between 4 and 31")
	}

	if viper.GetBool("enable_cors") && len(viper.GetStringSlice("cors_allowed_origins")) == 0 {
		return authkit.ServerConfig{}, configError(configCodeMissingCORSOrigins, "cors_allowed_origins must be provided when enable_cors is true")
	}

	return authkit.ServerConfig{
		SigningKeys:        keyRing,
		Issuer:             authkit.DefaultIssuer,
		Audience:           authkit.DefaultAudience,
		AccessTTL:          accessTTL,
		RefreshTTL:         refreshTTL,
		PasswordCost:       bcryptCost,
		LoginRatePerMinute: viper.GetInt("login_rate_per_minute"),
	}, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(authkit.ServerConfig)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	listenAddr := viper.GetString("listen_addr")

	backends, backendsErr := openBackends(commandContext, logger, viper.GetString("database_url"), viper.GetString("redis_url"))
	if backendsErr != nil {
		return backendsErr
	}
	defer backends.close(logger)

	gin.SetMode(gin.ReleaseMode)
	metrics := authkit.NewCounterMetrics()
	defer func() {
		logger.Info("auth event totals", zap.Any("totals", metrics.Totals()))
	}()
	router, routerErr := newRouter(logger, serverConfig, backends, metrics, routerSettings{
		corsEnabled:        viper.GetBool("enable_cors"),
		corsAllowedOrigins: viper.GetStringSlice("cors_allowed_origins"),
		trustedProxies:     viper.GetStringSlice("trusted_proxies"),
	})
	if routerErr != nil {
		return routerErr
	}

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", listenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

// routerSettings carries the HTTP-layer flags. trustedProxies lists the peers allowed to set
// X-Forwarded-For; the login throttle keys on the resulting client IP, so an empty list means
// the socket address is used.
type routerSettings struct {
	corsEnabled        bool
	corsAllowedOrigins []string
	trustedProxies     []string
}

func newRouter(logger *zap.Logger, serverConfig authkit.ServerConfig, backends *authBackends, metrics *authkit.CounterMetrics, settings routerSettings) (*gin.Engine, error) {
	router := gin.New()
	var trustedProxies []string
	if len(settings.trustedProxies) > 0 {
		trustedProxies = settings.trustedProxies
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("%s: %w", configCodeInvalidTrustedProxies, err)
	}
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if settings.corsEnabled {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, settings.corsAllowedOrigins)
		if corsErr != nil {
			return nil, corsErr
		}
		router.Use(corsMiddleware)
	}

	clock := authkit.NewSystemClock()
	issuer, issuerErr := authkit.NewTokenIssuer(serverConfig, clock, authkit.NewULIDTokenIDs())
	if issuerErr != nil {
		return nil, issuerErr
	}
	verifier, verifierErr := authkit.NewTokenVerifier(serverConfig, clock, backends.denylist)
	if verifierErr != nil {
		return nil, verifierErr
	}
	credentials, credentialsErr := authkit.NewCredentialVerifier(
		backends.credentials,
		validation.New(),
		authkit.NewBcryptHasher(serverConfig.PasswordCost),
	)
	if credentialsErr != nil {
		return nil, credentialsErr
	}

	authkit.MountAuthRoutes(router.Group("/api/auth"), authkit.RouteDependencies{
		Credentials:  credentials,
		Issuer:       issuer,
		Verifier:     verifier,
		Denylist:     backends.denylist,
		Metrics:      metrics,
		Logger:       logger,
		LoginLimiter: authkit.NewLoginRateLimiter(serverConfig.LoginRatePerMinute, clock),
	})
	router.GET("/healthz", web.HandleHealth(logger, backends.healthChecks))
	return router, nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
