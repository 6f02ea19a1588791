package sessionclient

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds every API call made through a Session.
const DefaultRequestTimeout = 15 * time.Second

// SessionConfig describes a client session against the auth API.
type SessionConfig struct {
	// BaseURL is the API root, e.g. "https://pollution.example/api".
	BaseURL   string
	Storage   Storage
	Navigator Navigator
	LoginPath string
	HomePath  string
	// Transport is the underlying round tripper; nil uses http.DefaultTransport.
	Transport      http.RoundTripper
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Session bundles the store, the intercepted API client, and both guards.
type Session struct {
	Store      *Store
	Client     *APIClient
	HTTPClient *http.Client
	AuthGuard  Guard
	GuestGuard Guard
}

// NewSession wires the interceptor in front of the API client and binds it to the store
// that the client feeds.
func NewSession(configuration SessionConfig) (*Session, error) {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	requestTimeout := configuration.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	interceptor := NewInterceptor(configuration.Transport, nil, configuration.Navigator, configuration.LoginPath, logger)
	httpClient := &http.Client{Transport: interceptor, Timeout: requestTimeout}
	apiClient, clientErr := NewAPIClient(configuration.BaseURL, httpClient)
	if clientErr != nil {
		return nil, clientErr
	}
	store, storeErr := NewStore(StoreConfig{
		Remote:  apiClient,
		Storage: configuration.Storage,
		Logger:  logger,
	})
	if storeErr != nil {
		return nil, storeErr
	}
	interceptor.session = store
	return &Session{
		Store:      store,
		Client:     apiClient,
		HTTPClient: httpClient,
		AuthGuard:  AuthGuard(store, configuration.LoginPath),
		GuestGuard: GuestGuard(store, configuration.HomePath),
	}, nil
}

// Close stops the store.
func (session *Session) Close() {
	session.Store.Close()
}
