package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrEmptyBaseURL indicates an API client without a base URL.
var ErrEmptyBaseURL = errors.New("session.api.empty_base_url")

// AuthResponse is returned by the login and registration endpoints.
type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Nom      string `json:"nom"`
	Prenom   string `json:"prenom"`
	Login    string `json:"login"`
	Password string `json:"pass"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (apiError *APIError) Error() string {
	return fmt.Sprintf("session.api.status_%d: %s", apiError.StatusCode, apiError.Code)
}

// Remote performs the network half of Login and Register.
type Remote interface {
	Login(ctx context.Context, identifier string, password string) (AuthResponse, error)
	Register(ctx context.Context, request RegisterRequest) (AuthResponse, error)
}

// APIClient calls the /api/auth endpoints.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient builds a client rooted at baseURL (e.g. "https://host/api").
func NewAPIClient(baseURL string, httpClient *http.Client) (*APIClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, ErrEmptyBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{baseURL: trimmed, httpClient: httpClient}, nil
}

// Login posts credentials to /auth/login.
func (client *APIClient) Login(ctx context.Context, identifier string, password string) (AuthResponse, error) {
	var response AuthResponse
	err := client.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    identifier,
		"password": password,
	}, &response)
	return response, err
}

// Register posts a new account to /auth/register.
func (client *APIClient) Register(ctx context.Context, request RegisterRequest) (AuthResponse, error) {
	var response AuthResponse
	err := client.do(ctx, http.MethodPost, "/auth/register", request, &response)
	return response, err
}

// Me fetches the identity bound to the current access token.
func (client *APIClient) Me(ctx context.Context) (User, error) {
	var response struct {
		User User `json:"user"`
	}
	err := client.do(ctx, http.MethodGet, "/auth/me", nil, &response)
	return response.User, err
}

// Logout asks the server to revoke the current access token.
func (client *APIClient) Logout(ctx context.Context) error {
	return client.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (client *APIClient) do(ctx context.Context, method string, path string, payload any, target any) error {
	var body io.Reader
	if payload != nil {
		encoded, encodeErr := json.Marshal(payload)
		if encodeErr != nil {
			return fmt.Errorf("session.api.encode: %w", encodeErr)
		}
		body = bytes.NewReader(encoded)
	}
	request, requestErr := http.NewRequestWithContext(ctx, method, client.baseURL+path, body)
	if requestErr != nil {
		return fmt.Errorf("session.api.request: %w", requestErr)
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")

	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return fmt.Errorf("session.api.transport: %w", doErr)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		apiError := &APIError{StatusCode: response.StatusCode}
		var errorBody struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(response.Body).Decode(&errorBody); decodeErr == nil {
			apiError.Code = errorBody.Code
			apiError.Message = errorBody.Message
		}
		return apiError
	}
	if target == nil || response.StatusCode == http.StatusNoContent {
		return nil
	}
	if decodeErr := json.NewDecoder(response.Body).Decode(target); decodeErr != nil {
		return fmt.Errorf("session.api.decode: %w", decodeErr)
	}
	return nil
}
