package sessionvalidator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type fixedClock struct {
	current time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.current
}

type mintOptions struct {
	tokenType string
	keyID     string
	secret    []byte
	issuer    string
	audience  string
	issuedAt  time.Time
	ttl       time.Duration
}

func mintToken(t *testing.T, options mintOptions) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    "user-123",
		Login:     "alice1",
		Nom:       "Dupont",
		Prenom:    "Alice",
		TokenType: options.tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    options.issuer,
			Subject:   "user-123",
			Audience:  jwt.ClaimStrings{options.audience},
			IssuedAt:  jwt.NewNumericDate(options.issuedAt),
			ExpiresAt: jwt.NewNumericDate(options.issuedAt.Add(options.ttl)),
			ID:        "01HZX",
		},
	})
	if options.keyID != "" {
		token.Header["kid"] = options.keyID
	}
	result, err := token.SignedString(options.secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return result
}

var testNow = time.Unix(1700000000, 0).UTC()

func validMint() mintOptions {
	return mintOptions{
		keyID:    "k2",
		secret:   []byte("current-key"),
		issuer:   "pollution-api",
		audience: "pollution-app",
		issuedAt: testNow,
		ttl:      time.Hour,
	}
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	validator, err := New(Config{
		SigningKeys: map[string][]byte{"k2": []byte("current-key"), "k1": []byte("previous-key")},
		Issuer:      "pollution-api",
		Audience:    "pollution-app",
		Clock:       fixedClock{current: testNow},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return validator
}

func TestNewValidatorRequiresConfiguration(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Issuer: "issuer"})
	if !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("expected missing signing key error, got %v", err)
	}
	_, err = New(Config{SigningKeys: map[string][]byte{"k": nil}, Issuer: "issuer"})
	if !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("expected empty secrets to be ignored, got %v", err)
	}
	_, err = New(Config{SigningKeys: map[string][]byte{"k": []byte("s")}})
	if !errors.Is(err, ErrMissingIssuer) {
		t.Fatalf("expected missing issuer error, got %v", err)
	}
}

func TestValidateTokenSuccess(t *testing.T) {
	validator := newTestValidator(t)

	claims, err := validator.ValidateToken(mintToken(t, validMint()))
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if claims.GetUserID() != "user-123" || claims.GetLogin() != "alice1" || claims.GetDisplayName() != "Alice Dupont" {
		t.Fatalf("unexpected claims: %#v", claims)
	}
	if !claims.GetExpiresAt().Equal(testNow.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", claims.GetExpiresAt())
	}
}

func TestValidateTokenAcceptsRotatedKeys(t *testing.T) {
	validator := newTestValidator(t)

	previous := validMint()
	previous.keyID = "k1"
	previous.secret = []byte("previous-key")
	if _, err := validator.ValidateToken(mintToken(t, previous)); err != nil {
		t.Fatalf("expected previous key to verify, got %v", err)
	}

	withoutKeyID := previous
	withoutKeyID.keyID = ""
	if _, err := validator.ValidateToken(mintToken(t, withoutKeyID)); err != nil {
		t.Fatalf("expected token without kid to verify, got %v", err)
	}
}

func TestValidateTokenRejectsInvalidCases(t *testing.T) {
	validator := newTestValidator(t)

	tests := []struct {
		name      string
		tokenFunc func() string
		expectErr error
	}{
		{
			name:      "empty token",
			tokenFunc: func() string { return "" },
			expectErr: ErrMissingToken,
		},
		{
			name: "bad signature",
			tokenFunc: func() string {
				options := validMint()
				options.secret = []byte("other-key")
				return mintToken(t, options)
			},
			expectErr: ErrInvalidToken,
		},
		{
			name: "unknown kid",
			tokenFunc: func() string {
				options := validMint()
				options.keyID = "k9"
				return mintToken(t, options)
			},
			expectErr: ErrInvalidToken,
		},
		{
			name: "wrong audience",
			tokenFunc: func() string {
				options := validMint()
				options.audience = "other-app"
				return mintToken(t, options)
			},
			expectErr: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			tokenFunc: func() string {
				options := validMint()
				options.issuer = "other-issuer"
				return mintToken(t, options)
			},
			expectErr: ErrInvalidIssuer,
		},
		{
			name: "expired",
			tokenFunc: func() string {
				options := validMint()
				options.issuedAt = testNow.Add(-2 * time.Hour)
				return mintToken(t, options)
			},
			expectErr: ErrTokenExpired,
		},
		{
			name: "refresh token",
			tokenFunc: func() string {
				options := validMint()
				options.tokenType = "refresh"
				return mintToken(t, options)
			},
			expectErr: ErrNotAccessToken,
		},
		{
			name:      "garbage",
			tokenFunc: func() string { return "not.a.jwt" },
			expectErr: ErrInvalidToken,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			_, validateErr := validator.ValidateToken(testCase.tokenFunc())
			if validateErr == nil || !errors.Is(validateErr, testCase.expectErr) {
				t.Fatalf("expected %v, got %v", testCase.expectErr, validateErr)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	validator := newTestValidator(t)

	request := httptest.NewRequest(http.MethodGet, "/api/pollution", nil)
	request.Header.Set("Authorization", "Bearer "+mintToken(t, validMint()))
	claims, validateErr := validator.ValidateRequest(request)
	if validateErr != nil {
		t.Fatalf("unexpected validation error: %v", validateErr)
	}
	if claims.GetUserID() != "user-123" {
		t.Fatalf("unexpected user: %v", claims.GetUserID())
	}

	basicRequest := httptest.NewRequest(http.MethodGet, "/api/pollution", nil)
	basicRequest.Header.Set("Authorization", "Basic abc")
	if _, basicErr := validator.ValidateRequest(basicRequest); !errors.Is(basicErr, ErrInvalidToken) {
		t.Fatalf("expected invalid token error for basic scheme, got %v", basicErr)
	}

	for _, header := range []string{"", "Bearer", "Bearer  "} {
		badRequest := httptest.NewRequest(http.MethodGet, "/api/pollution", nil)
		if header != "" {
			badRequest.Header.Set("Authorization", header)
		}
		_, missingErr := validator.ValidateRequest(badRequest)
		if !errors.Is(missingErr, ErrMissingToken) {
			t.Fatalf("header %q: expected missing token error, got %v", header, missingErr)
		}
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := newTestValidator(t)

	router := gin.New()
	router.Use(validator.GinMiddleware("claims"))
	router.GET("/api/pollution", func(contextGin *gin.Context) {
		value, exists := contextGin.Get("claims")
		if !exists {
			t.Fatalf("claims missing")
		}
		if _, ok := value.(*Claims); !ok {
			t.Fatalf("unexpected claims type: %T", value)
		}
		contextGin.Status(http.StatusOK)
	})

	expired := validMint()
	expired.issuedAt = testNow.Add(-2 * time.Hour)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + mintToken(t, validMint()), status: http.StatusOK},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic YWxpY2U6cGFzcw==", status: http.StatusForbidden},
		{name: "expired", header: "Bearer " + mintToken(t, expired), status: http.StatusForbidden},
	}
	for _, testCase := range cases {
		request := httptest.NewRequest(http.MethodGet, "/api/pollution", nil)
		if testCase.header != "" {
			request.Header.Set("Authorization", testCase.header)
		}
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)
		if response.Code != testCase.status {
			t.Fatalf("%s: expected %d, got %d", testCase.name, testCase.status, response.Code)
		}
	}
}
