package authkit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("credential_store.unsupported_dialect")

	errEmptyDatabaseURL    = errors.New("credential_store.empty_database_url")
	errSQLiteEmptyPath     = errors.New("credential_store.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("credential_store.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("credential_store.unsupported_no_scheme")
)

// DatabaseCredentialStore persists credentials using GORM.
type DatabaseCredentialStore struct {
	db          *gorm.DB
	driverLabel string
}

// Driver exposes the selected database driver label.
func (store *DatabaseCredentialStore) Driver() string {
	return store.driverLabel
}

type credentialRecord struct {
	ID           string `gorm:"column:id;primaryKey"`
	Login        string `gorm:"column:login;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:pass;not null"`
	Nom          string `gorm:"column:nom;not null;default:''"`
	Prenom       string `gorm:"column:prenom;not null;default:''"`
}

func (credentialRecord) TableName() string {
	return "utilisateurs"
}

// NewDatabaseCredentialStore constructs a GORM-backed store and migrates its table.
func NewDatabaseCredentialStore(ctx context.Context, databaseURL string) (*DatabaseCredentialStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("credential_store.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if openErr != nil {
		return nil, fmt.Errorf("credential_store.open.%s: %w", driverLabel, openErr)
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&credentialRecord{}); migrateErr != nil {
		return nil, fmt.Errorf("credential_store.migrate.%s: %w", driverLabel, migrateErr)
	}
	return &DatabaseCredentialStore{
		db:          gormDB,
		driverLabel: driverLabel,
	}, nil
}

// Ping checks that the database is reachable.
func (store *DatabaseCredentialStore) Ping(ctx context.Context) error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return fmt.Errorf("credential_store.ping.%s: %w", store.driverLabel, err)
	}
	if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		return fmt.Errorf("credential_store.ping.%s: %w", store.driverLabel, pingErr)
	}
	return nil
}

// Close releases the connection pool.
func (store *DatabaseCredentialStore) Close() error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return fmt.Errorf("credential_store.close.%s: %w", store.driverLabel, err)
	}
	return sqlDB.Close()
}

// FindByLogin locates a credential by its login.
func (store *DatabaseCredentialStore) FindByLogin(ctx context.Context, login string) (Credential, error) {
	var record credentialRecord
	err := store.db.WithContext(ctx).Where("login = ?", login).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Credential{}, fmt.Errorf("credential_store.find.%s: %w", store.driverLabel, ErrCredentialNotFound)
		}
		return Credential{}, fmt.Errorf("credential_store.find.%s: %w", store.driverLabel, err)
	}
	return Credential{
		ID:           record.ID,
		Login:        record.Login,
		PasswordHash: record.PasswordHash,
		Nom:          record.Nom,
		Prenom:       record.Prenom,
	}, nil
}

// Create inserts a credential; a duplicate login maps to ErrCredentialExists.
func (store *DatabaseCredentialStore) Create(ctx context.Context, credential Credential) error {
	record := credentialRecord{
		ID:           credential.ID,
		Login:        credential.Login,
		PasswordHash: credential.PasswordHash,
		Nom:          credential.Nom,
		Prenom:       credential.Prenom,
	}
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var existing int64
		if countErr := transaction.Model(&credentialRecord{}).Where("login = ?", credential.Login).Count(&existing).Error; countErr != nil {
			return countErr
		}
		if existing > 0 {
			return ErrCredentialExists
		}
		return transaction.Create(&record).Error
	})
	if err != nil {
		if errors.Is(err, ErrCredentialExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("credential_store.create.%s: %w", store.driverLabel, ErrCredentialExists)
		}
		return fmt.Errorf("credential_store.create.%s: %w", store.driverLabel, err)
	}
	return nil
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("credential_store.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", fmt.Errorf("credential_store.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("credential_store.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("credential_store.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
