package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Listing store backends.
const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
)

// Object store backends.
const (
	ObjectStoreSupabase = "supabase"
	ObjectStoreMinio    = "minio"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env      string
	Port     string
	LogLevel string

	ListingStore  string
	DatabaseURL   string
	RedisURL      string
	SupabaseURL   string
	SupabaseKey   string // service_role key; storage and PostgREST both use it
	ListingsTable string
	PhotoBucket   string

	ObjectStore        string
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioUseSSL        bool
	MinioPublicBaseURL string

	LogoPath        string
	ContactNumber   string
	BatchPolicy     string
	FieldSchemaPath string
	EditSessionTTL  time.Duration
	LocationVideos  map[string]string
	PublicPageURL   string

	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LISTING_STORE", StoreSupabase)
	v.SetDefault("LISTINGS_TABLE", "mlianglistings")
	v.SetDefault("PHOTO_BUCKET", "mliangwatermarklistings")
	v.SetDefault("OBJECT_STORE", ObjectStoreSupabase)
	v.SetDefault("LOGO_PATH", "assets/mliangrealty.png")
	v.SetDefault("CONTACT_NUMBER", "09393440944")
	v.SetDefault("BATCH_POLICY", "abort")
	v.SetDefault("EDIT_SESSION_TTL", "30m")
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) (*Config, error) {
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig()
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		Env:      v.GetString("APP_ENV"),
		Port:     v.GetString("PORT"),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),

		ListingStore:  strings.ToLower(v.GetString("LISTING_STORE")),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		RedisURL:      v.GetString("REDIS_URL"),
		SupabaseURL:   strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		SupabaseKey:   v.GetString("SUPABASE_KEY"),
		ListingsTable: v.GetString("LISTINGS_TABLE"),
		PhotoBucket:   v.GetString("PHOTO_BUCKET"),

		ObjectStore:        strings.ToLower(v.GetString("OBJECT_STORE")),
		MinioEndpoint:      v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:     v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:     v.GetString("MINIO_SECRET_KEY"),
		MinioUseSSL:        v.GetBool("MINIO_USE_SSL"),
		MinioPublicBaseURL: v.GetString("MINIO_PUBLIC_BASE_URL"),

		LogoPath:        v.GetString("LOGO_PATH"),
		ContactNumber:   v.GetString("CONTACT_NUMBER"),
		BatchPolicy:     strings.ToLower(v.GetString("BATCH_POLICY")),
		FieldSchemaPath: v.GetString("FIELD_SCHEMA_PATH"),
		EditSessionTTL:  v.GetDuration("EDIT_SESSION_TTL"),
		PublicPageURL:   v.GetString("PUBLIC_PAGE_URL"),

		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
	}

	// LOCATION_VIDEOS is a JSON object: {"<Location>": "<video url>"}.
	if raw := strings.TrimSpace(v.GetString("LOCATION_VIDEOS")); raw != "" {
		videos, err := parseVideos(raw)
		if err != nil {
			return nil, err
		}
		cfg.LocationVideos = videos
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseVideos(raw string) (map[string]string, error) {
	// Decoded directly: viper folds map keys to lower case.
	out := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("LOCATION_VIDEOS must be a JSON object of strings: %w", err)
	}
	return out, nil
}

func (c *Config) validate() error {
	switch c.ListingStore {
	case StoreSupabase, StorePostgres:
	default:
		return fmt.Errorf("LISTING_STORE must be %q or %q, got %q", StoreSupabase, StorePostgres, c.ListingStore)
	}
	if c.ListingStore == StorePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("LISTING_STORE=postgres requires DATABASE_URL")
	}
	switch c.ObjectStore {
	case ObjectStoreSupabase, ObjectStoreMinio:
	default:
		return fmt.Errorf("OBJECT_STORE must be %q or %q, got %q", ObjectStoreSupabase, ObjectStoreMinio, c.ObjectStore)
	}
	switch c.BatchPolicy {
	case "abort", "continue":
	default:
		return fmt.Errorf("BATCH_POLICY must be abort or continue, got %q", c.BatchPolicy)
	}
	if c.EditSessionTTL <= 0 {
		return fmt.Errorf("EDIT_SESSION_TTL must be a positive duration")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
