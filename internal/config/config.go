package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dshills/archivesearch/internal/embedcache"
	"github.com/dshills/archivesearch/internal/embedder"
	"github.com/dshills/archivesearch/internal/searcher"
	"github.com/dshills/archivesearch/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. ARCHIVESEARCH_SEARCH_RRF_K
const EnvPrefix = "ARCHIVESEARCH"

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Search    SearchConfig    `mapstructure:"search"`
	Trends    TrendsConfig    `mapstructure:"trends"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig selects and configures the archive backend
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres or sqlite
	Path   string `mapstructure:"path"`   // sqlite only

	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// EmbeddingConfig configures the query embedding provider
type EmbeddingConfig struct {
	Provider        string        `mapstructure:"provider"`
	Model           string        `mapstructure:"model"`
	Dimension       int           `mapstructure:"dimension"`
	Project         string        `mapstructure:"project"`
	Location        string        `mapstructure:"location"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RequestsPerSec  float64       `mapstructure:"requests_per_second"`
	Burst           int           `mapstructure:"burst"`
}

// CacheConfig configures the query embedding cache
type CacheConfig struct {
	LRUSize        int           `mapstructure:"lru_size"`
	TouchQueue     int           `mapstructure:"touch_queue"`
	TouchTimeout   time.Duration `mapstructure:"touch_timeout"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	StatsTopN      int           `mapstructure:"stats_top_n"`
}

// SearchConfig tunes retrieval
type SearchConfig struct {
	DefaultPageSize      int     `mapstructure:"default_page_size"`
	MaxPageSize          int     `mapstructure:"max_page_size"`
	SimilarityThreshold  float64 `mapstructure:"similarity_threshold"`
	RRFK                 int     `mapstructure:"rrf_k"`
	MinIntermediateLimit int     `mapstructure:"min_intermediate_limit"`
	CandidateMultiplier  int     `mapstructure:"candidate_multiplier"`
	SimilarLimit         int     `mapstructure:"similar_limit"`
	RandomMinAgeYears    int     `mapstructure:"random_min_age_years"`
}

// TrendsConfig tunes topic prevalence
type TrendsConfig struct {
	MinArticlesPerYear int `mapstructure:"min_articles_per_year"`
	MaxTopics          int `mapstructure:"max_topics"`
}

// LogConfig configures the root logger
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// Options controls where Load looks
type Options struct {
	// File is an explicit config file; it must exist when set
	File string
	// EnvFiles are loaded before reading the environment. Existing variables win.
	EnvFiles []string
}

// DefaultEnvFiles are the dotenv files loaded when Options.EnvFiles is nil
var DefaultEnvFiles = []string{".env", ".env.local"}

// legacyEnv maps keys to the variable names the archive deployment already uses
var legacyEnv = map[string]string{
	"database.host":              "POSTGRES_HOST",
	"database.port":              "POSTGRES_PORT",
	"database.name":              "POSTGRES_DB",
	"database.user":              "POSTGRES_USER",
	"database.password":          "POSTGRES_PASSWORD",
	"embedding.project":          "GOOGLE_CLOUD_PROJECT",
	"embedding.location":         "GOOGLE_CLOUD_LOCATION",
	"embedding.api_key":          "OPENAI_API_KEY",
	"embedding.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", storage.DialectPostgres)
	v.SetDefault("database.path", "archive.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.migrate", false)

	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimension", 0)
	v.SetDefault("embedding.project", "")
	v.SetDefault("embedding.location", "")
	v.SetDefault("embedding.credentials_file", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.timeout", embedder.DefaultTimeout)
	v.SetDefault("embedding.max_attempts", 1)
	v.SetDefault("embedding.requests_per_second", 0)
	v.SetDefault("embedding.burst", 1)

	v.SetDefault("cache.lru_size", 1024)
	v.SetDefault("cache.touch_queue", embedcache.DefaultTouchQueue)
	v.SetDefault("cache.touch_timeout", embedcache.DefaultTouchTimeout)
	v.SetDefault("cache.resolve_timeout", embedcache.DefaultResolveTimeout)
	v.SetDefault("cache.stats_top_n", embedcache.DefaultStatsTopN)

	v.SetDefault("search.default_page_size", 20)
	v.SetDefault("search.max_page_size", searcher.DefaultMaxPageSize)
	v.SetDefault("search.similarity_threshold", searcher.DefaultSimilarityThreshold)
	v.SetDefault("search.rrf_k", searcher.DefaultRRFK)
	v.SetDefault("search.min_intermediate_limit", searcher.DefaultMinIntermediateLimit)
	v.SetDefault("search.candidate_multiplier", searcher.DefaultCandidateMultiplier)
	v.SetDefault("search.similar_limit", searcher.DefaultSimilarLimit)
	v.SetDefault("search.random_min_age_years", searcher.DefaultRandomMinAgeYears)

	v.SetDefault("trends.min_articles_per_year", searcher.DefaultMinArticlesPerYear)
	v.SetDefault("trends.max_topics", searcher.DefaultMaxTrendTopics)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from defaults, an optional YAML file, dotenv files
// and the environment, in increasing order of precedence
func Load(opts Options) (*Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = DefaultEnvFiles
	}
	for _, f := range envFiles {
		// Missing files are fine; godotenv never overwrites existing variables
		_ = godotenv.Load(f)
	}

	v := viper.New()
	setDefaults(v)

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("archivesearch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "archivesearch"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can work with
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Database.Driver {
	case storage.DialectPostgres:
		if c.Database.DSN == "" && c.Database.Name == "" {
			invalid("database.name or database.dsn is required for postgres")
		}
	case storage.DialectSQLite:
		if c.Database.Path == "" {
			invalid("database.path is required for sqlite")
		}
	default:
		invalid("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "", embedder.ProviderVertex, embedder.ProviderOpenAI, embedder.ProviderLocal, embedder.ProviderNone:
	default:
		invalid("embedding.provider %q is not supported", c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 0 {
		invalid("embedding.dimension must not be negative")
	}
	if c.Embedding.RequestsPerSec < 0 {
		invalid("embedding.requests_per_second must not be negative")
	}

	if c.Cache.LRUSize < 0 {
		invalid("cache.lru_size must not be negative")
	}

	s := c.Search
	if s.MaxPageSize < 1 {
		invalid("search.max_page_size must be positive")
	}
	if s.DefaultPageSize < 1 || s.DefaultPageSize > s.MaxPageSize {
		invalid("search.default_page_size must be between 1 and search.max_page_size")
	}
	if s.SimilarityThreshold <= 0 || s.SimilarityThreshold >= 1 {
		invalid("search.similarity_threshold must be in (0, 1), got %v", s.SimilarityThreshold)
	}
	if s.RRFK < 1 {
		invalid("search.rrf_k must be positive")
	}
	if s.MinIntermediateLimit < 1 || s.CandidateMultiplier < 1 {
		invalid("search.min_intermediate_limit and search.candidate_multiplier must be positive")
	}

	if c.Trends.MinArticlesPerYear < 0 {
		invalid("trends.min_articles_per_year must not be negative")
	}
	if c.Trends.MaxTopics < 1 {
		invalid("trends.max_topics must be positive")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		invalid("%v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		invalid("log.format must be text or json, got %q", c.Log.Format)
	}

	return errors.Join(errs...)
}

// Postgres returns the PostgreSQL connection settings
func (c *Config) Postgres() storage.PostgresConfig {
	d := c.Database
	return storage.PostgresConfig{
		DSN:             d.DSN,
		Host:            d.Host,
		Port:            d.Port,
		Database:        d.Name,
		User:            d.User,
		Password:        d.Password,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		Migrate:         d.Migrate,
	}
}

// Embedder returns the provider factory settings
func (c *Config) Embedder() embedder.Config {
	e := c.Embedding
	return embedder.Config{
		Provider:          e.Provider,
		Model:             e.Model,
		Dimension:         e.Dimension,
		Project:           e.Project,
		Location:          e.Location,
		CredentialsFile:   e.CredentialsFile,
		APIKey:            e.APIKey,
		BaseURL:           e.BaseURL,
		Timeout:           e.Timeout,
		MaxAttempts:       e.MaxAttempts,
		RequestsPerSecond: e.RequestsPerSec,
		Burst:             e.Burst,
	}
}

// EmbedCache returns the embedding cache settings
func (c *Config) EmbedCache() embedcache.Config {
	return embedcache.Config{
		LRUSize:        c.Cache.LRUSize,
		TouchQueue:     c.Cache.TouchQueue,
		TouchTimeout:   c.Cache.TouchTimeout,
		ResolveTimeout: c.Cache.ResolveTimeout,
		StatsTopN:      c.Cache.StatsTopN,
	}
}

// Searcher returns the retrieval settings
func (c *Config) Searcher() searcher.Config {
	s := c.Search
	return searcher.Config{
		MaxPageSize:          s.MaxPageSize,
		SimilarityThreshold:  s.SimilarityThreshold,
		RRFK:                 s.RRFK,
		MinIntermediateLimit: s.MinIntermediateLimit,
		CandidateMultiplier:  s.CandidateMultiplier,
		SimilarLimit:         s.SimilarLimit,
		RandomMinAgeYears:    s.RandomMinAgeYears,
		MinArticlesPerYear:   c.Trends.MinArticlesPerYear,
		MaxTrendTopics:       c.Trends.MaxTopics,
	}
}
