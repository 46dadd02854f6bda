package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Store      StoreConfig      `yaml:"store"`
	Files      FilesConfig      `yaml:"files"`
	Backup     BackupConfig     `yaml:"backup"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type RepositoryConfig struct {
	Type          string `yaml:"type"` // "inmemory", "sqlite", "postgres" или "mongo"
	SQLitePath    string `yaml:"sqlite_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

type StoreConfig struct {
	Prefix        string `yaml:"prefix"`
	SeedTemplates bool   `yaml:"seed_templates"`
}

type FilesConfig struct {
	Type     string `yaml:"type"` // "local" или "s3"
	Dir      string `yaml:"dir"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type BackupConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type RateLimitConfig struct {
	RPM int `yaml:"rpm"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
		},
		Logging:    LoggingConfig{Development: true},
		Repository: RepositoryConfig{Type: "inmemory", SQLitePath: "hermes.db", MongoDatabase: "hermes"},
		Store:      StoreConfig{Prefix: "hermes", SeedTemplates: true},
		Files:      FilesConfig{Type: "local", Dir: "data/files"},
		Backup:     BackupConfig{Enabled: false, Interval: time.Hour},
		RateLimit:  RateLimitConfig{RPM: 100},
	}
}

// Load читает YAML поверх значений по умолчанию, затем применяет переменные окружения.
// Отсутствующий файл конфигурации не считается ошибкой.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("не могу прочитать .env: %w", err)
	}

	cfg := Default()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
	default:
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "HERMES_PORT")
	setString(&c.Database.URL, "HERMES_DATABASE_URL")
	setString(&c.Repository.Type, "HERMES_REPOSITORY")
	setString(&c.Repository.SQLitePath, "HERMES_SQLITE_PATH")
	setString(&c.Repository.MongoURI, "HERMES_MONGO_URI")
	setString(&c.Files.Type, "HERMES_FILES")
	setString(&c.Files.Bucket, "HERMES_S3_BUCKET")
	setString(&c.Files.Region, "AWS_REGION")
	setString(&c.Files.Endpoint, "HERMES_S3_ENDPOINT")

	if v, ok := os.LookupEnv("HERMES_DEVELOPMENT"); ok {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HERMES_DEVELOPMENT: %w", err)
		}
		c.Logging.Development = dev
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case "inmemory", "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для repository.type=postgres")
		}
	case "mongo":
		if c.Repository.MongoURI == "" {
			return errors.New("repository.mongo_uri обязателен для repository.type=mongo")
		}
	default:
		return fmt.Errorf("неизвестный repository.type %q", c.Repository.Type)
	}

	switch c.Files.Type {
	case "local":
	case "s3":
		if c.Files.Bucket == "" {
			return errors.New("files.bucket обязателен для files.type=s3")
		}
	default:
		return fmt.Errorf("неизвестный files.type %q", c.Files.Type)
	}

	if c.Store.Prefix == "" {
		return errors.New("store.prefix не может быть пустым")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
