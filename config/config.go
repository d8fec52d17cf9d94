// Package config loads server settings. Values are layered: built-in
// defaults, then an optional YAML file, then environment variables, then
// command-line flags. Each layer only overrides what it sets.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DocumentsDynamo = "dynamo"
	DocumentsLocal  = "local"

	KVRedis  = "redis"
	KVSQLite = "sqlite"
)

type Config struct {
	DevMode  bool   `yaml:"devMode"`
	HostPort string `yaml:"hostPort"`
	// Origin allowed to open websocket sessions. Empty allows any.
	AllowedOrigin string `yaml:"allowedOrigin"`
	// Base64 HMAC key. Only read from the environment.
	JWTSecret string `yaml:"-"`

	Documents DocumentsConfig `yaml:"documents"`
	KV        KVConfig        `yaml:"kv"`
	Queue     QueueConfig     `yaml:"queue"`
	Images    ImagesConfig    `yaml:"images"`
	Persister PersisterConfig `yaml:"persister"`
	Mail      MailConfig      `yaml:"mail"`

	OAuth map[string]OAuthProvider `yaml:"oauth"`
}

// DocumentsConfig selects where entity repositories keep their records.
// User accounts always live in DynamoDB.
type DocumentsConfig struct {
	Store            string `yaml:"store"`
	DynamoDBEndpoint string `yaml:"dynamodbEndpoint"`
	DynamoDBTable    string `yaml:"dynamodbTable"`
}

type KVConfig struct {
	Backend       string `yaml:"backend"`
	RedisEndpoint string `yaml:"redisEndpoint"`
	SQLitePath    string `yaml:"sqlitePath"`
}

type QueueConfig struct {
	SQSEndpoint string `yaml:"sqsEndpoint"`
	Name        string `yaml:"name"`
}

// ImagesConfig points at an S3-compatible bucket. Uploads are disabled when
// Endpoint is empty.
type ImagesConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"-"`
	UseSSL    bool   `yaml:"useSSL"`
	Bucket    string `yaml:"bucket"`
}

type PersisterConfig struct {
	BufferSize   int           `yaml:"bufferSize"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// MailConfig is the SMTP relay for password reset links. Required outside
// dev mode; in dev mode reset tokens are only logged.
type MailConfig struct {
	SMTPHost string `yaml:"smtpHost"`
	SMTPPort string `yaml:"smtpPort"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
	From     string `yaml:"from"`
	// Page that accepts ?token= and calls the reset endpoint.
	ResetURL string `yaml:"resetUrl"`
}

type OAuthProvider struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"-"`
	RedirectURL  string `yaml:"redirectUrl"`
}

func Default() *Config {
	return &Config{
		HostPort: "8080",
		Documents: DocumentsConfig{
			Store:         DocumentsDynamo,
			DynamoDBTable: "Heartfolio",
		},
		KV: KVConfig{
			Backend:    KVRedis,
			SQLitePath: "heartfolio.db",
		},
		Queue: QueueConfig{
			Name: "HeartfolioJobsQueue",
		},
		Images: ImagesConfig{
			Bucket: "heartfolio-images",
		},
		Persister: PersisterConfig{
			BufferSize:   500,
			WriteTimeout: 10 * time.Second,
		},
		Mail: MailConfig{
			SMTPPort: "587",
		},
		OAuth: map[string]OAuthProvider{},
	}
}

// Load builds the configuration for a process started with args (without
// the program name). getenv is os.Getenv outside of tests.
func Load(args []string, getenv func(string) string) (*Config, error) {
	c := Default()

	flagSet := pflag.NewFlagSet("heartfolio", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to a YAML config file (default: $HEARTFOLIO_CONFIG)")
	devMode := flagSet.Bool("dev", false, "use local emulators for AWS and Redis")
	hostPort := flagSet.String("port", "", "port to listen on")
	documents := flagSet.String("documents", "", "document store: dynamo or local")
	kvBackend := flagSet.String("kv", "", "key-value backend: redis or sqlite")
	sqlitePath := flagSet.String("sqlite-path", "", "SQLite database file for the sqlite backend")
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if path == "" {
		path = getenv("HEARTFOLIO_CONFIG")
	}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := c.applyEnv(getenv); err != nil {
		return nil, err
	}

	if flagSet.Changed("dev") {
		c.DevMode = *devMode
	}
	if flagSet.Changed("port") {
		c.HostPort = *hostPort
	}
	if flagSet.Changed("documents") {
		c.Documents.Store = *documents
	}
	if flagSet.Changed("kv") {
		c.KV.Backend = *kvBackend
	}
	if flagSet.Changed("sqlite-path") {
		c.KV.SQLitePath = *sqlitePath
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, name string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("DEV_MODE"); v != "" {
		c.DevMode = v == "true"
	}
	set(&c.HostPort, "HOST_PORT")
	set(&c.AllowedOrigin, "ALLOWED_ORIGIN")
	set(&c.JWTSecret, "JWT_SECRET")

	set(&c.Documents.Store, "DOCUMENT_STORE")
	set(&c.Documents.DynamoDBEndpoint, "DYNAMODB_ENDPOINT")
	set(&c.Documents.DynamoDBTable, "DYNAMODB_TABLE")

	set(&c.KV.Backend, "KV_BACKEND")
	set(&c.KV.RedisEndpoint, "REDIS_ENDPOINT")
	set(&c.KV.SQLitePath, "SQLITE_PATH")

	set(&c.Queue.SQSEndpoint, "SQS_ENDPOINT")
	set(&c.Queue.Name, "SQS_QUEUE")

	set(&c.Images.Endpoint, "MINIO_ENDPOINT")
	set(&c.Images.AccessKey, "MINIO_ACCESS_KEY")
	set(&c.Images.SecretKey, "MINIO_SECRET_KEY")
	set(&c.Images.Bucket, "MINIO_BUCKET")
	if v := getenv("MINIO_USE_SSL"); v != "" {
		c.Images.UseSSL = v == "true"
	}

	set(&c.Mail.SMTPHost, "SMTP_HOST")
	set(&c.Mail.SMTPPort, "SMTP_PORT")
	set(&c.Mail.Username, "SMTP_USERNAME")
	set(&c.Mail.Password, "SMTP_PASSWORD")
	set(&c.Mail.From, "MAIL_FROM")
	set(&c.Mail.ResetURL, "RESET_URL")

	if v := getenv("PERSISTER_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PERSISTER_BUFFER: %w", err)
		}
		c.Persister.BufferSize = n
	}

	if c.OAuth == nil {
		c.OAuth = map[string]OAuthProvider{}
	}
	redirect := getenv("OAUTH_REDIRECT_URL")
	for provider, prefix := range map[string]string{"github": "GITHUB", "google": "GOOGLE"} {
		id := getenv(prefix + "_CLIENT_ID")
		if id == "" {
			continue
		}
		p := c.OAuth[provider]
		p.ClientID = id
		p.ClientSecret = getenv(prefix + "_CLIENT_SECRET")
		if redirect != "" {
			p.RedirectURL = redirect
		}
		c.OAuth[provider] = p
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HostPort == "" {
		errs = append(errs, errors.New("host port is empty"))
	}
	if c.Documents.Store != DocumentsDynamo && c.Documents.Store != DocumentsLocal {
		errs = append(errs, fmt.Errorf("unknown document store %q", c.Documents.Store))
	}
	switch c.KV.Backend {
	case KVRedis:
	case KVSQLite:
		if c.KV.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite backend needs a database path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kv backend %q", c.KV.Backend))
	}
	if c.Persister.BufferSize <= 0 {
		errs = append(errs, errors.New("persister buffer size must be positive"))
	}
	if c.Persister.WriteTimeout <= 0 {
		errs = append(errs, errors.New("persister write timeout must be positive"))
	}
	if c.Mail.SMTPHost == "" {
		if !c.DevMode {
			errs = append(errs, errors.New("an SMTP host is required outside dev mode"))
		}
	} else {
		if c.Mail.From == "" {
			errs = append(errs, errors.New("mail sender address is empty"))
		}
		if c.Mail.ResetURL == "" {
			errs = append(errs, errors.New("password reset url is empty"))
		}
	}
	if _, err := c.JWTKey(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// JWTKey decodes the base64 signing secret.
func (c *Config) JWTKey() ([]byte, error) {
	if c.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	key, err := base64.StdEncoding.DecodeString(c.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 jwt secret: %w", err)
	}
	return key, nil
}
