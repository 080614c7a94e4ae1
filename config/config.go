package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
	"live-class/constant"
	"live-class/tracing"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Session     Session       `yaml:"session"`
	Auth        Auth          `yaml:"auth"`
	Room        Room          `yaml:"room"`
	Catalog     Catalog       `yaml:"catalog"`
	Recording   Recording     `yaml:"recording"`
	Tracing     tracing.Config
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

type Session struct {
	MinLeadTime      time.Duration `yaml:"min_lead_time"`
	JoinGrace        time.Duration `yaml:"join_grace"`
	MaxParticipants  int           `yaml:"max_participants"`
	AllowedDurations []int         `yaml:"allowed_durations"`
	TokenTTL         time.Duration `yaml:"token_ttl"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type Room struct {
	TokenSecret string `yaml:"token_secret"`
	Issuer      string `yaml:"issuer"`
}

type Catalog struct {
	BaseURL      string        `yaml:"base_url"`
	ServiceToken string        `yaml:"service_token"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type Recording struct {
	UploadExpiry time.Duration `yaml:"upload_expiry"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", constant.EnvironmentDevelop.String())
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.workers", 2)
	v.SetDefault("rabbitmq_port", 5672)
	v.SetDefault("rabbitmq_kind", "direct")
	v.SetDefault("minio.bucket", "live-class")
	v.SetDefault("session.min_lead_time", "30m")
	v.SetDefault("session.join_grace", "30m")
	v.SetDefault("session.max_participants", 200)
	v.SetDefault("session.allowed_durations", []int{30, 60, 90, 120, 180})
	v.SetDefault("session.token_ttl", "2h")
	v.SetDefault("auth.issuer", "auth-service")
	v.SetDefault("room.issuer", "live-class")
	v.SetDefault("catalog.timeout", "5s")
	v.SetDefault("catalog.cache_ttl", "1m")
	v.SetDefault("recording.upload_expiry", "15m")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "live-class")
}

// Load reads config.yaml from path. A .env file in path is loaded into the
// environment first, and LIVECLASS_* variables override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(path + "/.env")

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LIVECLASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		MinIOBucket: v.GetString("minio.bucket"),
		App: App{
			Environment: v.GetString("app.environment"),
			Host:        v.GetString("app.host"),
			Protocol:    v.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: v.GetString("server.port"),
			Workers:  v.GetInt("server.workers"),
		},
		Session: Session{
			MinLeadTime:      v.GetDuration("session.min_lead_time"),
			JoinGrace:        v.GetDuration("session.join_grace"),
			MaxParticipants:  v.GetInt("session.max_participants"),
			AllowedDurations: v.GetIntSlice("session.allowed_durations"),
			TokenTTL:         v.GetDuration("session.token_ttl"),
		},
		Auth: Auth{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
		},
		Room: Room{
			TokenSecret: v.GetString("room.token_secret"),
			Issuer:      v.GetString("room.issuer"),
		},
		Catalog: Catalog{
			BaseURL:      v.GetString("catalog.base_url"),
			ServiceToken: v.GetString("catalog.service_token"),
			Timeout:      v.GetDuration("catalog.timeout"),
			CacheTTL:     v.GetDuration("catalog.cache_ttl"),
		},
		Recording: Recording{
			UploadExpiry: v.GetDuration("recording.upload_expiry"),
		},
		Tracing: tracing.Config{
			Enabled:      v.GetBool("tracing.enabled"),
			Exporter:     v.GetString("tracing.exporter"),
			OTLPEndpoint: v.GetString("tracing.otlp_endpoint"),
			SampleRate:   v.GetFloat64("tracing.sample_rate"),
			ServiceName:  v.GetString("tracing.service_name"),
		},
	}

	if host := v.GetString("rabbitmq_host"); host != "" {
		cfg.Queue = &RabbitMQ{
			Host: host,
			Port: v.GetInt("rabbitmq_port"),
			User: v.GetString("rabbitmq_user"),
			Pass: v.GetString("rabbitmq_pass"),
			Kind: v.GetString("rabbitmq_kind"),
		}
	}

	if dsn := v.GetString("postgresql_host"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		cfg.DB = db
	}

	if endpoint := v.GetString("minio.url"); endpoint != "" {
		minioClient, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(v.GetString("minio.access_id"), v.GetString("minio.secret_access_key"), ""),
			Secure: v.GetBool("minio.secure"),
		})
		if err != nil {
			return nil, err
		}
		cfg.Storage = minioClient
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var problems []error
	if c.Session.MinLeadTime < 0 {
		problems = append(problems, errors.New("session.min_lead_time must not be negative"))
	}
	if c.Session.MaxParticipants < 1 {
		problems = append(problems, errors.New("session.max_participants must be at least 1"))
	}
	for _, d := range c.Session.AllowedDurations {
		if d <= 0 {
			problems = append(problems, fmt.Errorf("session.allowed_durations contains %d", d))
		}
	}
	if c.Session.TokenTTL <= 0 {
		problems = append(problems, errors.New("session.token_ttl must be positive"))
	}
	// an empty HS256 key lets anyone sign tokens
	if c.App.Environment != constant.EnvironmentDevelop.String() {
		if c.Auth.JWTSecret == "" {
			problems = append(problems, fmt.Errorf("auth.jwt_secret is required in %s", c.App.Environment))
		}
		if c.Room.TokenSecret == "" {
			problems = append(problems, fmt.Errorf("room.token_secret is required in %s", c.App.Environment))
		}
	}
	if c.App.Environment == constant.EnvironmentProduction.String() {
		if c.DB == nil {
			problems = append(problems, errors.New("postgresql_host is required in production"))
		}
	}
	return errors.Join(problems...)
}
