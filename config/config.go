package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Application struct {
		Name         string
		Environment  string
		Port         int
		Debug        bool
		Timeout      time.Duration
		OTLPEndpoint string
	}

	Postgres struct {
		Host         string
		Port         int
		User         string
		Password     string
		Name         string
		SSLMode      string
		MaxOpenConns int
		MaxIdleConns int
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Kafka struct {
		BootstrapServers string
	}

	JWT struct {
		PrivateKey []byte
		PublicKey  []byte
	}

	CORS struct {
		AllowedOrigins   []string
		AllowedMethods   []string
		AllowedHeaders   []string
		ExposedHeaders   []string
		MaxAge           int
		AllowCredentials bool
	}

	Ticketing struct {
		SigningKeys      map[string]string
		ActiveKeyVersion string
		ReplayWindow     time.Duration
	}

	Gate struct {
		DeviceID         string
		ServerBaseURL    string
		APIToken         string
		DBPath           string
		Port             int
		SyncInterval     time.Duration
		BootstrapWindow  time.Duration
		MaxQueuedOps     int
		CacheTTL         time.Duration
		MaxRetries       int
	}
}

var (
	c    *Config
	once sync.Once
)

// Get loads the configuration once from the environment, with an
// optional config.yaml next to the binary for local development.
func Get() *Config {
	once.Do(func() {
		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		v.ReadInConfig()

		v.SetDefault("application.name", "tm-gate")
		v.SetDefault("application.environment", "development")
		v.SetDefault("application.port", 9000)
		v.SetDefault("application.timeout", "30s")
		v.SetDefault("application.otlpendpoint", "localhost:4318")
		v.SetDefault("postgres.host", "localhost")
		v.SetDefault("postgres.port", 5432)
		v.SetDefault("postgres.sslmode", "disable")
		v.SetDefault("postgres.maxopenconns", 25)
		v.SetDefault("postgres.maxidleconns", 5)
		v.SetDefault("redis.addr", "localhost:6379")
		v.SetDefault("kafka.bootstrapservers", "localhost:9092")
		v.SetDefault("ticketing.activekeyversion", "v1")
		v.SetDefault("ticketing.replaywindow", "5m")
		v.SetDefault("gate.port", 9100)
		v.SetDefault("gate.dbpath", "tm-gate-device.db")
		v.SetDefault("gate.syncinterval", "30s")
		v.SetDefault("gate.bootstrapwindow", "60m")
		v.SetDefault("gate.maxqueuedops", 500)
		v.SetDefault("gate.cachettl", "15m")
		v.SetDefault("gate.maxretries", 8)

		cfg := &Config{}
		cfg.Application.Name = v.GetString("application.name")
		cfg.Application.Environment = v.GetString("application.environment")
		cfg.Application.Port = v.GetInt("application.port")
		cfg.Application.Debug = v.GetBool("application.debug")
		cfg.Application.Timeout = v.GetDuration("application.timeout")
		cfg.Application.OTLPEndpoint = v.GetString("application.otlpendpoint")

		cfg.Postgres.Host = v.GetString("postgres.host")
		cfg.Postgres.Port = v.GetInt("postgres.port")
		cfg.Postgres.User = v.GetString("postgres.user")
		cfg.Postgres.Password = v.GetString("postgres.password")
		cfg.Postgres.Name = v.GetString("postgres.name")
		cfg.Postgres.SSLMode = v.GetString("postgres.sslmode")
		cfg.Postgres.MaxOpenConns = v.GetInt("postgres.maxopenconns")
		cfg.Postgres.MaxIdleConns = v.GetInt("postgres.maxidleconns")

		cfg.Redis.Addr = v.GetString("redis.addr")
		cfg.Redis.Password = v.GetString("redis.password")
		cfg.Redis.DB = v.GetInt("redis.db")

		cfg.Kafka.BootstrapServers = v.GetString("kafka.bootstrapservers")

		cfg.JWT.PrivateKey = []byte(v.GetString("jwt.privatekey"))
		cfg.JWT.PublicKey = []byte(v.GetString("jwt.publickey"))

		cfg.CORS.AllowedOrigins = v.GetStringSlice("cors.allowedorigins")
		cfg.CORS.AllowedMethods = v.GetStringSlice("cors.allowedmethods")
		cfg.CORS.AllowedHeaders = v.GetStringSlice("cors.allowedheaders")
		cfg.CORS.ExposedHeaders = v.GetStringSlice("cors.exposedheaders")
		cfg.CORS.MaxAge = v.GetInt("cors.maxage")
		cfg.CORS.AllowCredentials = v.GetBool("cors.allowcredentials")

		cfg.Ticketing.SigningKeys = v.GetStringMapString("ticketing.signingkeys")
		cfg.Ticketing.ActiveKeyVersion = v.GetString("ticketing.activekeyversion")
		cfg.Ticketing.ReplayWindow = v.GetDuration("ticketing.replaywindow")

		cfg.Gate.DeviceID = v.GetString("gate.deviceid")
		cfg.Gate.ServerBaseURL = v.GetString("gate.serverbaseurl")
		cfg.Gate.APIToken = v.GetString("gate.apitoken")
		cfg.Gate.DBPath = v.GetString("gate.dbpath")
		cfg.Gate.Port = v.GetInt("gate.port")
		cfg.Gate.SyncInterval = v.GetDuration("gate.syncinterval")
		cfg.Gate.BootstrapWindow = v.GetDuration("gate.bootstrapwindow")
		cfg.Gate.MaxQueuedOps = v.GetInt("gate.maxqueuedops")
		cfg.Gate.CacheTTL = v.GetDuration("gate.cachettl")
		cfg.Gate.MaxRetries = v.GetInt("gate.maxretries")

		c = cfg
	})

	return c
}
