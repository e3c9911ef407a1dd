package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                string // DEV (local; default), TEST, QA, PROD
		Debug              bool
		TestMode           bool
		AppName            string
		Build              string
		SecretKey          string
		JWTExpirationDelta time.Duration
		FrontendBaseURL    string
		DefaultFromEmail   mail.Address
		SendgridApiKey     string
		RollbarToken       string

		Server   ServerConfig
		Database DatabaseConfig
		Kafka    KafkaConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugAddress       string
		ShutdownTimeout    time.Duration
		AllowedOrigins     []string
		DisableRequestLogs bool
	}

	DatabaseConfig struct {
		Engine        string // sqlite (default), postgres, mongo
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file
		URI           string // mongo
	}

	KafkaConfig struct {
		Brokers []string
		Topic   string
	}
)

// Database engines
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineMongo    = "mongo"
)

func (db DatabaseConfig) Address() string {
	if db.Port == 0 {
		return db.Host
	}
	return db.Host + ":" + strconv.Itoa(db.Port)
}

func (db DatabaseConfig) IsSQL() bool {
	return db.Engine == EngineSQLite || db.Engine == EnginePostgres
}

// NewConfig loads the configuration for the current ENV from defaults, config/.env.<env>,
// an optional config/config.yaml and the environment.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	confDir := filepath.Join(Getwd(), "config")
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(confDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config file")
		}
	}
	v.AutomaticEnv()

	return fromViper(env, v)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Speech Practice")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "r3x8-kd(2mq!sv#0w7n^t+6p=azq5c$y1g*uh@e9l&jbo4f")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Speech Practice <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.disableRequestLogs", false)

	v.SetDefault("database.engine", EngineSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "speechpractice")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "speechpractice.db")
	v.SetDefault("database.uri", "mongodb://localhost:27017")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "captures")
}

func fromViper(env string, v *viper.Viper) (*Config, error) {
	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}

	conf := &Config{
		Env:                env,
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		AppName:            v.GetString("appName"),
		Build:              v.GetString("build"),
		SecretKey:          v.GetString("secretKey"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		FrontendBaseURL:    strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail:   *from,
		SendgridApiKey:     v.GetString("sendgridApiKey"),
		RollbarToken:       v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugAddress:       v.GetString("server.debugAddress"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			AllowedOrigins:     v.GetStringSlice("server.allowedOrigins"),
			DisableRequestLogs: v.GetBool("server.disableRequestLogs"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
			URI:           v.GetString("database.uri"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
	}

	switch conf.Database.Engine {
	case EngineSQLite, EnginePostgres, EngineMongo:
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
	return conf, nil
}
