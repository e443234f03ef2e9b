package config

import (
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	U "attribution/util"
)

const (
	DEVELOPMENT = "development"
	STAGING     = "staging"
	PRODUCTION  = "production"
)

type DBConf struct {
	Host     string `json:"host" envconfig:"host"`
	Port     int    `json:"port" envconfig:"port"`
	User     string `json:"user" envconfig:"user"`
	Name     string `json:"name" envconfig:"name"`
	Password string `json:"password" envconfig:"password"`

	MaxOpenConnections int `json:"max_open_connections"`
	MaxIdleConnections int `json:"max_idle_connections"`
}

// PostgresDefaultDBParams are the development defaults. Production values
// come from flags or the ATTRIBUTION_DB_* environment.
var PostgresDefaultDBParams = DBConf{
	Host:     "localhost",
	Port:     5432,
	User:     "autometa",
	Name:     "autometa",
	Password: "@ut0me7a",
}

type Configuration struct {
	AppName string `json:"app_name"`
	Env     string `json:"env"`

	DBInfo DBConf `json:"db"`

	// Timezone used to bucket order timestamps into hour windows. Must
	// match the timezone the ad-insights feed labels its hourly windows in.
	Timezone string `json:"timezone"`

	// NumRoutines controls the per-order processing fan-out.
	NumRoutines int `json:"num_routines"`

	AttributionDebug int `json:"attribution_debug"`
}

type Services struct {
	Db *gorm.DB
}

var configuration *Configuration
var services *Services = &Services{}

// InitConf validates and installs the process configuration and sets up
// logging. Must be called before InitDB.
func InitConf(config *Configuration) error {
	if config.Env != DEVELOPMENT && config.Env != STAGING && config.Env != PRODUCTION {
		return fmt.Errorf("env [ %s ] not recognised", config.Env)
	}
	if config.Timezone == "" {
		config.Timezone = string(U.TimeZoneStringIST)
	}
	if config.NumRoutines < 1 {
		config.NumRoutines = 1
	}

	configuration = config
	initLogging()
	return nil
}

func initLogging() {
	// Log as JSON on staging/production, human readable in development.
	if !IsDevelopment() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetLevel(log.DebugLevel)
	}
}

// OverrideDBConfFromEnv fills unset DB params from the ATTRIBUTION_DB_*
// environment. Flags win over env, env wins over defaults.
func OverrideDBConfFromEnv(conf *DBConf) {
	var envParams DBConf
	if err := envconfig.Process("attribution_db", &envParams); err != nil {
		log.WithError(err).Warn("Failed to read db conf from environment.")
		return
	}
	if conf.Host == PostgresDefaultDBParams.Host && envParams.Host != "" {
		conf.Host = envParams.Host
	}
	if conf.Port == PostgresDefaultDBParams.Port && envParams.Port != 0 {
		conf.Port = envParams.Port
	}
	if conf.User == PostgresDefaultDBParams.User && envParams.User != "" {
		conf.User = envParams.User
	}
	if conf.Name == PostgresDefaultDBParams.Name && envParams.Name != "" {
		conf.Name = envParams.Name
	}
	if conf.Password == PostgresDefaultDBParams.Password && envParams.Password != "" {
		conf.Password = envParams.Password
	}
}

// InitDB opens the postgres connection pool used by the store layer.
func InitDB(config Configuration) error {
	dbConf := config.DBInfo
	connStr := fmt.Sprintf("host=%s port=%d user=%s dbname=%s password=%s sslmode=disable",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Name, dbConf.Password)

	db, err := gorm.Open("postgres", connStr)
	if err != nil {
		return errors.Wrap(err, "failed to connect to postgres")
	}

	if dbConf.MaxOpenConnections > 0 {
		db.DB().SetMaxOpenConns(dbConf.MaxOpenConnections)
	}
	if dbConf.MaxIdleConnections > 0 {
		db.DB().SetMaxIdleConns(dbConf.MaxIdleConnections)
	}
	db.LogMode(IsDevelopment())

	services.Db = db
	return nil
}

// SetDBForTest installs an externally constructed gorm handle. Only for
// store tests running against sqlmock.
func SetDBForTest(db *gorm.DB) {
	services.Db = db
}

func GetServices() *Services {
	return services
}

func GetConfig() *Configuration {
	return configuration
}

func IsDevelopment() bool {
	return configuration == nil || configuration.Env == DEVELOPMENT
}

func GetTimezone() U.TimeZoneString {
	if configuration == nil || configuration.Timezone == "" {
		return U.TimeZoneStringIST
	}
	return U.TimeZoneString(configuration.Timezone)
}

func GetAttributionDebug() int {
	if configuration == nil {
		return 0
	}
	return configuration.AttributionDebug
}

func GetNumRoutines() int {
	if configuration == nil || configuration.NumRoutines < 1 {
		return 1
	}
	return configuration.NumRoutines
}

// GetAppName allows jobs to override the default app name for log scoping.
func GetAppName(defaultName, override string) string {
	if override != "" {
		return override
	}
	return defaultName
}

// SafeFlushAllCollectors closes the DB pool at job exit.
func SafeFlushAllCollectors() {
	if services.Db != nil {
		if err := services.Db.Close(); err != nil {
			log.WithError(err).Error("Failed to close db connection pool.")
		}
	}
}
