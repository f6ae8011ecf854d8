// Package configs contains the system configurations.
package configs

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of the environment variables that override the config file.
	EnvPrefix = "CLINIC"

	AuditLogPostgres = "postgres"
	AuditLogMongo    = "mongo"
)

type configData struct {
	ServerPort     int32         `mapstructure:"port"`
	DatabaseDSN    string        `mapstructure:"database_dsn"`
	DatabaseDriver string        `mapstructure:"database_driver"`
	PrivateKeyFile string        `mapstructure:"private_key_file"`
	Timezone       string        `mapstructure:"timezone"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	LogLevel       string        `mapstructure:"log_level"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	AuditLogStore  string        `mapstructure:"audit_log_store"`
	MongoURI       string        `mapstructure:"mongo_uri"`
	MongoDatabase  string        `mapstructure:"mongo_database"`
}

// Config holds the system configuration.
type Config interface {
	ServerPort() int32
	DatabaseDSN() string
	DatabaseDriver() string
	PrivateKeyFile() string
	PrivateKey() rsa.PrivateKey

	// Location is the clinic timezone, used to decide what "today" and "now" mean.
	Location() *time.Location

	// SweepInterval is how often missed appointments are swept.
	SweepInterval() time.Duration
	LogLevel() string
	RedisAddr() string
	RedisPassword() string

	// AuditLogStore is the backend of the appointment audit log, postgres or mongo.
	AuditLogStore() string
	MongoURI() string
	MongoDatabase() string
}

type defaultConfig struct {
	data       *configData
	privateKey *rsa.PrivateKey
	location   *time.Location
}

func (c *defaultConfig) ServerPort() int32 {
	return c.data.ServerPort
}

func (c *defaultConfig) DatabaseDSN() string {
	return c.data.DatabaseDSN
}

func (c *defaultConfig) DatabaseDriver() string {
	return c.data.DatabaseDriver
}

func (c *defaultConfig) PrivateKeyFile() string {
	return c.data.PrivateKeyFile
}

func (c *defaultConfig) PrivateKey() rsa.PrivateKey {
	return *c.privateKey
}

func (c *defaultConfig) Location() *time.Location {
	return c.location
}

func (c *defaultConfig) SweepInterval() time.Duration {
	return c.data.SweepInterval
}

func (c *defaultConfig) LogLevel() string {
	return c.data.LogLevel
}

func (c *defaultConfig) RedisAddr() string {
	return c.data.RedisAddr
}

func (c *defaultConfig) RedisPassword() string {
	return c.data.RedisPassword
}

func (c *defaultConfig) AuditLogStore() string {
	return c.data.AuditLogStore
}

func (c *defaultConfig) MongoURI() string {
	return c.data.MongoURI
}

func (c *defaultConfig) MongoDatabase() string {
	return c.data.MongoDatabase
}

func (c *defaultConfig) loadPrivateKey(configPath string) error {
	path := c.PrivateKeyFile()
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join(filepath.Dir(configPath), path)
		}
	}
	pemFile, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	privatePem, _ := pem.Decode(pemFile)
	if privatePem == nil {
		return errors.New("the given private key is not a PEM file")
	}
	pk, err := x509.ParsePKCS1PrivateKey(privatePem.Bytes)
	if err != nil {
		return err
	}
	c.privateKey = pk
	return nil
}

func (c *defaultConfig) validate() error {
	if c.data.ServerPort <= 0 {
		return errors.New("port must be a positive number")
	}
	if c.data.SweepInterval <= 0 {
		return errors.New("sweep_interval must be a positive duration")
	}
	switch c.data.AuditLogStore {
	case AuditLogPostgres:
	case AuditLogMongo:
		if c.data.MongoURI == "" {
			return errors.New("mongo_uri is required when audit_log_store is mongo")
		}
	default:
		return fmt.Errorf("unknown audit_log_store %q", c.data.AuditLogStore)
	}
	return nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// every key needs a default so environment overrides reach Unmarshal
	v.SetDefault("port", 8080)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("private_key_file", "")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("sweep_interval", "12h")
	v.SetDefault("log_level", "info")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("audit_log_store", AuditLogPostgres)
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", "clinic")
	return v
}

// Load loads the given configuration file. Environment variables prefixed with CLINIC_
// take precedence over the file.
func Load(configPath string) (Config, error) {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("an occurred while loading config file: %w", err)
	}
	data := &configData{}
	if err := v.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("an occurred while parsing config file: %w", err)
	}
	configuration := &defaultConfig{data: data}
	if err := configuration.validate(); err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(data.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	configuration.location = location
	if configuration.PrivateKeyFile() != "" {
		if err = configuration.loadPrivateKey(configPath); err != nil {
			return nil, err
		}
	}
	return configuration, nil
}

// MustLoad loads the given configuration file and if any error occurs, will panic.
func MustLoad(configPath string) Config {
	config, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return config
}
