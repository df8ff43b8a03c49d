package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Environment EnvironmentConfig
	Server      ServerConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	JWT         JWTConfig
	AMQP        AMQPConfig
	Tracing     TracingConfig
}

type EnvironmentConfig struct {
	Current string
}

type ServerConfig struct {
	Port string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey string
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type TracingConfig struct {
	OTLPEndpoint string
}

// LoadConfig reads configuration from app.{yaml,toml,...} and the environment,
// falling back to development defaults.
func LoadConfig() (config Config, err error) {
	viper.SetConfigName("app")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, err
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("environment.current", "development")
	viper.SetDefault("server.port", "8083")
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "chat_backend")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secretkey", "your_default_secret_change_in_production")
	viper.SetDefault("amqp.url", "")
	viper.SetDefault("amqp.exchange", "chat_events")
	viper.SetDefault("tracing.otlpendpoint", "")

	config.Environment.Current = viper.GetString("environment.current")
	config.Server.Port = viper.GetString("server.port")
	config.Mongo.URI = viper.GetString("mongo.uri")
	config.Mongo.Database = viper.GetString("mongo.database")
	config.Redis.Addr = viper.GetString("redis.addr")
	config.Redis.Password = viper.GetString("redis.password")
	config.Redis.DB = viper.GetInt("redis.db")
	config.JWT.SecretKey = viper.GetString("jwt.secretkey")
	config.AMQP.URL = viper.GetString("amqp.url")
	config.AMQP.Exchange = viper.GetString("amqp.exchange")
	config.Tracing.OTLPEndpoint = viper.GetString("tracing.otlpendpoint")

	return config, nil
}

func (c Config) IsDevelopment() bool {
	return c.Environment.Current == "development"
}
