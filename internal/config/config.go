/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the collection-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	SwiftWalletBaseURL   string `mapstructure:"SWIFTWALLET_BASE_URL"`
	SwiftWalletAPIKey    string `mapstructure:"SWIFTWALLET_API_KEY"`
	SwiftWalletChannelID string `mapstructure:"SWIFTWALLET_CHANNEL_ID"`
	CallbackURL          string `mapstructure:"CALLBACK_URL"`
	DefaultLoanAmount    string `mapstructure:"DEFAULT_LOAN_AMOUNT"`
	InternalAPIKey       string `mapstructure:"INTERNAL_API_KEY"`
	STKRateLimitPerMin   int    `mapstructure:"STK_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SWIFTWALLET_BASE_URL", "https://swiftwallet.co.ke/pay-app-v2")
	viper.SetDefault("SWIFTWALLET_CHANNEL_ID", "000411")
	viper.SetDefault("DEFAULT_LOAN_AMOUNT", "50000")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "swiftloan:rate_limit")
	viper.SetDefault("STK_RATE_LIMIT_PER_MINUTE", 5)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("SWIFTWALLET_BASE_URL")
	_ = viper.BindEnv("SWIFTWALLET_API_KEY")
	_ = viper.BindEnv("SWIFTWALLET_CHANNEL_ID")
	_ = viper.BindEnv("CALLBACK_URL")
	_ = viper.BindEnv("DEFAULT_LOAN_AMOUNT")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "COLLECTION_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("STK_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	if config.InternalAPIKey == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("COLLECTION_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "swiftloan:rate_limit"
	}
	config.SwiftWalletBaseURL = strings.TrimRight(strings.TrimSpace(config.SwiftWalletBaseURL), "/")
	config.DefaultLoanAmount = strings.TrimSpace(config.DefaultLoanAmount)
	if config.DefaultLoanAmount == "" {
		config.DefaultLoanAmount = "50000"
	}

	if config.STKRateLimitPerMin < 0 {
		log.Printf("level=warn component=config msg=\"negative stk rate limit configured; disabling\" limit=%d", config.STKRateLimitPerMin)
		config.STKRateLimitPerMin = 0
	}

	return
}
