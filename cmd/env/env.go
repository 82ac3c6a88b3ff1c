// Package env defines the environment variables read by the CLI
package env

const (
	// Prefix is the prefix of every environment variable
	Prefix = "VESMONITOR"

	// DBURLSuffix is the Postgres connection string suffix
	DBURLSuffix = "_DB_URL"

	// RedisURLSuffix is the Redis connection string suffix
	RedisURLSuffix = "_REDIS_URL"

	// TelegramTokenSuffix is the Telegram bot token suffix
	TelegramTokenSuffix = "_TELEGRAM_TOKEN"
)
