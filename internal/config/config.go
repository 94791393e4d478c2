package config

import (
	"strings" // For env key normalization

	"github.com/joho/godotenv" // For loading .env files
	"github.com/spf13/viper"   // For defaults and typed lookups
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBDriver   string // mysql or sqlite
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	SQLitePath string // SQLite file when DBDriver is sqlite
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address, empty disables caching
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	SMTPHost   string // SMTP host, empty disables mail
	SMTPPort   int    // SMTP port
	SMTPUser   string // SMTP user
	SMTPPass   string // SMTP password
	MailFrom   string // Sender address
	SiteName   string // Name used in outgoing mail
	IsProd     bool   // Is production environment
}

// LoadConfig loads configuration from environment variables, an optional .env and config.yaml
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_NAME", "group_savings")
	v.SetDefault("SQLITE_PATH", "group_savings.db")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "no-reply@dreamland.local")
	v.SetDefault("SITE_NAME", "DreamLand Group")
	v.SetDefault("IS_PROD", false)
	_ = v.ReadInConfig() // config.yaml is optional

	return &Config{
		AppPort:    v.GetString("APP_PORT"),    // Application port
		DBDriver:   v.GetString("DB_DRIVER"),   // Database driver
		DBUser:     v.GetString("DB_USER"),     // Database user
		DBPassword: v.GetString("DB_PASSWORD"), // Database password
		DBHost:     v.GetString("DB_HOST"),     // Database host
		DBPort:     v.GetString("DB_PORT"),     // Database port
		DBName:     v.GetString("DB_NAME"),     // Database name
		SQLitePath: v.GetString("SQLITE_PATH"), // SQLite file
		JWTSecret:  v.GetString("JWT_SECRET"),  // JWT secret key
		RedisAddr:  v.GetString("REDIS_ADDR"),  // Redis server address
		RedisPass:  v.GetString("REDIS_PASS"),  // Redis password
		RedisDB:    v.GetInt("REDIS_DB"),       // Redis database number
		SMTPHost:   v.GetString("SMTP_HOST"),   // SMTP host
		SMTPPort:   v.GetInt("SMTP_PORT"),      // SMTP port
		SMTPUser:   v.GetString("SMTP_USER"),   // SMTP user
		SMTPPass:   v.GetString("SMTP_PASS"),   // SMTP password
		MailFrom:   v.GetString("MAIL_FROM"),   // Sender address
		SiteName:   v.GetString("SITE_NAME"),   // Site name for mail
		IsProd:     v.GetBool("IS_PROD"),       // Is production environment
	}
}

// DSN returns the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}
