package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds application configuration
type Config struct {
	// API settings
	APIPort  string
	LogLevel string

	// WhatsApp settings
	SessionDBPath        string
	CountryCode          string
	ConnectTimeout       time.Duration
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int

	// Message history settings (optional)
	HistoryEnabled bool
	MSSQLServer    string
	MSSQLDatabase  string
	MSSQLUsername  string
	MSSQLPassword  string
}

// LoadConfig loads configuration from config.ini file or environment variables
func LoadConfig() *Config {
	config := &Config{
		// API settings
		APIPort:  getEnv("API_PORT", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// WhatsApp settings
		SessionDBPath:        getEnv("SESSION_DB_PATH", "db/session.db"),
		CountryCode:          getEnv("COUNTRY_CODE", "91"),
		ConnectTimeout:       60 * time.Second,
		ReconnectInterval:    10 * time.Second,
		MaxReconnectAttempts: 5,

		// Message history settings
		HistoryEnabled: getEnv("HISTORY_ENABLED", "") == "true",
		MSSQLServer:    getEnv("MSSQL_SERVER", "localhost"),
		MSSQLDatabase:  getEnv("MSSQL_DATABASE", "whatsapp_checker"),
		MSSQLUsername:  getEnv("MSSQL_USERNAME", "sa"),
		MSSQLPassword:  getEnv("MSSQL_PASSWORD", ""),
	}

	// Try to load from config.ini file
	if err := loadFromINI(config); err != nil {
		log.Printf("Warning: Failed to load config.ini: %v", err)
		log.Println("Using environment variables or defaults")
	}

	return config
}

// loadFromINI loads configuration from config.ini file
func loadFromINI(config *Config) error {
	cfg, err := ini.Load("config.ini")
	if err != nil {
		return err
	}

	// API section
	if apiSection := cfg.Section("api"); apiSection != nil {
		if port := apiSection.Key("port").String(); port != "" {
			config.APIPort = port
		}
		if level := apiSection.Key("log_level").String(); level != "" {
			config.LogLevel = level
		}
	}

	// WhatsApp section
	if waSection := cfg.Section("whatsapp"); waSection != nil {
		if path := waSection.Key("session_db_path").String(); path != "" {
			config.SessionDBPath = path
		}
		if cc := waSection.Key("country_code").String(); cc != "" {
			config.CountryCode = cc
		}
		if timeout := waSection.Key("connect_timeout_seconds").String(); timeout != "" {
			if val, err := strconv.Atoi(timeout); err == nil && val > 0 {
				config.ConnectTimeout = time.Duration(val) * time.Second
			}
		}
		if interval := waSection.Key("reconnect_interval_seconds").String(); interval != "" {
			if val, err := strconv.Atoi(interval); err == nil && val > 0 {
				config.ReconnectInterval = time.Duration(val) * time.Second
			}
		}
		if attempts := waSection.Key("max_reconnect_attempts").String(); attempts != "" {
			if val, err := strconv.Atoi(attempts); err == nil && val > 0 {
				config.MaxReconnectAttempts = val
			}
		}
	}

	// Database section
	if dbSection := cfg.Section("database"); dbSection != nil {
		if enabled := dbSection.Key("history_enabled").String(); enabled != "" {
			config.HistoryEnabled = enabled == "true"
		}
		if server := dbSection.Key("mssql_server").String(); server != "" {
			config.MSSQLServer = server
		}
		if database := dbSection.Key("mssql_database").String(); database != "" {
			config.MSSQLDatabase = database
		}
		if username := dbSection.Key("mssql_username").String(); username != "" {
			config.MSSQLUsername = username
		}
		if password := dbSection.Key("mssql_password").String(); password != "" {
			config.MSSQLPassword = password
		}
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
