package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment       string
	DBHost            string
	DBPort            string
	DBUsername        string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	Port              string
	Timezone          string
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	MailFromAddress   string
	MailFromName      string
	AdminEmail        string
	SchedulerPollSecs int
	MockMail          bool
}

func NewConfig() (*Config, error) {
	env := os.Getenv("FIELDSTATION_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	pollSecs, err := strconv.Atoi(getEnvOrDefault("FIELDSTATION_SCHEDULER_POLL_SECONDS", "30"))
	if err != nil || pollSecs <= 0 {
		pollSecs = 30
	}

	config := &Config{
		Environment:       env,
		DBHost:            getEnvOrDefault("FIELDSTATION_DB_HOST", "localhost"),
		DBPort:            getEnvOrDefault("FIELDSTATION_DB_PORT", "5432"),
		DBUsername:        getEnvOrDefault("FIELDSTATION_DB_USER", "fieldstation"),
		DBPassword:        os.Getenv("FIELDSTATION_DB_PASSWORD"),
		DBName:            getEnvOrDefault("FIELDSTATION_DB_NAME", "fieldstation"),
		DBSSLMode:         getEnvOrDefault("FIELDSTATION_DB_SSLMODE", "disable"),
		Port:              getEnvOrDefault("PORT", "8080"),
		Timezone:          getEnvOrDefault("TZ", "UTC"),
		SMTPHost:          getEnvOrDefault("FIELDSTATION_SMTP_HOST", "localhost"),
		SMTPPort:          getEnvOrDefault("FIELDSTATION_SMTP_PORT", "587"),
		SMTPUsername:      os.Getenv("FIELDSTATION_SMTP_USER"),
		SMTPPassword:      os.Getenv("FIELDSTATION_SMTP_PASSWORD"),
		MailFromAddress:   getEnvOrDefault("FIELDSTATION_MAIL_FROM", "noreply@fieldstation.example"),
		MailFromName:      getEnvOrDefault("FIELDSTATION_MAIL_FROM_NAME", "Fieldstation"),
		AdminEmail:        getEnvOrDefault("FIELDSTATION_ADMIN_EMAIL", "admin@fieldstation.example"),
		SchedulerPollSecs: pollSecs,
		MockMail:          os.Getenv("FIELDSTATION_MOCK_MAIL") == "true",
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("FIELDSTATION_DB_PASSWORD is required")
	}

	if !c.MockMail && c.SMTPHost == "" {
		return fmt.Errorf("FIELDSTATION_SMTP_HOST is required unless FIELDSTATION_MOCK_MAIL=true")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// GetSMTPAddress returns the host:port the mailer submits to.
func (c *Config) GetSMTPAddress() string {
	return c.SMTPHost + ":" + c.SMTPPort
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
