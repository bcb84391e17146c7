package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// R2-Bucket für Vorlesungs-Audio und Entity-Bilder
	R2Key      string `envconfig:"R2_ACCESS_KEY" required:"true"`
	R2Secret   string `envconfig:"R2_SECRET_KEY" required:"true"`
	R2Endpoint string `envconfig:"R2_ENDPOINT" required:"true"`
	R2Region   string `envconfig:"R2_REGION" default:"auto"`
	R2Bucket   string `envconfig:"R2_BUCKET" required:"true"`

	// KI-Provider für Beschreibungen und Entity-Extraktion
	AIProvider   string `envconfig:"AI_PROVIDER" default:"gemini"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	// Nächtlicher Replay genehmigter Duplikat-Entscheidungen
	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`

	// Schwellwert für die Ähnlichkeitserkennung von Duplikaten
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.85"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
