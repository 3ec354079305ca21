package txservice

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/safelens/safelens/errors"
)

// Config holds the base URL and token used to reach a hosted transaction
// service, loaded from the process environment (optionally backed by a
// .env file), per the teacher's config.LoadFromEnv / godotenv convention.
type Config struct {
	BaseURL  string
	APIToken string
}

// LoadConfig loads TXSERVICE_BASE_URL (required) and TXSERVICE_API_TOKEN
// (optional) from the environment, first loading a ".env" file if one is
// present in the working directory (missing .env is not an error).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	baseURL := os.Getenv("TXSERVICE_BASE_URL")
	if baseURL == "" {
		return nil, errors.New(errors.CodeIO, "missing required environment variable TXSERVICE_BASE_URL", nil)
	}
	return &Config{
		BaseURL:  baseURL,
		APIToken: os.Getenv("TXSERVICE_API_TOKEN"),
	}, nil
}
