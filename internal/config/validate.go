package config

import (
	"errors"
	"fmt"
)

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var problems []error

	switch c.Environment {
	case "development", "production", "test":
	default:
		problems = append(problems, fmt.Errorf("environment: unknown %q", c.Environment))
	}

	if c.Auth.AccessSecret == "" {
		problems = append(problems, errors.New("auth.access_secret is required"))
	}
	if c.Auth.RefreshSecret == "" {
		problems = append(problems, errors.New("auth.refresh_secret is required"))
	}
	if c.Auth.AccessSecret != "" && c.Auth.AccessSecret == c.Auth.RefreshSecret {
		problems = append(problems, errors.New("auth.access_secret and auth.refresh_secret must differ"))
	}
	for name, d := range map[string]int64{
		"auth.access_ttl":        int64(c.Auth.AccessTTL),
		"auth.refresh_ttl":       int64(c.Auth.RefreshTTL),
		"auth.reset_ttl":         int64(c.Auth.ResetTTL),
		"auth.limiter_window":    int64(c.Auth.LimiterWindow),
		"auth.limiter_block_for": int64(c.Auth.LimiterBlockFor),
	} {
		if d <= 0 {
			problems = append(problems, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Auth.LimiterMaxFails <= 0 {
		problems = append(problems, errors.New("auth.limiter_max_fails must be positive"))
	}

	if err := c.Store.Validate(); err != nil {
		problems = append(problems, err)
	}

	switch c.Images.Driver {
	case "local":
		if c.Images.LocalDir == "" || c.Images.PublicBaseURL == "" {
			problems = append(problems, errors.New("images.local_dir and images.public_base_url are required"))
		}
	case "cloudinary":
		cl := c.Images.Cloudinary
		if cl.CloudName == "" || cl.APIKey == "" || cl.APISecret == "" {
			problems = append(problems, errors.New("images.cloudinary credentials are required"))
		}
	default:
		problems = append(problems, fmt.Errorf("images.driver: unknown %q", c.Images.Driver))
	}

	switch c.Mail.Driver {
	case "log":
	case "smtp":
		if c.Mail.Host == "" || c.Mail.Port <= 0 || c.Mail.From == "" {
			problems = append(problems, errors.New("mail.host, mail.port and mail.from are required"))
		}
	default:
		problems = append(problems, fmt.Errorf("mail.driver: unknown %q", c.Mail.Driver))
	}

	if c.Upload.MaxBytes <= 0 {
		problems = append(problems, errors.New("upload.max_bytes must be positive"))
	}
	if len(c.Upload.AllowedMimes) == 0 {
		problems = append(problems, errors.New("upload.allowed_mimes must not be empty"))
	}

	return errors.Join(problems...)
}

// Validate checks the selected store driver and its connection settings.
func (s *StoreConfig) Validate() error {
	switch s.Driver {
	case "postgres":
		if s.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required")
		}
	case "mongo":
		if s.Mongo.URI == "" || s.Mongo.Database == "" {
			return errors.New("store.mongo.uri and store.mongo.database are required")
		}
	default:
		return fmt.Errorf("store.driver: unknown %q", s.Driver)
	}
	return nil
}
