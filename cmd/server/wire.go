package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/and161185/chirper/internal/config"
	"github.com/and161185/chirper/internal/events"
	"github.com/and161185/chirper/internal/imagestore"
	"github.com/and161185/chirper/internal/mailer"
)

// Breakers open after this many consecutive failures and probe again after the cooldown.
const (
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

func newImageStore(cfg config.ImagesConfig, log *zap.Logger) (imagestore.Store, error) {
	var (
		st  imagestore.Store
		err error
	)
	switch cfg.Driver {
	case "cloudinary":
		c := cfg.Cloudinary
		st, err = imagestore.NewCloudinary(c.CloudName, c.APIKey, c.APISecret, c.Folder)
	default:
		st, err = imagestore.NewLocal(cfg.LocalDir, cfg.PublicBaseURL)
	}
	if err != nil {
		return nil, err
	}
	return imagestore.NewBreaker(st, breakerThreshold, breakerCooldown, log), nil
}

// mediaDir is served under /media/ only for the local image driver.
func mediaDir(cfg config.ImagesConfig) string {
	if cfg.Driver == "local" {
		return cfg.LocalDir
	}
	return ""
}

func newMailer(cfg config.MailConfig, log *zap.Logger) mailer.Sender {
	if cfg.Driver != "smtp" {
		return mailer.NewLog(log)
	}
	smtp := mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		From:     cfg.From,
		FromName: cfg.FromName,
		UseTLS:   cfg.TLS,
		Timeout:  10 * time.Second,
	})
	return mailer.NewBreaker(smtp, breakerThreshold, breakerCooldown, log)
}

// newPublisher connects to NATS when configured. A failed connection degrades to no events.
func newPublisher(cfg config.NATSConfig, log *zap.Logger) (events.Publisher, func()) {
	if cfg.URL == "" {
		return events.Nop{}, func() {}
	}
	nc, err := events.Connect(cfg.URL, log)
	if err != nil {
		log.Warn("nats unavailable, notification events disabled", zap.Error(err))
		return events.Nop{}, func() {}
	}
	return nc, nc.Close
}
