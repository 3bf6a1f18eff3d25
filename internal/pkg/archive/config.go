package archive

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/campuscircle/campuscircle/internal/pkg/env"
)

// Config holds the S3 settings for the notification archive.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads the archive configuration from environment variables.
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "ap-southeast-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnvBool("S3_ARCHIVE_ENABLED", false),
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if archiving is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey returns where a raw notification is stored:
// payment-notifications/YYYY/MM/<order_id>/<ledger_id>.json
func ObjectKey(orderID string, ledgerID uint, receivedAt time.Time) string {
	order := url.PathEscape(strings.TrimSpace(orderID))
	return fmt.Sprintf("payment-notifications/%04d/%02d/%s/%d.json",
		receivedAt.Year(), int(receivedAt.Month()), order, ledgerID)
}
