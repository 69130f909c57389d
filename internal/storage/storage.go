package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("storage: object not found")

// Storage keeps rendered ticket artifacts (QR images).
type Storage interface {
	Save(ctx context.Context, key string, reader io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns a link usable from an email client. Private buckets get a
	// presigned link valid for expiry.
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type Config struct {
	Type       string // local, cloudflare_r2
	BasePath   string
	BaseURL    string
	Bucket     string
	AccountID  string
	AccessKey  string
	SecretKey  string
	PublicRead bool
}

func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStorage(cfg)
	case "cloudflare_r2":
		return NewCloudflareR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// TicketQRKey is where the QR image of a ticket lives.
func TicketQRKey(ticketID string) string {
	return "tickets/" + ticketID + ".png"
}
