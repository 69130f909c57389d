package delivery

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"launchpad_backend/internal/email"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/storage"
)

const (
	TicketTemplate = "ticket_issued"
	defaultQRSize  = 512
	qrLinkExpiry   = 7 * 24 * time.Hour
)

// Deliverer hands an approved ticket to its holder.
type Deliverer interface {
	Deliver(ctx context.Context, ticket *models.Ticket) error
}

// RenderQR encodes payload as a PNG image.
func RenderQR(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

// TicketMailer stores the ticket's QR image and emails it to the holder.
type TicketMailer struct {
	provider      email.Provider
	store         storage.Storage
	verifyBaseURL string
	qrSize        int
}

func NewTicketMailer(provider email.Provider, store storage.Storage, verifyBaseURL string) *TicketMailer {
	return &TicketMailer{
		provider:      provider,
		store:         store,
		verifyBaseURL: verifyBaseURL,
		qrSize:        defaultQRSize,
	}
}

func (m *TicketMailer) Deliver(ctx context.Context, t *models.Ticket) error {
	payload := t.QRPayload(m.verifyBaseURL)
	png, err := RenderQR(payload, m.qrSize)
	if err != nil {
		return err
	}

	key := storage.TicketQRKey(t.ID)
	if err := m.store.Save(ctx, key, bytes.NewReader(png), "image/png"); err != nil {
		return fmt.Errorf("store qr: %w", err)
	}

	imageURL, err := m.store.URL(ctx, key, qrLinkExpiry)
	if err != nil {
		// the attachment still carries the code
		logger.CtxWarn(ctx, "qr url unavailable", "ticket_id", t.ID, "error", err)
		imageURL = ""
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	data := email.TemplateData{
		"HolderName": t.Holder.Name,
		"Plan":       t.PlanName,
		"Period":     t.Period,
		"VerifyURL":  payload,
		"QRImageURL": imageURL,
		"TicketCode": t.Code(),
	}
	subject := fmt.Sprintf("Your %s ticket", t.PlanName)
	attachment := email.Attachment{Name: "ticket-qr.png", Content: png, ContentType: "image/png"}

	if err := m.provider.SendTemplate([]string{t.Holder.Email}, subject, TicketTemplate, data, attachment); err != nil {
		return fmt.Errorf("send ticket email: %w", err)
	}
	logger.CtxInfo(ctx, "ticket delivered", "ticket_id", t.ID, "email", t.Holder.Email)
	return nil
}

// LogDeliverer only logs; used when email is disabled.
type LogDeliverer struct{}

func (LogDeliverer) Deliver(ctx context.Context, t *models.Ticket) error {
	logger.CtxInfo(ctx, "ticket delivery skipped (email disabled)", "ticket_id", t.ID, "email", t.Holder.Email)
	return nil
}
