package delivery

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad_backend/internal/email"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/storage"
)

type recordingProvider struct {
	to          []string
	template    string
	data        email.TemplateData
	attachments []email.Attachment
	err         error
}

func (p *recordingProvider) Send(*email.Email) error { return p.err }
func (p *recordingProvider) Validate() error        { return nil }
func (p *recordingProvider) SendTemplate(to []string, _ string, name string, data email.TemplateData, attachments ...email.Attachment) error {
	p.to, p.template, p.data, p.attachments = to, name, data, attachments
	return p.err
}

func newTicket() *models.Ticket {
	return &models.Ticket{
		BaseModel: models.BaseModel{ID: "5f0c3c9e-1f55-4c1b-9a57-0d5a4c7f2b10"},
		Holder:    models.Holder{Name: "Amina", Email: "a@x.com"},
		PlanName:  "Pro",
		Period:    "monthly",
		State:     models.TicketStateApproved,
	}
}

func TestRenderQR_ProducesPNG(t *testing.T) {
	data, err := RenderQR("https://example.com/verify?ticket=abc", 256)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

func TestTicketMailer_StoresQRAndSendsTemplate(t *testing.T) {
	logger.Init("test")
	ctx := context.Background()
	store, err := storage.NewLocalStorage(storage.Config{BasePath: t.TempDir(), BaseURL: "https://files.example.com"})
	require.NoError(t, err)
	provider := &recordingProvider{}

	ticket := newTicket()
	m := NewTicketMailer(provider, store, "https://example.com/verify")
	require.NoError(t, m.Deliver(ctx, ticket))

	assert.Equal(t, []string{"a@x.com"}, provider.to)
	assert.Equal(t, TicketTemplate, provider.template)
	assert.Equal(t, ticket.Code(), provider.data["TicketCode"])
	assert.Equal(t, "https://files.example.com/"+storage.TicketQRKey(ticket.ID), provider.data["QRImageURL"])
	require.Len(t, provider.attachments, 1)

	rc, err := store.Get(ctx, storage.TicketQRKey(ticket.ID))
	require.NoError(t, err)
	stored, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, provider.attachments[0].Content, stored)
}

func TestTicketMailer_ProviderFailureSurfaces(t *testing.T) {
	logger.Init("test")
	store, err := storage.NewLocalStorage(storage.Config{BasePath: t.TempDir()})
	require.NoError(t, err)
	smtpDown := errors.New("dial tcp: connection refused")

	m := NewTicketMailer(&recordingProvider{err: smtpDown}, store, "https://example.com/verify")
	err = m.Deliver(context.Background(), newTicket())
	assert.ErrorIs(t, err, smtpDown)
}
