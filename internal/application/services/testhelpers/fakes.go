package testhelpers

import (
	"context"
	"sync"

	"github.com/propertyops/rentledger/internal/application"
)

// FakeSender records sent notifications. SendFn overrides the default
// always-succeeds behavior.
type FakeSender struct {
	mu     sync.Mutex
	Sent   []SentNotification
	SendFn func(ctx context.Context, paymentID, templateID string, channels []string) (application.NotificationResult, error)
}

type SentNotification struct {
	PaymentID  string
	TemplateID string
	Channels   []string
}

var _ application.NotificationSender = (*FakeSender)(nil)

func (f *FakeSender) Send(ctx context.Context, paymentID, templateID string, channels []string) (application.NotificationResult, error) {
	if f.SendFn != nil {
		return f.SendFn(ctx, paymentID, templateID, channels)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, SentNotification{PaymentID: paymentID, TemplateID: templateID, Channels: channels})

	delivered := make(map[string]bool, len(channels))
	for _, ch := range channels {
		delivered[ch] = true
	}
	return application.NotificationResult{Success: true, Channels: delivered}, nil
}

// FakeInvoiceGenerator records generated invoices. GenerateFn overrides the
// default always-succeeds behavior.
type FakeInvoiceGenerator struct {
	mu         sync.Mutex
	Generated  []string
	GenerateFn func(ctx context.Context, paymentID string) (application.InvoiceResult, error)
}

var _ application.InvoiceGenerator = (*FakeInvoiceGenerator)(nil)

func (f *FakeInvoiceGenerator) Generate(ctx context.Context, paymentID string) (application.InvoiceResult, error) {
	if f.GenerateFn != nil {
		return f.GenerateFn(ctx, paymentID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Generated = append(f.Generated, paymentID)
	return application.InvoiceResult{Success: true, DocumentRef: "doc-" + paymentID}, nil
}
