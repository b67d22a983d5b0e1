package testutil

import (
	"context"
	"sync"

	"github.com/meridianlab/fieldstation/internal/mail"
)

// FakeMailer records send attempts instead of delivering them. Setting Err
// makes every send fail with that error; the attempt is still recorded so
// tests can inspect what would have gone out.
type FakeMailer struct {
	mu       sync.Mutex
	Err      error
	messages []*mail.Message
}

// Send implements mail.Mailer.
func (f *FakeMailer) Send(_ context.Context, msg *mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Copy so later caller mutations don't reach recorded state.
	recorded := *msg
	f.messages = append(f.messages, &recorded)

	return f.Err
}

// Attempts returns the messages recorded so far.
func (f *FakeMailer) Attempts() []*mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages
}
