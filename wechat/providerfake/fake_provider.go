package providerfake

import (
	"context"
	"sync"

	"github.com/tcmhub/wechat-login-bridge/wechat"
)

// FakeTicketProvider is an in-memory TicketProvider for tests
type FakeTicketProvider struct {
	mu     sync.Mutex
	Ticket wechat.QRTicket
	Err    error
	Scenes []string
}

// NewFakeTicketProvider creates a fake that succeeds with a canned ticket
func NewFakeTicketProvider() *FakeTicketProvider {
	return &FakeTicketProvider{
		Ticket: wechat.QRTicket{
			Ticket: "gQH47joAAAAAAAAAASxodHRwOi8vd2VpeGluLnFxLmNvbS9xL2taZ2Z3TVRt",
			URL:    "http://weixin.qq.com/q/kZgfwMTm72WWPkovabbI",
		},
	}
}

// CreateTemporaryQR records the requested scene and returns the canned
// ticket or the configured error.
func (f *FakeTicketProvider) CreateTemporaryQR(_ context.Context, scene string, expireSeconds int64) (wechat.QRTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return wechat.QRTicket{}, f.Err
	}

	f.Scenes = append(f.Scenes, scene)

	ticket := f.Ticket
	ticket.ExpireSeconds = expireSeconds
	if ticket.ImageURL == "" {
		ticket.ImageURL = wechat.ImageURL(ticket.Ticket)
	}
	return ticket, nil
}

var _ wechat.TicketProvider = (*FakeTicketProvider)(nil)
