package mail

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// LogMailer writes messages to the log instead of delivering them. Bodies
// contain single-use links, so they are only logged when IncludeBody is
// set, which should be limited to local development.
type LogMailer struct {
	Logger      *slog.Logger
	IncludeBody bool
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return ErrNoRecipient
	}

	masked := make([]string, len(recipients))
	for i, r := range recipients {
		masked[i] = slogx.MaskEmail(r)
	}

	log := m.Logger
	if log == nil {
		log = slogx.FromContext(ctx)
	}

	attrs := []any{"to", strings.Join(masked, ","), "subject", msg.Subject}
	if m.IncludeBody {
		attrs = append(attrs, "body", msg.Body)
	}
	log.InfoContext(ctx, "mail not delivered (log driver)", attrs...)
	return nil
}

// Outbox records messages in memory. It backs tests and can be told to
// fail to exercise delivery error paths.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func (o *Outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return o.err
	}
	if len(uniqueAddresses(msg.To)) == 0 {
		return ErrNoRecipient
	}
	o.messages = append(o.messages, msg)
	return nil
}

// FailWith makes subsequent sends return err; nil restores delivery.
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

// Messages returns a copy of everything sent so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.messages...)
}

// Last returns the most recent message sent to addr.
func (o *Outbox) Last(addr string) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		for _, to := range o.messages[i].To {
			if strings.EqualFold(to, addr) {
				return o.messages[i], true
			}
		}
	}
	return Message{}, false
}
