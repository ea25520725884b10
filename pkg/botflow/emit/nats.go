package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/randalmurphal/botflow/pkg/botflow/inbound"
)

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSSink publishes events as JSON to <subject>.<update_type> with core
// NATS publish. Delivery is fire-and-forget. The event id travels in the
// Nats-Msg-Id header so a JetStream stream on the subject can deduplicate
// redeliveries.
type NATSSink struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
}

// NewNATSSink creates a sink over an existing publisher. The caller keeps
// ownership of the connection.
func NewNATSSink(pub Publisher, subject string) *NATSSink {
	return &NATSSink{pub: pub, subject: subject}
}

// ConnectNATS dials url and returns a sink that owns the connection.
func ConnectNATS(url, subject string) (*NATSSink, error) {
	nc, err := nats.Connect(url, nats.Name("botflow"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	slog.Info("nats connected", "url", nc.ConnectedUrlRedacted(), "subject", subject)
	return &NATSSink{pub: nc, conn: nc, subject: subject}, nil
}

// Subject returns the subject an event is published on.
func (s *NATSSink) Subject(pe inbound.ProcessedEvent) string {
	return s.subject + "." + pe.UpdateType().String()
}

// Emit implements Sink.
func (s *NATSSink) Emit(_ context.Context, pe inbound.ProcessedEvent) error {
	data, err := json.Marshal(pe)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", pe.EventID, err)
	}

	msg := nats.NewMsg(s.Subject(pe))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, pe.EventID)
	msg.Header.Set("Content-Type", "application/json")

	if err := s.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains the connection when the sink owns it.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}
