package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

const (
	StreamName     = "DECONFLICT"
	SubjectAll     = "deconflict.>"
	SubjectPass    = "deconflict.pass"
	SubjectOutcome = "deconflict.outcome"
)

// Client represents a NATS client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a new NATS client
func New(url string) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	// Create stream if it doesn't exist
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectAll},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{
		conn: nc,
		js:   js,
	}, nil
}

func (c *Client) publish(ctx context.Context, subject string, v interface{}) error {
	if c.js == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := c.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishPass publishes the result of one pass
func (c *Client) PublishPass(ctx context.Context, event *types.PassEvent) error {
	if event == nil {
		return fmt.Errorf("nil pass event")
	}
	return c.publish(ctx, SubjectPass, event)
}

// PublishOutcome publishes how a run ended
func (c *Client) PublishOutcome(ctx context.Context, summary *types.RunSummary) error {
	if summary == nil {
		return fmt.Errorf("nil run summary")
	}
	return c.publish(ctx, SubjectOutcome, summary)
}

// SubscribePasses subscribes to pass events. The raw payload is passed
// along with the decoded event.
func (c *Client) SubscribePasses(handler func(event *types.PassEvent, raw []byte)) error {
	if handler == nil {
		return fmt.Errorf("nil handler")
	}
	if c.js == nil {
		return fmt.Errorf("not connected")
	}

	_, err := c.js.Subscribe(SubjectPass, func(msg *nats.Msg) {
		var event types.PassEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			fmt.Printf("Error unmarshaling pass event: %v\n", err)
			return
		}
		handler(&event, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
