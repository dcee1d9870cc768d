package evolution

import (
	"context"
	"log"
)

// LogSink prints outbound messages instead of delivering them. Used when no
// Evolution API credentials are configured, typically in local development.
type LogSink struct{}

func (LogSink) SendText(_ context.Context, recipient, text string) error {
	log.Printf("outbound -> %s: %s", recipient, text)
	return nil
}
