package queue

import "context"

const (
	// BulkImportQueue is the work queue carrying bulk hospital imports.
	BulkImportQueue = "bulk.hospitals"
	// BulkImportDLQ receives messages whose retry budget is exhausted.
	BulkImportDLQ = "dlq.bulk.hospitals"

	dlxExchangeName = "registry.dlx"
	dlxRoutingKey   = "bulk.hospitals"
)

// Publisher publishes bulk-import messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg BulkImportMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg BulkImportMessage) error

// Consumer consumes bulk-import messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
