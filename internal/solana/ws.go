package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to logs matching the filter and returns
	// the upstream subscription ID with the notification channel.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (int64, <-chan LogNotification, error)

	// UnsubscribeLogs releases a live subscription by its upstream ID.
	UnsubscribeLogs(ctx context.Context, subID int64) error

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these addresses.
	Mentions []string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
