package domain

import (
	"context"
	"io"
)

// Channel is the interface for user-facing I/O (Telegram, CLI).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
	Send(ctx context.Context, chatID string, content string) error
}

// FileDownloader fetches an attachment by its transport file ID.
type FileDownloader interface {
	Download(ctx context.Context, fileID string, dst io.Writer) error
}
