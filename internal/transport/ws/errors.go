package ws

import "errors"

var (
	// ErrFeedShutdown is reported to subscribers when the server stops the feed.
	ErrFeedShutdown = errors.New("event feed shutdown")
	// ErrSlowConsumer closes a connection whose outbound queue overflowed.
	ErrSlowConsumer = errors.New("event feed consumer too slow")
)
