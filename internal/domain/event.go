package domain

import (
	"context"
	"time"
)

// FileEvent is one broker notification announcing a new or updated report
// file on the data platform.
type FileEvent struct {
	Filename string
	URL      string
}

// PublishedAlertSet is the payload published on the distribution channel
// after one successful report cycle.
type PublishedAlertSet struct {
	Report      string    `json:"report"`
	PublishedAt time.Time `json:"published_at"`
	Alerts      AlertSet  `json:"alerts"`
}

// ChannelMessage is one unprocessed message from the distribution channel.
// Commit, when set, acknowledges the message after processing; the channel
// delivers at-least-once, so consumers must tolerate replays.
type ChannelMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
