// Package domain defines the dispatcher types and ports
package domain

import "context"

// Delivery is one outbound platform action
type Delivery struct {
	ItemID     string
	Platform   string
	Account    string
	ExternalID string
	ContentID  string
	Action     string // reply | moderate | archive
	Payload    string
}

// Receipt is the platform's acknowledgement. PlatformID is the id of the
// created reply; empty for moderate and archive actions
type Receipt struct {
	PlatformID string
}

// Deliverer performs one delivery attempt. It must not retry internally;
// the queue owns the retry budget. Failures carry platform error codes
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) (Receipt, error)
}

// WorkerPort runs the dispatch drain loop until the context ends
type WorkerPort interface {
	Run(ctx context.Context) error
}
