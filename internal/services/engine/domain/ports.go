package domain

import "context"

// SubmitterPort runs the classify-match-schedule-enqueue pipeline
type SubmitterPort interface {
	Submit(ctx context.Context, in SubmitInput) (SubmitResult, error)
}

// ResponseGenerator renders reply text for a matched automation. Static
// templates short-circuit; AI-backed generation may fail and the caller
// decides what that failure means
type ResponseGenerator interface {
	Generate(ctx context.Context, in GenerateInput) (string, error)
}

// MarkerPort moves interactions through their lifecycle once the queue
// confirms an outcome
type MarkerPort interface {
	MarkStatus(ctx context.Context, interactionID string, status InteractionStatus) error
}
