package stage

import (
	"context"

	"karaoke/internal/queue"
)

// Handler describes the contract the pipeline runner needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
