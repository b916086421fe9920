package port

import "context"

// SourceChangedPublisherPort announces a switch of the active cost-factor source.
type SourceChangedPublisherPort interface {
	PublishSourceChanged(ctx context.Context, previous, current string) error
}
