package ports

import "github.com/aretw0/bbseed/pkg/domain"

// Sink receives classified machines. The scheduler calls it with one
// worker's buffered batch at a time and never concurrently.
type Sink interface {
	Append(batch []domain.Classified) error
	// Sync makes every appended machine durable. A checkpoint counting
	// those machines is only saved after Sync returns.
	Sync() error
}
