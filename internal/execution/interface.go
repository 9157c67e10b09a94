package execution

import (
	"context"

	"exec_go/internal/domain"
)

// Transport abstracts "send an order over an authenticated, encrypted
// channel". Implementations must report transient and business failures
// distinctly (see errors.go) so the router can decide what to retry.
type Transport interface {
	// SubmitOrder sends a new order to the venue.
	SubmitOrder(ctx context.Context, order domain.Order) (*domain.ExchangeResponse, error)

	// ValidateSecurity checks the destination uses an encrypted channel
	// and credentials are present. Called at construction time and again
	// immediately before each dispatch.
	ValidateSecurity() error

	// Endpoint returns the destination, for logging.
	Endpoint() string

	// Close cleans up resources and wipes secrets.
	Close() error
}
