package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"exec_go/internal/domain"
	"exec_go/pkg/quant"
)

// MockTransport is a scriptable venue for tests. With no script it
// accepts everything and only logs.
type MockTransport struct {
	mu    sync.Mutex
	calls int

	// SubmitFn, when set, decides each call's outcome.
	SubmitFn func(ctx context.Context, order domain.Order) (*domain.ExchangeResponse, error)

	// SecurityErr, when set, is returned from ValidateSecurity.
	SecurityErr error
}

// NewMockTransport creates an always-accepting mock venue.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) SubmitOrder(ctx context.Context, order domain.Order) (*domain.ExchangeResponse, error) {
	m.mu.Lock()
	m.calls++
	fn := m.SubmitFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, order)
	}

	slog.Info("MOCK EXECUTION: Submit Order",
		slog.String("id", order.ID),
		slog.String("symbol", order.Symbol),
		slog.String("side", string(order.Side)),
		slog.Int64("price", int64(order.PriceMicros)),
		slog.Int64("qty", int64(order.QtySats)),
	)
	return &domain.ExchangeResponse{
		OrderID:         order.ID,
		ExchangeOrderID: "mock-" + order.ID,
		Status:          domain.StatusAccepted,
		TsUnixM:         quant.TimeStamp(time.Now().UnixMicro()),
	}, nil
}

// Calls returns how many dispatch attempts reached the transport.
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockTransport) ValidateSecurity() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SecurityErr
}

func (m *MockTransport) Endpoint() string {
	return "https://mock.exchange.local"
}

func (m *MockTransport) Close() error {
	return nil
}
