package plaid

import (
	"context"
	"time"

	"github.com/marchbank/pennywort/internal/model"
	"github.com/marchbank/pennywort/internal/service"
)

// MockClient is a controllable purchase source for tests.
type MockClient struct {
	// GetPurchasesFn can be set by tests to control behavior
	GetPurchasesFn func(ctx context.Context, start, end time.Time) ([]model.Purchase, error)

	// Call tracking
	GetPurchasesCalls []GetPurchasesCall
}

// GetPurchasesCall records the parameters of a GetPurchases call.
type GetPurchasesCall struct {
	Start time.Time
	End   time.Time
}

// NewMockClient creates a new mock purchase source.
func NewMockClient() *MockClient {
	return &MockClient{
		GetPurchasesCalls: []GetPurchasesCall{},
	}
}

// GetPurchases implements service.PurchaseSource.
func (m *MockClient) GetPurchases(ctx context.Context, start, end time.Time) ([]model.Purchase, error) {
	m.GetPurchasesCalls = append(m.GetPurchasesCalls, GetPurchasesCall{Start: start, End: end})

	if m.GetPurchasesFn != nil {
		return m.GetPurchasesFn(ctx, start, end)
	}
	return []model.Purchase{}, nil
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.GetPurchasesCalls = []GetPurchasesCall{}
}

var _ service.PurchaseSource = (*MockClient)(nil)
