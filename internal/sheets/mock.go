package sheets

import (
	"context"
	"sync"
)

// MockWriter is a test double for ReportWriter.
type MockWriter struct {
	// WriteFn can be set by tests to control behavior
	WriteFn func(ctx context.Context, report *Report) error

	mu      sync.Mutex
	reports []*Report
}

// NewMockWriter creates a new mock report writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write implements the ReportWriter interface.
func (m *MockWriter) Write(ctx context.Context, report *Report) error {
	m.mu.Lock()
	m.reports = append(m.reports, report)
	m.mu.Unlock()

	if m.WriteFn != nil {
		return m.WriteFn(ctx, report)
	}
	return nil
}

// Reports returns every report written so far.
func (m *MockWriter) Reports() []*Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Report, len(m.reports))
	copy(out, m.reports)
	return out
}

var _ ReportWriter = (*MockWriter)(nil)
