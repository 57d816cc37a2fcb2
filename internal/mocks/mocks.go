// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
)

// -- Browser Factory Mock --

// MockFactory mocks browser.Factory.
type MockFactory struct {
	mock.Mock
}

// Open provides a mock function for session creation.
func (m *MockFactory) Open(ctx context.Context, platform schemas.PlatformConfig) (browser.Driver, error) {
	args := m.Called(ctx, platform)
	var d browser.Driver
	if v := args.Get(0); v != nil {
		d = v.(browser.Driver)
	}
	return d, args.Error(1)
}

// -- Session Runner Mock --

// MockSessionRunner mocks the dispatcher's per-platform runner.
type MockSessionRunner struct {
	mock.Mock
}

func (m *MockSessionRunner) Run(ctx context.Context, platform schemas.PlatformConfig) schemas.SessionOutcome {
	args := m.Called(ctx, platform)
	return args.Get(0).(schemas.SessionOutcome)
}

// -- Strategy Mock --

// MockStrategy mocks a click strategy.
type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStrategy) Apply(ctx context.Context, driver browser.Driver, element browser.Element) error {
	args := m.Called(ctx, driver, element)
	return args.Error(0)
}
