package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge/model"
	"github.com/shopspring/decimal"
)

// MockAdapter renders nothing and answers instantly. Used in tests and in
// local development where no real provider keys exist.
type MockAdapter struct {
	AdapterName string
	ShouldFail  bool
	Delay       time.Duration
	Rate        decimal.Decimal
}

func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		AdapterName: name,
		Rate:        decimal.NewFromFloat(0.01),
	}
}

func (m *MockAdapter) Name() string    { return m.AdapterName }
func (m *MockAdapter) Available() bool { return true }

func (m *MockAdapter) EstimateCost(seconds float64) decimal.Decimal {
	return decimal.NewFromFloat(seconds).Mul(m.Rate)
}

func (m *MockAdapter) Generate(ctx context.Context, job *model.GenerationJob) *model.ProviderResult {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.ShouldFail {
		return failure(m.AdapterName, "mock generation failure triggered")
	}
	return &model.ProviderResult{
		Success:     true,
		Provider:    m.AdapterName,
		VideoURL:    "https://mock.reelforge.dev/videos/" + uuid.New().String() + ".mp4",
		DurationSec: 10,
		Cost:        m.EstimateCost(10),
	}
}

func (m *MockAdapter) CheckStatus(ctx context.Context, remoteID string) (*GenerationStatus, error) {
	if m.ShouldFail {
		return &GenerationStatus{State: StateFailed, Reason: "mock generation failure triggered"}, nil
	}
	return &GenerationStatus{State: StateSucceeded, DurationSec: 10}, nil
}

func (m *MockAdapter) GetVideo(ctx context.Context, remoteID string) (string, error) {
	return "https://mock.reelforge.dev/videos/" + remoteID + ".mp4", nil
}

// UnavailableAdapter stands in for a backend with no API key configured.
// Every generation reports failure, which keeps the router's fallback
// walk uniform instead of special-casing missing providers.
type UnavailableAdapter struct {
	AdapterName string
}

func NewUnavailableAdapter(name string) *UnavailableAdapter {
	return &UnavailableAdapter{AdapterName: name}
}

func (u *UnavailableAdapter) Name() string    { return u.AdapterName }
func (u *UnavailableAdapter) Available() bool { return false }

func (u *UnavailableAdapter) EstimateCost(seconds float64) decimal.Decimal {
	return decimal.Zero
}

func (u *UnavailableAdapter) Generate(ctx context.Context, job *model.GenerationJob) *model.ProviderResult {
	return failure(u.AdapterName, "provider not configured")
}

func (u *UnavailableAdapter) CheckStatus(ctx context.Context, remoteID string) (*GenerationStatus, error) {
	return &GenerationStatus{State: StateFailed, Reason: "provider not configured"}, nil
}

func (u *UnavailableAdapter) GetVideo(ctx context.Context, remoteID string) (string, error) {
	return "", nil
}
