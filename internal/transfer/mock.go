package transfer

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
)

// Movement records one transfer the mock performed.
type Movement struct {
	Denom   string
	Account string
	Amount  sdkmath.Int
	Inbound bool
}

// MockService is a test double for the asset-transfer collaborator. It records
// every movement and can be programmed to fail or to call back into the vault
// mid-transfer, which is how the reentrancy discipline is exercised.
type MockService struct {
	mu sync.Mutex

	Movements []Movement

	// FailPull / FailPush force the next matching transfer to fail.
	FailPull bool
	FailPush bool

	// OnPull / OnPush, when set, run during the transfer before it completes.
	OnPull func(denom, from string, amount sdkmath.Int)
	OnPush func(denom, to string, amount sdkmath.Int)
}

// NewMockService creates an empty mock.
func NewMockService() *MockService {
	return &MockService{}
}

// PullFrom implements Service.
func (m *MockService) PullFrom(denom, from string, amount sdkmath.Int) error {
	if m.OnPull != nil {
		m.OnPull(denom, from, amount)
	}
	if m.FailPull {
		return fmt.Errorf("%w: pull %s %s from %s", ErrTransferRejected, amount, denom, from)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Movements = append(m.Movements, Movement{Denom: denom, Account: from, Amount: amount, Inbound: true})
	return nil
}

// PushTo implements Service.
func (m *MockService) PushTo(denom, to string, amount sdkmath.Int) error {
	if m.OnPush != nil {
		m.OnPush(denom, to, amount)
	}
	if m.FailPush {
		return fmt.Errorf("%w: push %s %s to %s", ErrTransferRejected, amount, denom, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Movements = append(m.Movements, Movement{Denom: denom, Account: to, Amount: amount, Inbound: false})
	return nil
}
