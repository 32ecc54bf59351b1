package gateway

import (
	"context"
	"sync"

	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"
	"procure-pay/pkg/ident"
)

// SandboxGateway is an in-memory ports.GatewayClient for local development
// and tests. Charges start UNKNOWN until resolved through Resolve, mimicking
// a gateway that decides asynchronously.
type SandboxGateway struct {
	mu       sync.Mutex
	statuses map[string]domain.GatewayStatus
}

// NewSandboxGateway creates a new sandbox gateway.
func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{statuses: make(map[string]domain.GatewayStatus)}
}

// Charge accepts every request and assigns a fresh gateway reference.
func (g *SandboxGateway) Charge(_ context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	ref := "sbx_" + ident.New().String()
	g.mu.Lock()
	g.statuses[ref] = domain.GatewayStatusUnknown
	g.mu.Unlock()
	return &ports.ChargeResult{
		GatewayRef: ref,
		Status:     domain.GatewayStatusUnknown,
	}, nil
}

// Verify reports the current sandbox status. Unknown references answer
// UNKNOWN rather than erroring, like a gateway that never forgets a charge.
func (g *SandboxGateway) Verify(_ context.Context, gatewayRef string) (domain.GatewayStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.statuses[gatewayRef]
	if !ok {
		return domain.GatewayStatusUnknown, nil
	}
	return status, nil
}

// Resolve sets the outcome the gateway will report for a reference.
func (g *SandboxGateway) Resolve(gatewayRef string, status domain.GatewayStatus) {
	g.mu.Lock()
	g.statuses[gatewayRef] = status
	g.mu.Unlock()
}
