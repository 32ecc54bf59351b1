package integration

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentWebhookDeliveries floods one payment with simultaneous
// notifications after the gateway confirms it. The optimistic status write
// and the ledger idempotency key must together produce exactly one credit,
// no matter how the deliveries interleave.
func TestConcurrentWebhookDeliveries(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	wallet := app.createWallet(t, "acct-storm", 0)

	var payment paymentBody
	code := app.do(t, http.MethodPost, "/api/v1/payments", map[string]any{
		"order_id":        "ord-9001",
		"wallet_id":       wallet.ID,
		"amount":          25000,
		"currency":        "USD",
		"method":          "CREDIT_CARD",
		"idempotency_key": "idem-9001",
	}, true, &payment)
	require.Equal(t, http.StatusCreated, code)
	ref := *payment.GatewayRef

	app.gateway.Resolve(ref, "CONFIRMED")

	const deliveries = 25
	var wg sync.WaitGroup
	var settled, conflicted, failed int64

	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var result paymentBody
			code := app.do(t, http.MethodPost, "/api/v1/webhooks/payment-status", map[string]any{
				"gateway_ref": ref,
				"status":      "CONFIRMED",
			}, false, &result)
			switch {
			case code == http.StatusOK && result.Status == "SETTLED":
				atomic.AddInt64(&settled, 1)
			case code == http.StatusConflict:
				atomic.AddInt64(&conflicted, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failed)
	assert.GreaterOrEqual(t, settled, int64(1))

	// The invariant: money moved exactly once.
	assert.Equal(t, int64(25000), app.walletBalance(t, wallet.ID))
	assert.Equal(t, 1, app.ledger.countByKind(mustUUID(t, wallet.ID), "SETTLEMENT"))
}

// TestConcurrentWalletPayments races wallet-funded payments against a fixed
// balance. The wallet lock must admit exactly as many settlements as the
// balance covers and the ledger must never go negative.
func TestConcurrentWalletPayments(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const (
		attempts = 20
		amount   = int64(1000)
		funded   = int64(10 * 1000) // covers half the attempts
	)

	wallet := app.createWallet(t, "acct-race", funded)

	var wg sync.WaitGroup
	var succeeded, rejected int64

	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := app.do(t, http.MethodPost, "/api/v1/payments", map[string]any{
				"order_id":        fmt.Sprintf("ord-race-%d", i),
				"wallet_id":       wallet.ID,
				"amount":          amount,
				"currency":        "USD",
				"method":          "WALLET",
				"idempotency_key": fmt.Sprintf("idem-race-%d", i),
			}, true, nil)
			switch code {
			case http.StatusCreated:
				atomic.AddInt64(&succeeded, 1)
			case http.StatusPaymentRequired:
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), succeeded)
	assert.Equal(t, int64(10), rejected)
	assert.Equal(t, int64(0), app.walletBalance(t, wallet.ID))

	var integrity struct {
		Consistent bool  `json:"consistent"`
		EntrySum   int64 `json:"entry_sum"`
	}
	code := app.do(t, http.MethodGet, "/api/v1/wallets/"+wallet.ID+"/integrity", nil, true, &integrity)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, integrity.Consistent)
	assert.Equal(t, int64(0), integrity.EntrySum)
}
