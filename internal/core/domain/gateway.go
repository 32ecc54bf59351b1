package domain

// GatewayStatus is the gateway's authoritative view of a payment. Anything the
// gateway reports that does not map onto one of the first three values is
// treated as UNKNOWN and leaves the payment in verification.
type GatewayStatus string

const (
	GatewayStatusConfirmed GatewayStatus = "CONFIRMED"
	GatewayStatusDeclined  GatewayStatus = "DECLINED"
	GatewayStatusRefunded  GatewayStatus = "REFUNDED"
	GatewayStatusUnknown   GatewayStatus = "UNKNOWN"
)

// TargetPaymentStatus maps a verified gateway status to the payment state it
// implies. The mapping is fixed: webhook payloads carry at most a hint, the
// verifier's answer decides.
func (s GatewayStatus) TargetPaymentStatus() PaymentStatus {
	switch s {
	case GatewayStatusConfirmed:
		return PaymentStatusSettled
	case GatewayStatusDeclined:
		return PaymentStatusFailed
	case GatewayStatusRefunded:
		return PaymentStatusReversed
	}
	return PaymentStatusVerifying
}

// ParseGatewayStatus normalizes a gateway-reported status string. Unrecognized
// values become UNKNOWN rather than an error, because advisory hints must not
// be able to fail a reconciliation.
func ParseGatewayStatus(s string) GatewayStatus {
	switch GatewayStatus(s) {
	case GatewayStatusConfirmed, GatewayStatusDeclined, GatewayStatusRefunded:
		return GatewayStatus(s)
	}
	return GatewayStatusUnknown
}
