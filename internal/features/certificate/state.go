package certificate

import "github.com/leap-learning/leap-server/pkg/types"

// transitions lists the allowed status changes. A row only exists from pending
// on; failed goes back to pending through an explicit resend.
var transitions = map[types.CertificateStatus][]types.CertificateStatus{
	types.CertificateRequested: {types.CertificatePending},
	types.CertificatePending:   {types.CertificateSent, types.CertificateFailed},
	types.CertificateFailed:    {types.CertificatePending},
}

// CanTransition reports whether a certificate may move from one status to another.
func CanTransition(from, to types.CertificateStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
