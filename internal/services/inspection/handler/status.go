package handler

import (
	"time"

	"inspectra-system/internal/apperr"
	"inspectra-system/internal/database/models"
)

// Stored inspection statuses.
const (
	StatusPending            = "Pendente"
	StatusExpired            = "Vencido"
	StatusApproved           = "Aprovado"
	StatusApprovedRestricted = "Aprovado com Restrições"
	StatusRejected           = "Reprovado"

	// StatusIncomplete is presentational only; it is derived, never stored.
	StatusIncomplete = "Incompleto"
)

// Dispositions accepted by the complete operation.
const (
	DispositionApproved           = "approved"
	DispositionApprovedRestricted = "approved_with_restrictions"
	DispositionRejected           = "rejected"
)

var dispositionStatus = map[string]string{
	DispositionApproved:           StatusApproved,
	DispositionApprovedRestricted: StatusApprovedRestricted,
	DispositionRejected:           StatusRejected,
}

// ResolveStatus computes an inspection's lifecycle status. A recorded
// disposition is terminal and overrides the expiry date; otherwise an
// expiry date strictly before today means expired, else pending.
func ResolveStatus(expiryDate time.Time, disposition *string, now time.Time) (string, error) {
	if disposition != nil {
		status, ok := dispositionStatus[*disposition]
		if !ok {
			return "", apperr.Validation("unknown disposition %q", *disposition)
		}
		return status, nil
	}

	if startOfDay(expiryDate).Before(startOfDay(now)) {
		return StatusExpired, nil
	}
	return StatusPending, nil
}

// IsTerminal reports whether a stored status is a final disposition.
func IsTerminal(status string) bool {
	switch status {
	case StatusApproved, StatusApprovedRestricted, StatusRejected:
		return true
	}
	return false
}

// DeriveDisplayStatus is the single source of the presentational status:
// for a non-terminal inspection it re-resolves expiry against now, so a
// pending inspection reads as expired once its date passes without any
// explicit transition, then surfaces "Incompleto" for a pending one with
// missing basic sensory fields or unrecorded tests. All read paths go
// through it so consumers agree on one derivation.
func DeriveDisplayStatus(insp *models.Inspection, now time.Time) string {
	if IsTerminal(insp.Status) {
		return insp.Status
	}

	if status, _ := ResolveStatus(insp.ExpiryDate, nil, now); status == StatusExpired {
		return StatusExpired
	}

	if insp.Color == nil || insp.Odor == nil || insp.Appearance == nil {
		return StatusIncomplete
	}
	for _, it := range insp.Tests {
		if it.Result == nil {
			return StatusIncomplete
		}
	}
	return StatusPending
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
