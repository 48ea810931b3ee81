package service

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle position of one verify-and-submit request
type State string

const (
	StateReceived         State = "RECEIVED"
	StateRangeChecked     State = "RANGE_CHECKED"
	StateAttestationBuilt State = "ATTESTATION_BUILT"
	StateRejected         State = "REJECTED"
	StateLedgerSubmitting State = "LEDGER_SUBMITTING"
	StateLedgerConfirmed  State = "LEDGER_CONFIRMED"
	StateStored           State = "STORED"
)

// IsTerminal reports whether the state ends the request.
func IsTerminal(s State) bool {
	switch s {
	case StateRejected, StateStored:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StateReceived:
		return to == StateRangeChecked || to == StateRejected
	case StateRangeChecked:
		return to == StateAttestationBuilt || to == StateRejected
	case StateAttestationBuilt:
		return to == StateLedgerSubmitting || to == StateRejected
	case StateLedgerSubmitting:
		return to == StateLedgerConfirmed || to == StateRejected
	case StateLedgerConfirmed:
		return to == StateStored
	default:
		return false
	}
}

// requestRun tracks and logs the state of a single request.
type requestRun struct {
	state State
	entry *logrus.Entry
}

func newRequestRun(entry *logrus.Entry) *requestRun {
	r := &requestRun{state: StateReceived, entry: entry}
	r.entry.WithField("state", r.state).Info("Attestation request received")
	return r
}

// advance moves the run to the next state, attaching fields to every
// subsequent log entry.
func (r *requestRun) advance(to State, fields logrus.Fields) error {
	if !isAllowedTransition(r.state, to) {
		return fmt.Errorf("disallowed workflow transition %s -> %s", r.state, to)
	}
	r.state = to
	if len(fields) > 0 {
		r.entry = r.entry.WithFields(fields)
	}
	r.entry.WithField("state", to).Info("Attestation workflow transition")
	return nil
}

// reject moves the run to REJECTED. A confirmed submission cannot be
// rejected; the failure is logged against the current state instead.
func (r *requestRun) reject(cause error) {
	if !isAllowedTransition(r.state, StateRejected) {
		r.entry.WithError(cause).WithField("state", r.state).Error("Attestation request failed after ledger confirmation")
		return
	}
	r.state = StateRejected
	r.entry.WithError(cause).WithField("state", StateRejected).Warn("Attestation request rejected")
}
