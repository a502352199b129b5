package settlement

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateAwaitingConfirmation
	StateRecording
	StateSettled
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                 "idle",
	StateValidating:           "validating",
	StateSubmitting:           "submitting",
	StateAwaitingConfirmation: "awaiting_confirmation",
	StateRecording:            "recording",
	StateSettled:              "settled",
	StateFailed:               "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) IsTerminal() bool {
	return s == StateSettled || s == StateFailed
}

// attempt tracks one settlement through its states. Transitions only move
// forward; Failed is reachable from any non-terminal state.
type attempt struct {
	id     string
	userId string
	kind   string
	state  State
	txHash string
}

func newAttempt(userId, kind string) *attempt {
	return &attempt{id: uuid.New().String(), userId: userId, kind: kind, state: StateIdle}
}

func (a *attempt) to(next State) {
	if a.state.IsTerminal() || (next != StateFailed && next <= a.state) {
		zap.L().Error("Illegal settlement transition",
			zap.String("attempt_id", a.id),
			zap.String("from", a.state.String()),
			zap.String("to", next.String()))
		return
	}
	zap.L().Debug("Settlement state change",
		zap.String("attempt_id", a.id),
		zap.String("user_id", a.userId),
		zap.String("kind", a.kind),
		zap.String("from", a.state.String()),
		zap.String("to", next.String()),
		zap.String("tx_hash", a.txHash))
	a.state = next
}

// fail moves the attempt to Failed and returns err for convenient chaining.
func (a *attempt) fail(err *Error) *Error {
	a.to(StateFailed)
	zap.L().Warn("Settlement failed",
		zap.String("attempt_id", a.id),
		zap.String("user_id", a.userId),
		zap.String("tx_hash", err.TxHash),
		zap.Error(err))
	return err
}
