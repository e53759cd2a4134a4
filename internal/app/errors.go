package app

import "errors"

// ErrCycleInProgress est renvoyé quand un cycle est demandé alors qu'un autre tourne.
var ErrCycleInProgress = errors.New("poll cycle already in progress")

// ErrTransportNotReady est renvoyé quand le transport ne signale pas Ready à temps.
var ErrTransportNotReady = errors.New("notify transport not ready")

// Étapes d'un cycle, reprises dans CycleError.Stage et dans les logs.
const (
	StageFetch   = "fetch"
	StagePersist = "persist"
	StageNotify  = "notify"
)

// CycleError rattache une erreur à l'étape (et à la source) du cycle qui l'a produite.
type CycleError struct {
	Stage  string
	Source string
	Err    error
}

func (e *CycleError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Stage
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Err == nil {
		return msg + " failed"
	}
	return msg + ": " + e.Err.Error()
}

func (e *CycleError) Unwrap() error { return e.Err }
