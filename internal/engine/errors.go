package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDataNotLoaded       = errors.New("price data not loaded")
	ErrNoTradableDate      = errors.New("no tradable dates in requested range")
	ErrInvalidConfig       = errors.New("invalid backtest config")
	ErrRunInProgress       = errors.New("backtest already running")
	ErrInsufficientBalance = errors.New("insufficient cash when applying fill")
	ErrShortSellNotAllowed = errors.New("short sell not allowed, sold more shares than held")
)

// Stage names the phase of a run that produced a fatal error.
type Stage string

const (
	StageLoad     Stage = "load"
	StageSchedule Stage = "schedule"
	StageExecute  Stage = "execute"
	StageAnalyze  Stage = "analyze"
)

// StageError wraps a fatal error with the stage it happened in.
type StageError struct {
	Stage Stage
	Date  time.Time
	Err   error
}

func (e *StageError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Date.Format(time.DateOnly), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, date time.Time, err error) error {
	return &StageError{Stage: stage, Date: date, Err: err}
}
