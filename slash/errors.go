package slash

import "fmt"

// Stage identifies the step of a run that failed.
type Stage string

const (
	// StageScan is the balances index scan.
	StageScan Stage = "scan"
	// StageWhitelist is the whitelist loading.
	StageWhitelist Stage = "whitelist"
	// StageTransfer is the force transfer execution.
	StageTransfer Stage = "transfer"
)

// StageError annotates an error with the run stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
