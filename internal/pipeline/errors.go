package pipeline

import "fmt"

// MissingStageError reports that a stage was requested before its
// prerequisite artifact exists. It names the stage to run, not just a
// file path, so the fix is actionable from the message alone.
type MissingStageError struct {
	Requested string
	Missing   string
	Dataset   string
}

func (e *MissingStageError) Error() string {
	return fmt.Sprintf("stage %q for dataset %q needs the %q artifact; run the %s stage first",
		e.Requested, e.Dataset, e.Missing, e.Missing)
}
