package elements

import (
	"encoding/json"
	"time"
)

const (
	StageIngest = "ingest"
	StageClean  = "clean"
)

const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// RunResult is the outcome of one job, published after it finishes.
type RunResult struct {
	RunId      string    `json:"run_id"`
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	BytesFetched int64  `json:"bytes_fetched,omitempty"`
	Checksum     string `json:"checksum,omitempty"`

	RowsRead     int64            `json:"rows_read,omitempty"`
	RowsWritten  int64            `json:"rows_written,omitempty"`
	RowsDropped  int64            `json:"rows_dropped,omitempty"`
	MeasureNulls int64            `json:"measure_nulls,omitempty"`
	Partitions   map[string]int64 `json:"partitions,omitempty"`
}

func (obj *RunResult) Duration() time.Duration {
	return obj.FinishedAt.Sub(obj.StartedAt)
}

func (obj *RunResult) ToBytes() ([]byte, error) {
	return json.Marshal(obj)
}

func NewRunResultFromBytes(data []byte) (*RunResult, error) {
	result := &RunResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, err
	}
	return result, nil
}
