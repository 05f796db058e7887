package scan

import (
	"sync"
	"time"

	"github.com/brandondube/ringo"
)

// Telemetry tracks recent row acquisition times and publish failures for a
// scan.  The rings hold the most recent entries; older ones fall off.
type Telemetry struct {
	mu      sync.Mutex
	rowMS   ringo.CircleF64
	stamps  ringo.CircleTime
	rows    int
	pubErrs int
}

// NewTelemetry returns telemetry rings holding up to capacity rows
func NewTelemetry(capacity int) *Telemetry {
	t := &Telemetry{}
	t.rowMS.Init(capacity)
	t.stamps.Init(capacity)
	return t
}

// RecordRow notes a completed row and its acquisition duration
func (t *Telemetry) RecordRow(d time.Duration) {
	t.mu.Lock()
	t.rowMS.Append(float64(d) / float64(time.Millisecond))
	t.stamps.Append(time.Now())
	t.rows++
	t.mu.Unlock()
}

// RecordPublishError notes a failed push
func (t *Telemetry) RecordPublishError() {
	t.mu.Lock()
	t.pubErrs++
	t.mu.Unlock()
}

// TelemetryData is a point-in-time copy of scan telemetry
type TelemetryData struct {
	// RowMS holds the most recent row acquisition times in milliseconds
	RowMS []float64 `json:"rowMS"`

	// Stamps holds the completion times of those rows
	Stamps []time.Time `json:"stamps"`

	// Rows is the total number of rows completed
	Rows int `json:"rows"`

	// PublishErrors is the total number of failed pushes
	PublishErrors int `json:"publishErrors"`
}

// Snapshot returns a copy of the current telemetry
func (t *Telemetry) Snapshot() TelemetryData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TelemetryData{
		RowMS:         t.rowMS.Contiguous(),
		Stamps:        t.stamps.Contiguous(),
		Rows:          t.rows,
		PublishErrors: t.pubErrs,
	}
}
