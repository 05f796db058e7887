package scan

// Default presentation labels attached to every payload.  Viewers use them
// directly as plot annotations.
const (
	payloadTitle  = "FSM Scan"
	payloadXLabel = "X Position"
	payloadYLabel = "Y Position"
	payloadZLabel = "Counts/s"
)

// Params describes the geometry and acquisition settings of a payload
type Params struct {
	// Center is the middle of the scanned region, (x, y)
	Center [2]float64 `json:"center"`

	// Range is the full extent of the scanned region, (x, y)
	Range [2]float64 `json:"range"`

	// Points is the sample count along each axis, (x, y)
	Points [2]int `json:"points"`

	// CollectsPerPt is the number of raw collections averaged per sample
	CollectsPerPt int `json:"collects_per_pt"`

	// Shot is the 1-based number of the pass in flight
	Shot int `json:"shot"`

	// Shots is the total number of passes
	Shots int `json:"shots"`

	// AcqRate is the counter sample rate in Hz
	AcqRate float64 `json:"acq_rate"`
}

// Datasets carries the image data of a payload
type Datasets struct {
	// Raw holds one frame per started shot, in shot order
	Raw []*Frame `json:"raw"`

	// Avg holds the running mean as of each started shot
	Avg []*Frame `json:"avg"`

	// XSteps are the x coordinates of the columns, ascending
	XSteps []float64 `json:"xSteps"`

	// YSteps are the y coordinates of the rows
	YSteps []float64 `json:"ySteps"`
}

// Payload is one push on the streaming channel: the complete state of a
// scan after a row has landed.  Frames inside a payload are private copies
// and never mutate after the push.
type Payload struct {
	Params   Params   `json:"params"`
	Title    string   `json:"title"`
	XLabel   string   `json:"xLabel"`
	YLabel   string   `json:"yLabel"`
	ZLabel   string   `json:"zLabel"`
	Datasets Datasets `json:"datasets"`
}
