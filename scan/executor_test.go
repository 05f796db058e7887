package scan

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/nasa-jpl/goscan/fsm"
	"github.com/nasa-jpl/goscan/raster"
)

// lineCall records one LineScan invocation
type lineCall struct {
	start, end    fsm.Point
	numPoints     int
	collectsPerPt int
}

// fakeFSM is a recording controller.  sample decides what each line scan
// returns; the default is a ramp of the x coordinates being swept, which
// makes traversal direction visible in the stored data.
type fakeFSM struct {
	rates   []float64
	moves   []fsm.Point
	lines   []lineCall
	sample  func(c lineCall) []float64
	lineErr error
	moveErr error
	stop    *StopFlag
	stopAt  int
}

func (f *fakeFSM) SetAcqRate(hz float64) error {
	f.rates = append(f.rates, hz)
	return nil
}

func (f *fakeFSM) GetAcqRate() (float64, error) {
	if len(f.rates) == 0 {
		return 0, errors.New("rate never set")
	}
	return f.rates[len(f.rates)-1], nil
}

func (f *fakeFSM) Move(p fsm.Point) error {
	f.moves = append(f.moves, p)
	return f.moveErr
}

func (f *fakeFSM) GetPos() (fsm.Point, error) {
	if len(f.moves) == 0 {
		return fsm.Point{}, nil
	}
	return f.moves[len(f.moves)-1], nil
}

func (f *fakeFSM) LineScan(start, end fsm.Point, numPoints, collectsPerPt int) ([]float64, error) {
	c := lineCall{start: start, end: end, numPoints: numPoints, collectsPerPt: collectsPerPt}
	f.lines = append(f.lines, c)
	if f.lineErr != nil && len(f.lines) >= f.stopAt {
		return nil, f.lineErr
	}
	if f.stop != nil && len(f.lines) == f.stopAt {
		f.stop.Stop()
	}
	if f.sample != nil {
		return f.sample(c), nil
	}
	out := make([]float64, numPoints)
	xs := rampBetween(start.X, end.X, numPoints)
	copy(out, xs)
	return out, nil
}

func rampBetween(a, b float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = a
		return out
	}
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	return out
}

// recordingPub captures every pushed payload
type recordingPub struct {
	payloads []Payload
	err      error
}

func (p *recordingPub) Push(v interface{}) error {
	p.payloads = append(p.payloads, v.(Payload))
	return p.err
}

func testCfg() raster.ScanConfig {
	return raster.ScanConfig{
		Dataset:       "test",
		XRange:        10,
		YRange:        10,
		XNumPoints:    4,
		YNumPoints:    3,
		CollectsPerPt: 50,
		Shots:         1,
		AcqRate:       100,
	}
}

func TestGateBlocksAllHardwareInteraction(t *testing.T) {
	cfg := testCfg()
	cfg.XNumPoints = 1
	cfg.CollectsPerPt = 1
	cfg.AcqRate = 1000 // 1000 Hz scan rate, over the 200 Hz ceiling
	ctl := &fakeFSM{}
	pub := &recordingPub{}
	_, err := New(cfg, ctl, pub, nil)
	if err == nil {
		t.Fatal("expected error above the rate ceiling, got nil")
	}
	if _, ok := err.(raster.ErrBadConfig); !ok {
		t.Errorf("expected raster.ErrBadConfig, got %T", err)
	}
	if len(ctl.rates) != 0 || len(ctl.moves) != 0 || len(ctl.lines) != 0 {
		t.Errorf("expected zero controller calls, got %d rates %d moves %d lines",
			len(ctl.rates), len(ctl.moves), len(ctl.lines))
	}
	if len(pub.payloads) != 0 {
		t.Errorf("expected zero pushes, got %d", len(pub.payloads))
	}
}

func TestEndToEndSnakeTraversal(t *testing.T) {
	cfg := testCfg()
	ctl := &fakeFSM{}
	pub := &recordingPub{}
	e, err := New(cfg, ctl, pub, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err != nil {
		t.Fatal(err)
	}
	if e.Status() != Completed {
		t.Errorf("expected Completed, got %v", e.Status())
	}
	if len(ctl.lines) != 3 {
		t.Fatalf("expected 3 line scans, got %d", len(ctl.lines))
	}
	// snake order: even rows low->high x, odd rows high->low x
	for j, c := range ctl.lines {
		lowToHigh := c.start.X < c.end.X
		if j%2 == 0 && !lowToHigh {
			t.Errorf("row %d expected low to high x, got %v -> %v", j, c.start, c.end)
		}
		if j%2 == 1 && lowToHigh {
			t.Errorf("row %d expected high to low x, got %v -> %v", j, c.start, c.end)
		}
		if c.numPoints != cfg.XNumPoints || c.collectsPerPt != cfg.CollectsPerPt {
			t.Errorf("row %d expected %d points %d collects, got %d %d",
				j, cfg.XNumPoints, cfg.CollectsPerPt, c.numPoints, c.collectsPerPt)
		}
	}
	// stored data always ascends in x regardless of traversal direction
	frames := e.RawFrames()
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	f := frames[0]
	if f.Rows != cfg.YNumPoints || f.Cols != cfg.XNumPoints {
		t.Fatalf("expected %dx%d frame, got %dx%d", cfg.YNumPoints, cfg.XNumPoints, f.Rows, f.Cols)
	}
	xs := e.Plan().Axes.X
	for j := 0; j < f.Rows; j++ {
		row := f.Row(j)
		for i, v := range row {
			if math.IsNaN(v) {
				t.Fatalf("row %d col %d still NaN after completion", j, i)
			}
			if v != xs[i] {
				t.Errorf("row %d col %d expected %v (ascending x), got %v", j, i, xs[i], v)
			}
		}
	}
	// the scan ends parked at the configured center
	if len(ctl.moves) != 1 {
		t.Fatalf("expected exactly 1 move (recenter), got %d", len(ctl.moves))
	}
	center := fsm.Point{X: cfg.XCenter, Y: cfg.YCenter}
	if ctl.moves[0] != center {
		t.Errorf("expected final move to %v, got %v", center, ctl.moves[0])
	}
	if len(pub.payloads) != 3 {
		t.Errorf("expected 3 pushes (one per row), got %d", len(pub.payloads))
	}
}

func TestAverageOfConstantIsConstant(t *testing.T) {
	for _, shots := range []int{1, 2, 5} {
		cfg := testCfg()
		cfg.Shots = shots
		ctl := &fakeFSM{sample: func(c lineCall) []float64 {
			out := make([]float64, c.numPoints)
			for i := range out {
				out[i] = 1234.5
			}
			return out
		}}
		e, err := New(cfg, ctl, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		err = e.Run()
		if err != nil {
			t.Fatal(err)
		}
		avg := e.Average()
		for j := 0; j < avg.Rows; j++ {
			for i := 0; i < avg.Cols; i++ {
				if got := avg.At(j, i); math.Abs(got-1234.5) > 1e-9 {
					t.Errorf("%d shots: pixel (%d, %d) expected 1234.5, got %v", shots, j, i, got)
				}
			}
		}
	}
}

func TestAverageOfTwoShotsIsTheirMean(t *testing.T) {
	cfg := testCfg()
	cfg.Shots = 2
	ctl := &fakeFSM{}
	shot := 0
	rowsSeen := 0
	ctl.sample = func(c lineCall) []float64 {
		vals := []float64{100, 200}
		out := make([]float64, c.numPoints)
		for i := range out {
			out[i] = vals[shot]
		}
		rowsSeen++
		if rowsSeen%cfg.YNumPoints == 0 {
			shot++
		}
		return out
	}
	e, err := New(cfg, ctl, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err != nil {
		t.Fatal(err)
	}
	avg := e.Average()
	for j := 0; j < avg.Rows; j++ {
		for i := 0; i < avg.Cols; i++ {
			if got := avg.At(j, i); math.Abs(got-150) > 1e-9 {
				t.Errorf("pixel (%d, %d) expected 150, got %v", j, i, got)
			}
		}
	}
}

func TestIncrementalAverageMatchesDirectMean(t *testing.T) {
	cfg := testCfg()
	cfg.Shots = 7
	ctl := &fakeFSM{}
	n := 0
	ctl.sample = func(c lineCall) []float64 {
		out := make([]float64, c.numPoints)
		for i := range out {
			// deterministic but irregular values
			n++
			out[i] = float64((n*7919)%1000) + 0.25
		}
		return out
	}
	e, err := New(cfg, ctl, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err != nil {
		t.Fatal(err)
	}
	frames := e.RawFrames()
	avg := e.Average()
	for j := 0; j < avg.Rows; j++ {
		for i := 0; i < avg.Cols; i++ {
			var sum float64
			for _, f := range frames {
				sum += f.At(j, i)
			}
			want := sum / float64(len(frames))
			if got := avg.At(j, i); math.Abs(got-want) > 1e-9 {
				t.Errorf("pixel (%d, %d) expected %v, got %v", j, i, want, got)
			}
		}
	}
}

func TestCancellationCompletesCurrentRowOnly(t *testing.T) {
	cfg := testCfg()
	stop := &StopFlag{}
	// the stop request lands during row 1's line scan; the executor sees it
	// at the row boundary, so row 1 completes and row 2 never starts
	ctl := &fakeFSM{stop: stop, stopAt: 2}
	e, err := New(cfg, ctl, nil, stop)
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err != nil {
		t.Errorf("cancellation is not an error, got %v", err)
	}
	if e.Status() != Cancelled {
		t.Fatalf("expected Cancelled, got %v", e.Status())
	}
	if len(ctl.lines) != 2 {
		t.Errorf("expected 2 line scans before the stop took effect, got %d", len(ctl.lines))
	}
	f := e.RawFrames()[0]
	for j := 0; j < f.Rows; j++ {
		row := f.Row(j)
		filled := !math.IsNaN(row[0])
		if j <= 1 && !filled {
			t.Errorf("row %d should be filled before cancellation", j)
		}
		if j > 1 && filled {
			t.Errorf("row %d should be NaN after cancellation", j)
		}
	}
	if len(ctl.moves) != 1 {
		t.Errorf("expected recenter after cancellation, got %d moves", len(ctl.moves))
	}
}

func TestHardwareFailureRecentersAndSurfacesOriginalError(t *testing.T) {
	boom := errors.New("galvo amp dropped out")
	cfg := testCfg()
	ctl := &fakeFSM{lineErr: boom, stopAt: 2, moveErr: errors.New("still dead")}
	e, err := New(cfg, ctl, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected original hardware error to surface, got %v", err)
	}
	var hw ErrHardware
	if !errors.As(err, &hw) {
		t.Errorf("expected ErrHardware, got %T", err)
	}
	if e.Status() != Failed {
		t.Errorf("expected Failed, got %v", e.Status())
	}
	// recenter was attempted exactly once even though it also failed
	if len(ctl.moves) != 1 {
		t.Errorf("expected 1 recenter attempt, got %d", len(ctl.moves))
	}
}

func TestPublishFailureDoesNotAbortAcquisition(t *testing.T) {
	cfg := testCfg()
	ctl := &fakeFSM{}
	pub := &recordingPub{err: errors.New("viewer went away")}
	e, err := New(cfg, ctl, pub, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err != nil {
		t.Errorf("publish failures are best effort, got %v", err)
	}
	if e.Status() != Completed {
		t.Errorf("expected Completed, got %v", e.Status())
	}
	td := e.Telemetry().Snapshot()
	if td.PublishErrors != cfg.YNumPoints {
		t.Errorf("expected %d publish errors counted, got %d", cfg.YNumPoints, td.PublishErrors)
	}
}

func TestPublishOrderIsMonotonic(t *testing.T) {
	cfg := testCfg()
	cfg.Shots = 3
	ctl := &fakeFSM{}
	pub := &recordingPub{}
	e, err := New(cfg, ctl, pub, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err != nil {
		t.Fatal(err)
	}
	lastShot, lastRows := 0, 0
	for i, pl := range pub.payloads {
		shot := pl.Params.Shot
		rows := filledRows(pl.Datasets.Raw[shot-1])
		if shot < lastShot || (shot == lastShot && rows < lastRows) {
			t.Fatalf("push %d out of order: shot %d rows %d after shot %d rows %d",
				i, shot, rows, lastShot, lastRows)
		}
		lastShot, lastRows = shot, rows
	}
	if lastShot != cfg.Shots || lastRows != cfg.YNumPoints {
		t.Errorf("expected final push at shot %d with %d rows, got %d and %d",
			cfg.Shots, cfg.YNumPoints, lastShot, lastRows)
	}
}

func filledRows(f *Frame) int {
	n := 0
	for j := 0; j < f.Rows; j++ {
		if !math.IsNaN(f.At(j, 0)) {
			n++
		}
	}
	return n
}

func TestPublishedFramesAreImmutableSnapshots(t *testing.T) {
	cfg := testCfg()
	cfg.Shots = 2
	ctl := &fakeFSM{}
	pub := &recordingPub{}
	e, err := New(cfg, ctl, pub, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err != nil {
		t.Fatal(err)
	}
	// an early payload must still show its own partial state, not the
	// final one, because every push carries private copies
	first := pub.payloads[0]
	if got := filledRows(first.Datasets.Raw[0]); got != 1 {
		t.Errorf("first push should hold exactly 1 filled row, got %d", got)
	}
}

func TestRunIsSingleUse(t *testing.T) {
	cfg := testCfg()
	e, err := New(cfg, &fakeFSM{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err != nil {
		t.Fatal(err)
	}
	err = e.Run()
	if err == nil {
		t.Error("expected error on second Run, got nil")
	}
}

func TestStatusStrings(t *testing.T) {
	cases := map[Status]string{
		Idle:       "idle",
		Running:    "running",
		Completed:  "completed",
		Cancelled:  "cancelled",
		Failed:     "failed",
		Status(99): "unknown",
	}
	for s, want := range cases {
		if got := fmt.Sprint(s); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
