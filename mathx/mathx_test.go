package mathx_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/nasa-jpl/goscan/mathx"
)

func ExampleLinspace() {
	fmt.Println(mathx.Linspace(0, 4, 5))
	// Output: [0 1 2 3 4]
}

func ExampleLinspace_centered() {
	fmt.Println(mathx.Linspace(-5, 5, 3))
	// Output: [-5 0 5]
}

func TestLinspaceEndpointsInclusive(t *testing.T) {
	var (
		start = -12.5
		stop  = 37.5
		n     = 11
	)
	out := mathx.Linspace(start, stop, n)
	if len(out) != n {
		t.Errorf("expected %d samples got %d", n, len(out))
	}
	if out[0] != start {
		t.Errorf("expected first sample %f got %f", start, out[0])
	}
	if out[n-1] != stop {
		t.Errorf("expected last sample %f got %f", stop, out[n-1])
	}
}

func TestLinspaceEvenSpacing(t *testing.T) {
	out := mathx.Linspace(0, 1, 101)
	step := out[1] - out[0]
	for i := 1; i < len(out); i++ {
		d := out[i] - out[i-1]
		if math.Abs(d-step) > 1e-12 {
			t.Errorf("expected uniform step %g, got %g at position %d", step, d, i)
		}
	}
}

func TestLinspaceSinglePoint(t *testing.T) {
	out := mathx.Linspace(3.14, 100, 1)
	if len(out) != 1 {
		t.Errorf("expected 1 sample got %d", len(out))
	}
	if out[0] != 3.14 {
		t.Errorf("expected %f got %f", 3.14, out[0])
	}
}

func TestMean(t *testing.T) {
	inp := []float64{1, 2, 3, 4}
	expected := 2.5
	out := mathx.Mean(inp)
	if out != expected {
		t.Errorf("expected %f got %f", expected, out)
	}
}

func TestMeanEmptyIsNaN(t *testing.T) {
	out := mathx.Mean(nil)
	if !math.IsNaN(out) {
		t.Errorf("expected NaN got %f", out)
	}
}

func TestMinMaxSkipsNaN(t *testing.T) {
	inp := []float64{math.NaN(), 3, -2, 7, math.NaN()}
	min, max := mathx.MinMax(inp)
	if min != -2 {
		t.Errorf("expected min -2 got %f", min)
	}
	if max != 7 {
		t.Errorf("expected max 7 got %f", max)
	}
}
