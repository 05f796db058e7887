package fsm

import "testing"

func TestMockLineScanLengthAndEndPosition(t *testing.T) {
	m := NewMock(false)
	end := Point{X: 5, Y: 0}
	data, err := m.LineScan(Point{X: -5, Y: 0}, end, 10, 5)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(data) != 10 {
		t.Errorf("expected 10 samples, got %d", len(data))
	}
	pos, err := m.GetPos()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if pos != end {
		t.Errorf("expected mirror left at %v, got %v", end, pos)
	}
}

func TestMockLineScanSinglePoint(t *testing.T) {
	m := NewMock(false)
	data, err := m.LineScan(Point{X: 1, Y: 1}, Point{X: 1, Y: 1}, 1, 1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(data) != 1 {
		t.Errorf("expected 1 sample, got %d", len(data))
	}
}

func TestMockLineScanRejectsBadArgs(t *testing.T) {
	m := NewMock(false)
	_, err := m.LineScan(Point{}, Point{}, 0, 1)
	if err == nil {
		t.Errorf("expected error for zero points, got nil")
	}
	_, err = m.LineScan(Point{}, Point{}, 1, 0)
	if err == nil {
		t.Errorf("expected error for zero collects, got nil")
	}
}

func TestMockLineScanNonNegative(t *testing.T) {
	m := NewMock(false)
	data, err := m.LineScan(Point{X: -50, Y: -50}, Point{X: 50, Y: 50}, 100, 1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	for i, v := range data {
		if v < 0 {
			t.Errorf("sample %d negative, got %v", i, v)
		}
	}
}

func TestMockAcqRateRoundTrip(t *testing.T) {
	m := NewMock(false)
	err := m.SetAcqRate(250)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	hz, err := m.GetAcqRate()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if hz != 250 {
		t.Errorf("expected 250, got %v", hz)
	}
}

func TestMockSetAcqRateRejectsNonPositive(t *testing.T) {
	m := NewMock(false)
	for _, hz := range []float64{0, -5} {
		err := m.SetAcqRate(hz)
		if err == nil {
			t.Errorf("expected error for rate %v, got nil", hz)
		}
	}
}

func TestMockMoveClampsToTravel(t *testing.T) {
	m := NewMock(false)
	err := m.Move(Point{X: 1000, Y: -1000})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	pos, err := m.GetPos()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if pos.X != mockTravel || pos.Y != -mockTravel {
		t.Errorf("expected clamp to (%v, %v), got %v", mockTravel, -mockTravel, pos)
	}
}
