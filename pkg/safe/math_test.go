package safe

import (
	"math"
	"testing"

	"exec_go/pkg/quant"
)

func TestAdd(t *testing.T) {
	if got := Add(1, 2); got != 3 {
		t.Errorf("Add(1,2) = %d, want 3", got)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on overflow")
		}
	}()
	Add(math.MaxInt64, 1)
}

func TestSub(t *testing.T) {
	if got := Sub(5, 3); got != 2 {
		t.Errorf("Sub(5,3) = %d, want 2", got)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on underflow")
		}
	}()
	Sub(math.MinInt64, 1)
}

func TestMul(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{0, 100, 0},
		{3, 4, 12},
		{-3, 4, -12},
		{-3, -4, 12},
	}
	for _, tt := range tests {
		if got := Mul(tt.a, tt.b); got != tt.want {
			t.Errorf("Mul(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on overflow")
		}
	}()
	Mul(math.MaxInt64, 2)
}

func TestDiv(t *testing.T) {
	if got := Div(10, 2); got != 5 {
		t.Errorf("Div(10,2) = %d, want 5", got)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on divide by zero")
		}
	}()
	Div(1, 0)
}

func TestNotionalMicros(t *testing.T) {
	// 100.01 * 0.5 = 50.005
	price := quant.PriceMicros(100010000)
	qty := quant.QtySats(50000000)
	if got := NotionalMicros(price, qty); got != 50005000 {
		t.Errorf("NotionalMicros = %d, want 50005000", got)
	}

	// sign follows qty
	if got := NotionalMicros(price, -qty); got != -50005000 {
		t.Errorf("NotionalMicros(short) = %d, want -50005000", got)
	}
}
