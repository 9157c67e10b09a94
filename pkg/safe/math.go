package safe

import (
	"math"

	"exec_go/pkg/quant"
)

// Add performs int64 addition and panics on overflow/underflow.
func Add(a, b int64) int64 {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		panic("EXEC_SAFE_ADD_OVERFLOW")
	}
	return a + b
}

// Sub performs int64 subtraction and panics on overflow/underflow.
func Sub(a, b int64) int64 {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		panic("EXEC_SAFE_SUB_OVERFLOW")
	}
	return a - b
}

// Mul performs int64 multiplication and panics on overflow/underflow.
func Mul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > 0 {
		if b > 0 {
			if a > math.MaxInt64/b {
				panic("EXEC_SAFE_MUL_OVERFLOW")
			}
		} else {
			if b < math.MinInt64/a {
				panic("EXEC_SAFE_MUL_OVERFLOW")
			}
		}
	} else {
		if b > 0 {
			if a < math.MinInt64/b {
				panic("EXEC_SAFE_MUL_OVERFLOW")
			}
		} else {
			if a < math.MaxInt64/b {
				panic("EXEC_SAFE_MUL_OVERFLOW")
			}
		}
	}
	return a * b
}

// Div performs int64 division and panics on division by zero.
func Div(a, b int64) int64 {
	if b == 0 {
		panic("EXEC_SAFE_DIV_BY_ZERO")
	}
	if a == math.MinInt64 && b == -1 {
		panic("EXEC_SAFE_DIV_OVERFLOW")
	}
	return a / b
}

// Abs returns |v|. MinInt64 panics instead of overflowing.
func Abs(v int64) int64 {
	if v == math.MinInt64 {
		panic("EXEC_SAFE_ABS_OVERFLOW")
	}
	if v < 0 {
		return -v
	}
	return v
}

// NotionalMicros computes price * qty scaled back to micros.
// The sign of qty is preserved.
func NotionalMicros(price quant.PriceMicros, qty quant.QtySats) int64 {
	return Div(Mul(int64(price), int64(qty)), quant.QtyScale)
}
