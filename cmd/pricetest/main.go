package main

import (
	"fmt"
	"os"

	"exec_go/internal/book"
	"exec_go/internal/domain"
	"exec_go/internal/slippage"
	"exec_go/pkg/quant"
)

// Fixed-point sanity tool: parses price strings without ever touching
// float64, builds a ladder, and walks slippage estimates across order
// sizes. Usage: pricetest [price qty]...
func main() {
	fmt.Println("=== ExecGo Fixed-Point Slippage Walker ===")
	fmt.Println()

	levels := [][2]string{
		{"100.01", "40"},
		{"100.02", "60"},
		{"100.05", "100"},
	}
	if args := os.Args[1:]; len(args) >= 2 && len(args)%2 == 0 {
		levels = levels[:0]
		for i := 0; i < len(args); i += 2 {
			levels = append(levels, [2]string{args[i], args[i+1]})
		}
	}

	b := book.New("BTCUSDT", 0)
	b.Upsert(domain.SideBuy, quant.ToPriceMicrosStr("100.00"), quant.ToQtySatsStr("50"))

	fmt.Println("📊 Ask ladder (string → micros, no float64):")
	for _, lvl := range levels {
		price := quant.ToPriceMicrosStr(lvl[0])
		qty := quant.ToQtySatsStr(lvl[1])
		fmt.Printf("   %-10s → %12d micros   x %s\n", lvl[0], price, lvl[1])
		b.Upsert(domain.SideSell, price, qty)
	}
	fmt.Println()

	est := slippage.NewEstimator(10)
	snap := b.Snapshot(0)

	fmt.Println("💹 Market buy estimates:")
	for _, size := range []string{"10", "40", "60", "150"} {
		order := domain.NewOrder("BTCUSDT", domain.SideBuy, domain.TypeMarket, 0, quant.ToQtySatsStr(size))
		res, err := est.Estimate(order, snap)
		if err != nil {
			fmt.Printf("   qty %-6s → %v\n", size, err)
			continue
		}
		fmt.Printf("   qty %-6s → vwap %d micros, ref %d micros, slippage %s bps\n",
			size, res.VWAPMicros, res.RefPriceMicros, res.Bps)
	}
	fmt.Println()
	fmt.Println("✅ All prices handled as int64; floats only at the bps boundary.")
}
