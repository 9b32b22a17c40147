package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/walkingday-ai/walkbot/internal/model"
)

// ErrInsufficientBars is returned when a snapshot carries fewer than 2 bars,
// since the previous-bar section needs at least 2.
var ErrInsufficientBars = errors.New("stock snapshot needs at least 2 daily bars")

const stockQuestions = `Questions:
1. How did the stock move between the previous and the latest session?
2. Is the latest close above or below the recent average close?
3. Does the volume suggest unusual activity?
4. Based on this data alone, does the short-term trend look up, down, or flat?`

// Stock renders the latest and previous daily bars for a symbol.
func Stock(snapshot model.StockSnapshot) (string, error) {
	return stock(snapshot, false)
}

// StockFull renders the Stock sections plus aggregate statistics across all
// available bars and a fixed list of analysis questions.
func StockFull(snapshot model.StockSnapshot) (string, error) {
	return stock(snapshot, true)
}

func stock(snapshot model.StockSnapshot, full bool) (string, error) {
	if len(snapshot.Bars) < 2 {
		return "", ErrInsufficientBars
	}

	latest := snapshot.Bars[0]
	previous := snapshot.Bars[1]

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following daily stock data for %s.\n", snapshot.Symbol)
	fmt.Fprintf(&b, "Last refreshed: %s (%s)\n\n", snapshot.LastRefreshed, snapshot.Timezone)

	writeBar(&b, "Latest session", latest)
	writeBar(&b, "Previous session", previous)

	if full {
		var sumClose float64
		var sumVolume int64
		maxHigh := snapshot.Bars[0].High
		minLow := snapshot.Bars[0].Low
		for _, bar := range snapshot.Bars {
			sumClose += bar.Close
			sumVolume += bar.Volume
			if bar.High > maxHigh {
				maxHigh = bar.High
			}
			if bar.Low < minLow {
				minLow = bar.Low
			}
		}
		n := len(snapshot.Bars)

		fmt.Fprintf(&b, "Across all %d sessions:\n", n)
		fmt.Fprintf(&b, "- Average Close: %.2f\n", sumClose/float64(n))
		fmt.Fprintf(&b, "- Average Volume: %d\n", sumVolume/int64(n))
		fmt.Fprintf(&b, "- Max High: %.2f\n", maxHigh)
		fmt.Fprintf(&b, "- Min Low: %.2f\n\n", minLow)

		b.WriteString(stockQuestions)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func writeBar(b *strings.Builder, label string, bar model.DailyBar) {
	fmt.Fprintf(b, "%s (%s):\n", label, bar.Date)
	fmt.Fprintf(b, "- Open: %.2f\n", bar.Open)
	fmt.Fprintf(b, "- High: %.2f\n", bar.High)
	fmt.Fprintf(b, "- Low: %.2f\n", bar.Low)
	fmt.Fprintf(b, "- Close: %.2f\n", bar.Close)
	fmt.Fprintf(b, "- Volume: %d\n\n", bar.Volume)
}
