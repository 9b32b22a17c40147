// Package prompt builds natural-language prompts from structured provider data.
package prompt

import (
	"fmt"
	"strings"

	"github.com/walkingday-ai/walkbot/internal/model"
)

const (
	weatherPreamble = "Analyze the following weather data and determine the best time for a walk considering temperature and rain probability:\n\nWeather Forecast:\n"

	weatherClosing = "Based on the weather forecast, it is recommended to avoid walking during periods of high temperature or heavy rain, and prefer cooler or less rainy periods.\nWhat is the best time for a walk?"
)

// Weather renders hourly forecast samples into the walk-time prompt. Samples
// are rendered in the order given, one bulleted block per hour.
func Weather(samples []model.WeatherSample) string {
	var b strings.Builder
	b.WriteString(weatherPreamble)

	for _, s := range samples {
		fmt.Fprintf(&b, "- Time: %s\n", s.Time.Format("3 PM"))
		fmt.Fprintf(&b, "  - Temperature: %.1f°C\n", s.TemperatureC)
		fmt.Fprintf(&b, "  - Weather Condition: %s\n", s.Condition)
		fmt.Fprintf(&b, "  - Probability of Precipitation: %d%%\n\n", s.PrecipitationProbabilityPct)
	}

	b.WriteString(weatherClosing)
	return b.String()
}
