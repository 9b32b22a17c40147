package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/walkingday-ai/walkbot/internal/model"
)

func sampleAt(hour int, temp float64, cond string, precip int) model.WeatherSample {
	return model.WeatherSample{
		Time:                        time.Date(2024, 6, 1, hour, 0, 0, 0, time.UTC),
		TemperatureC:                temp,
		Condition:                   cond,
		PrecipitationProbabilityPct: precip,
	}
}

func TestWeatherEmptySamples(t *testing.T) {
	out := Weather(nil)

	if !strings.Contains(out, "Weather Forecast:") {
		t.Error("preamble missing from empty prompt")
	}
	if !strings.Contains(out, "What is the best time for a walk?") {
		t.Error("closing question missing from empty prompt")
	}
	if strings.Contains(out, "- Time:") {
		t.Error("empty input must not produce bulleted entries")
	}
}

func TestWeatherRendersEachSampleInOrder(t *testing.T) {
	samples := []model.WeatherSample{
		sampleAt(8, 21.5, "Mostly sunny", 10),
		sampleAt(9, 23.0, "Partly cloudy", 25),
		sampleAt(10, 24.5, "Showers", 70),
	}

	out := Weather(samples)

	for _, want := range []string{
		"- Time: 8 AM",
		"- Time: 9 AM",
		"- Time: 10 AM",
		"- Temperature: 21.5°C",
		"- Weather Condition: Showers",
		"- Probability of Precipitation: 70%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in prompt:\n%s", want, out)
		}
	}

	// Samples must appear in given order.
	i8 := strings.Index(out, "8 AM")
	i9 := strings.Index(out, "9 AM")
	i10 := strings.Index(out, "10 AM")
	if !(i8 < i9 && i9 < i10) {
		t.Errorf("samples reordered: positions %d %d %d", i8, i9, i10)
	}
}

func TestWeatherDeterministic(t *testing.T) {
	samples := []model.WeatherSample{sampleAt(15, 30.0, "Hot", 0)}
	if Weather(samples) != Weather(samples) {
		t.Error("prompt must be deterministic for the same input")
	}
	if !strings.Contains(Weather(samples), "- Time: 3 PM") {
		t.Error("afternoon hours should render in 12-hour clock")
	}
}
