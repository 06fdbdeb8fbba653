package weather

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ReportKind tags which half of Report is populated.
type ReportKind int

const (
	ReportWeather ReportKind = iota
	ReportError
)

// ErrorKind separates an unknown city from a failed lookup.
type ErrorKind string

const (
	ErrCityNotFound ErrorKind = "city_not_found"
	ErrTransport    ErrorKind = "transport"
)

// WeatherReport is a successful lookup. Temperatures are in °C.
type WeatherReport struct {
	City        string
	Temperature float64
	FeelsLike   float64
	Condition   string
}

// ErrorReport is a lookup that produced no weather data.
type ErrorReport struct {
	Kind    ErrorKind
	Message string
}

// Report is exactly one of Weather or Error, selected by Kind.
type Report struct {
	Kind    ReportKind
	Weather *WeatherReport
	Error   *ErrorReport
}

func weatherReport(w WeatherReport) Report {
	return Report{Kind: ReportWeather, Weather: &w}
}

func errorReport(kind ErrorKind, msg string) Report {
	return Report{Kind: ReportError, Error: &ErrorReport{Kind: kind, Message: msg}}
}

// IsError reports whether the lookup failed.
func (r Report) IsError() bool { return r.Kind == ReportError }

// Text renders the report the way it is shown to users and fed to the rewriter.
func (r Report) Text() string {
	if r.Kind == ReportError && r.Error != nil {
		if r.Error.Kind == ErrCityNotFound {
			return "⚠️ " + r.Error.Message
		}
		return "⚠️ Error: " + r.Error.Message
	}
	if r.Weather == nil {
		return "⚠️ Error: empty weather report"
	}
	return r.Weather.Text()
}

func (w WeatherReport) Text() string {
	return fmt.Sprintf("🌤️ Weather in %s:\nTemperature: %s°C\nFeels like: %s°C\nCondition: %s",
		TitleCase(w.City), formatTemp(w.Temperature), formatTemp(w.FeelsLike), w.Condition)
}

// TitleCase upper-cases the first letter of every word and lowers the rest.
// A Caser is stateful, so one is built per call.
func TitleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// formatTemp prints the shortest exact form, always with a decimal point:
// 24 -> "24.0", 23.47 -> "23.47".
func formatTemp(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
