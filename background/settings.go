// Package background mirrors the configuration and image resolution
// policy of the injected background rotator so the proxy service can
// check the origin's rotator configuration without a browser
package background

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	ApiUrlConfigID      = "randomBkApiUrl"
	ApiTypeConfigID     = "randomBkApiType"
	JsonPathConfigID    = "randomBkJsonPath"
	IntervalConfigID    = "bkInterval"
	OpacityConfigID     = "bkOpacity"
	ChangeOnNavConfigID = "randomBkChangeOnNav"

	ApiTypeJSON = "json"
	ApiTypeText = "text"

	DefaultApiType  = ApiTypeText
	DefaultJsonPath = "url"
	DefaultInterval = 3000 * time.Millisecond
	DefaultOpacity  = 1.0
)

var ErrNoAPIURL = errors.New("randomBkApiUrl is not configured")

// ConfigItem is one row of the origin's config page
type ConfigItem struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// ConfigPage is the body served by the origin's sys config endpoint
type ConfigPage struct {
	Config []ConfigItem `json:"config"`
}

// Settings controls how the rotator resolves and shows images
type Settings struct {
	ApiURL      string        `json:"api_url"`
	ApiType     string        `json:"api_type"`
	JsonPath    string        `json:"json_path"`
	Interval    time.Duration `json:"interval"`
	Opacity     float64       `json:"opacity"`
	ChangeOnNav bool          `json:"change_on_nav"`
}

// IntervalEnabled reports whether the rotator rotates on a timer
func (s Settings) IntervalEnabled() bool {
	return s.Interval > 0
}

// ParseSettings applies the rotator's defaults to the config items,
// returning ErrNoAPIURL when no api url is configured
func ParseSettings(items []ConfigItem) (Settings, error) {
	values := make(map[string]any, len(items))
	for _, item := range items {
		// the rotator uses the first item with a given id
		if _, exists := values[item.ID]; !exists {
			values[item.ID] = item.Value
		}
	}

	apiURL := values[ApiUrlConfigID]
	if !truthy(apiURL) {
		return Settings{}, ErrNoAPIURL
	}

	settings := Settings{
		ApiURL:      jsString(apiURL),
		ApiType:     DefaultApiType,
		JsonPath:    DefaultJsonPath,
		Interval:    DefaultInterval,
		Opacity:     DefaultOpacity,
		ChangeOnNav: values[ChangeOnNavConfigID] != false,
	}

	if v := values[ApiTypeConfigID]; truthy(v) {
		settings.ApiType = jsString(v)
	}

	if v := values[JsonPathConfigID]; truthy(v) {
		settings.JsonPath = jsString(v)
	}

	if interval := parseInt(values[IntervalConfigID]); interval != 0 && !math.IsNaN(interval) {
		settings.Interval = time.Duration(interval) * time.Millisecond
	}

	if opacity := parseFloat(values[OpacityConfigID]); opacity != 0 && !math.IsNaN(opacity) {
		settings.Opacity = opacity
	}

	return settings, nil
}

// truthy follows javascript truthiness for json values
func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case float64:
		return value != 0 && !math.IsNaN(value)
	case json.Number:
		f, err := value.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// jsString converts a json value the way String(v) does in javascript
func jsString(v any) string {
	switch value := v.(type) {
	case nil:
		return "null"
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return jsNumber(value)
	case json.Number:
		return value.String()
	default:
		return fmt.Sprint(value)
	}
}

// jsNumber formats a number like javascript, switching to
// exponent notation below 1e-6 and from 1e21 up
func jsNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exponent, _ := strings.Cut(s, "e")
		sign, digits := exponent[:1], strings.TrimLeft(exponent[1:], "0")
		return mantissa + "e" + sign + digits
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

var (
	decimalIntPrefix = regexp.MustCompile(`^[+-]?\d+`)
	hexIntPrefix     = regexp.MustCompile(`^([+-]?)0[xX]([0-9a-fA-F]+)`)
	floatPrefix      = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)
)

// parseInt behaves like javascript's parseInt without a radix,
// returning NaN when no integer prefix is present
func parseInt(v any) float64 {
	if v == nil {
		return math.NaN()
	}

	s := strings.TrimSpace(jsString(v))

	if m := hexIntPrefix.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseInt(m[2], 16, 64)
		if err != nil {
			return math.NaN()
		}
		if m[1] == "-" {
			n = -n
		}
		return float64(n)
	}

	m := decimalIntPrefix.FindString(s)
	if m == "" {
		return math.NaN()
	}

	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}

	return n
}

// parseFloat behaves like javascript's parseFloat,
// returning NaN when no number prefix is present
func parseFloat(v any) float64 {
	if v == nil {
		return math.NaN()
	}

	m := floatPrefix.FindString(strings.TrimSpace(jsString(v)))
	if m == "" {
		return math.NaN()
	}

	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}

	return f
}
