package qweather

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

const (
	WarningToolName  = "get_weather_warning"
	ForecastToolName = "get_daily_forecast"

	WarningToolDescription  = "根据提供的城市名查询天气预警信息。"
	ForecastToolDescription = "根据提供的城市名，和需要查询的天数，查询天气信息"
)

// WarningTool exposes WeatherWarning as an agent tool
type WarningTool struct {
	service Service
}

// NewWarningTool creates the get_weather_warning tool
func NewWarningTool(service Service) *WarningTool {
	return &WarningTool{service: service}
}

func (t *WarningTool) Name() string        { return WarningToolName }
func (t *WarningTool) DisplayName() string { return "Weather Warning" }
func (t *WarningTool) Description() string { return WarningToolDescription }
func (t *WarningTool) Internal() bool      { return false }

// Parameters returns the parameters that the tool accepts
func (t *WarningTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"city": {
			Type:        "string",
			Description: "城市名",
			Required:    true,
		},
	}
}

// Run executes the tool with JSON arguments or a bare city name
func (t *WarningTool) Run(ctx context.Context, input string) (string, error) {
	args, err := parseArgs(input)
	if err != nil {
		return "", err
	}
	return t.service.WeatherWarning(ctx, args.City)
}

// Execute executes the tool with JSON arguments
func (t *WarningTool) Execute(ctx context.Context, args string) (string, error) {
	return t.Run(ctx, args)
}

// ForecastTool exposes DailyForecast as an agent tool
type ForecastTool struct {
	service Service
}

// NewForecastTool creates the get_daily_forecast tool
func NewForecastTool(service Service) *ForecastTool {
	return &ForecastTool{service: service}
}

func (t *ForecastTool) Name() string        { return ForecastToolName }
func (t *ForecastTool) DisplayName() string { return "Daily Forecast" }
func (t *ForecastTool) Description() string { return ForecastToolDescription }
func (t *ForecastTool) Internal() bool      { return false }

// Parameters returns the parameters that the tool accepts
func (t *ForecastTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"city": {
			Type:        "string",
			Description: "城市名",
			Required:    true,
		},
		"days": {
			Type:        "integer",
			Description: "预报天数，可选 3、7、10、15、30",
			Default:     DefaultForecastDays,
			Enum:        []interface{}{3, 7, 10, 15, 30},
		},
	}
}

// Run executes the tool with JSON arguments or a bare city name
func (t *ForecastTool) Run(ctx context.Context, input string) (string, error) {
	args, err := parseArgs(input)
	if err != nil {
		return "", err
	}
	return t.service.DailyForecast(ctx, args.City, args.Days)
}

// Execute executes the tool with JSON arguments
func (t *ForecastTool) Execute(ctx context.Context, args string) (string, error) {
	return t.Run(ctx, args)
}

// Tools returns both weather tools backed by service
func Tools(service Service) []interfaces.Tool {
	return []interfaces.Tool{
		NewWarningTool(service),
		NewForecastTool(service),
	}
}

type toolArgs struct {
	City string
	Days int
}

// parseArgs accepts {"city": "...", "days": 3} where days may be a number or
// a numeric string. Non-JSON input is taken as the city name.
func parseArgs(input string) (toolArgs, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "{") {
		if input == "" {
			return toolArgs{}, fmt.Errorf("city is required")
		}
		return toolArgs{City: input, Days: DefaultForecastDays}, nil
	}

	var raw struct {
		City string          `json:"city"`
		Days json.RawMessage `json:"days"`
	}
	if err := json.Unmarshal([]byte(input), &raw); err != nil {
		return toolArgs{}, fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	if raw.City == "" {
		return toolArgs{}, fmt.Errorf("city is required")
	}

	args := toolArgs{City: raw.City, Days: DefaultForecastDays}
	if len(raw.Days) > 0 && string(raw.Days) != "null" {
		days, err := strconv.Atoi(strings.Trim(string(raw.Days), `"`))
		if err != nil {
			return toolArgs{}, fmt.Errorf("days must be an integer: %w", err)
		}
		args.Days = days
	}
	return args, nil
}
