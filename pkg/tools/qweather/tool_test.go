package qweather

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) WeatherWarning(ctx context.Context, city string) (string, error) {
	args := m.Called(ctx, city)
	return args.String(0), args.Error(1)
}

func (m *mockService) DailyForecast(ctx context.Context, city string, days int) (string, error) {
	args := m.Called(ctx, city, days)
	return args.String(0), args.Error(1)
}

func TestWarningTool(t *testing.T) {
	svc := &mockService{}
	svc.On("WeatherWarning", mock.Anything, "薛城区").Return("当前没有天气预警信息", nil)

	tool := NewWarningTool(svc)
	assert.Equal(t, "get_weather_warning", tool.Name())
	assert.True(t, tool.Parameters()["city"].Required)

	out, err := tool.Execute(context.Background(), `{"city":"薛城区"}`)
	require.NoError(t, err)
	assert.Equal(t, "当前没有天气预警信息", out)
	svc.AssertExpectations(t)
}

func TestForecastToolArguments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		city  string
		days  int
	}{
		{name: "explicit days", input: `{"city":"郑州","days":7}`, city: "郑州", days: 7},
		{name: "string days", input: `{"city":"郑州","days":"15"}`, city: "郑州", days: 15},
		{name: "default days", input: `{"city":"郑州"}`, city: "郑州", days: 3},
		{name: "null days", input: `{"city":"郑州","days":null}`, city: "郑州", days: 3},
		{name: "bare city", input: "北京", city: "北京", days: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			svc.On("DailyForecast", mock.Anything, tt.city, tt.days).Return("ok", nil)

			out, err := NewForecastTool(svc).Run(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, "ok", out)
			svc.AssertExpectations(t)
		})
	}
}

func TestToolArgumentErrors(t *testing.T) {
	tool := NewForecastTool(&mockService{})

	_, err := tool.Run(context.Background(), `{"days":3}`)
	assert.Error(t, err)

	_, err = tool.Run(context.Background(), `{"city":"郑州","days":"many"}`)
	assert.Error(t, err)

	_, err = tool.Run(context.Background(), "  ")
	assert.Error(t, err)
}

func TestToolPropagatesServiceError(t *testing.T) {
	svc := &mockService{}
	svc.On("WeatherWarning", mock.Anything, "郑州").Return("", errors.New("boom"))

	_, err := NewWarningTool(svc).Run(context.Background(), `{"city":"郑州"}`)
	assert.EqualError(t, err, "boom")
}

func TestToolsReturnsBoth(t *testing.T) {
	tools := Tools(&mockService{})
	require.Len(t, tools, 2)
	assert.Equal(t, WarningToolName, tools[0].Name())
	assert.Equal(t, ForecastToolName, tools[1].Name())
}
