package qweather

import (
	"fmt"
	"strings"
)

const (
	noWarningsMessage = "当前没有天气预警信息"
	noForecastMessage = "无法获取天气预报信息"
)

// FormatWarnings renders warnings for the model, separated by blank lines
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return noWarningsMessage
	}

	parts := make([]string, 0, len(warnings))
	for _, w := range warnings {
		parts = append(parts, fmt.Sprintf(
			"预警ID: %s\n"+
				"标题: %s\n"+
				"发布时间: %s\n"+
				"开始时间: %s\n"+
				"结束时间: %s\n"+
				"预警类型: %s\n"+
				"预警等级: %s (%s)\n"+
				"发布单位: %s\n"+
				"状态: %s\n"+
				"详细信息: %s",
			w.ID, w.Title, w.PubTime, w.StartTime, w.EndTime, w.TypeName,
			w.Severity, w.SeverityColor, w.Sender, w.Status, w.Text,
		))
	}
	return strings.Join(parts, "\n\n")
}

// FormatForecast renders forecast days for the model, separated by rules
func FormatForecast(days []Daily) string {
	if len(days) == 0 {
		return noForecastMessage
	}

	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, fmt.Sprintf(
			"日期: %s\n"+
				"日出: %s  日落: %s\n"+
				"最高温度: %s°C  最低温度: %s°C\n"+
				"白天天气: %s  夜间天气: %s\n"+
				"白天风向: %s %s级 (%skm/h)\n"+
				"夜间风向: %s %s级 (%skm/h)\n"+
				"相对湿度: %s%%\n"+
				"降水量: %smm\n"+
				"紫外线指数: %s\n"+
				"能见度: %skm",
			d.FxDate, d.Sunrise, d.Sunset, d.TempMax, d.TempMin, d.TextDay, d.TextNight,
			d.WindDirDay, d.WindScaleDay, d.WindSpeedDay,
			d.WindDirNight, d.WindScaleNight, d.WindSpeedNight,
			d.Humidity, d.Precip, d.UVIndex, d.Vis,
		))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
