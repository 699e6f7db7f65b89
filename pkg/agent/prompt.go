package agent

import (
	"fmt"
	"strings"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

// CollaborativePrompt is the system prompt of an agent working alongside
// other agents. It asks for the FINAL ANSWER prefix on a finished answer.
func CollaborativePrompt(toolNames []string, toolMessage, customNotice string) string {
	return "你是一个AI助手，可以与其他助手合作，一起帮助用户解决问题。" +
		"如果你无法独立完成回答，可以将任务交给其他助手继续处理。" +
		"如果你有满足用户需求的最终结果，请在响应前加上 FINAL ANSWER 以便程序停止。" +
		fmt.Sprintf("\n%s\n", customNotice) +
		fmt.Sprintf("你有以下工具可以使用: %s.\n%s\n\n", strings.Join(toolNames, ", "), toolMessage)
}

// ToolNames returns the names of tools in order
func ToolNames(tools []interfaces.Tool) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name())
	}
	return names
}
