// =============================================================================
// Pandemonium 主入口
// =============================================================================
// 多人轮流发言的对话编排 CLI
//
// 使用方法:
//
//	pandemonium "The future of remote work"            # 批量模式运行至结束
//	pandemonium "Climate change solutions" -r 5        # 指定轮数
//	pandemonium "Zoning reform" -i                      # 交互模式
//	pandemonium "Rent control" --agent cynic:economics  # 指定参与者
//	pandemonium personas                                # 列出人设目录
//	pandemonium version                                 # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/BaSui01/pandemonium"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// app 汇集 CLI 的输入输出与可注入依赖
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// lookupEnv 为 nil 时使用 os.LookupEnv
	lookupEnv func(string) (string, bool)
	// sessionOpts 追加到 pandemonium.New
	sessionOpts []pandemonium.Option
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}, os.Args[1:])
	stop()
	os.Exit(code)
}
