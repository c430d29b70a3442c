// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Pandemonium 命令行入口。

# 概述

pandemonium 以批量或交互模式运行一场多人格圆桌讨论：主持人开场，
参与者按轮询顺序发言（主持人插话与随机点名按配置概率占用轮询位），
达到最大轮数后由独立评估者给出结论。

# 命令

  - pandemonium [topic]：运行会话，支持 --rounds、--interactive、
    --config、--agent、--criteria、--personas、--seed。
  - pandemonium personas：列出人设目录的气质与专业领域键。
  - pandemonium version：显示版本信息。

# 退出码

配置错误（缺少 API Key、非法参与者规格等）打印 "Configuration error:"
并以 1 退出；SIGINT 打印告别语并以 0 退出。启用 metrics 时在独立
goroutine 中提供 Prometheus /metrics，启用 archive 时在会话结束后保存归档。
*/
package main
