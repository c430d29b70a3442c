// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理会话运行期间的 Prometheus 指标 HTTP 服务器。

# 概述

Manager 封装 net/http.Server，统一管理监听、服务、关闭与错误传播。
命令行在启用 metrics 时先 Start，再让 WaitForShutdown 跟随会话的
context 一起结束；信号由调用方转换为 context 取消。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Shutdown/WaitForShutdown 等生命周期方法。
  - Config：监听地址、请求头超时、写入与空闲超时、优雅关闭超时。
  - MetricsHandler：挂载 /metrics（promhttp）与 /healthz 的路由。
*/
package server
