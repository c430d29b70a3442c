// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的会话指标采集。

# 概述

Collector 通过 promauto 注册到给定的 Registerer（默认全局），
并实现会话的生命周期回调，可直接作为 conversation.Recorder 使用。

# 主要能力

  - 会话指标：开始/结束计数、时长、参与人数、收尾失败次数。
  - 回合指标：按 speaker/reason 分组的回合数、失败数与耗时，完成轮数。
  - LLM 指标：请求总数、耗时、Token 用量（prompt/completion），
    按 provider/model 分组。
  - 归档指标：按 backend/status 分组的归档写入次数。
*/
package metrics
