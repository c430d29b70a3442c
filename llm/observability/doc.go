// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 observability 为 LLM 调用提供可观测性包装。

# 概述

InstrumentedProvider 包装任意 llm.Provider，对每次 Completion 调用：

  - 创建 "llm.completion" OpenTelemetry Span，记录模型、Token 与成本；
  - 通过 OTel Meter 记录请求数、Token 数、错误数、延迟与成本直方图；
  - 通过 Reporter（如 internal/metrics.Collector）上报 Prometheus 指标；
  - 在 CostTracker 中累计会话级成本。

响应与错误原样返回，包装层不改变 Provider 语义。

# 成本核算

CostCalculator 内置 OpenAI 系列模型价格，模型名按最长前缀匹配，
可通过 SetPrice 覆盖。
*/
package observability
