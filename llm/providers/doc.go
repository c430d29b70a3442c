// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 是 openaicompat 的公共基础层：OpenAI 兼容协议的线上结构、
HTTP 错误到 llm.Error 的映射，以及对任意 llm.Provider 的重试包装。

# 错误映射

MapHTTPError 决定错误是否可重试：429、超时、5xx 与 529 过载可重试，
鉴权、参数与额度错误不可重试。发言者与评估者本身从不重试，
重试只发生在 RetryableProvider 这一层。

# 重试

RetryableProvider 对可重试的 *llm.Error 做指数退避，context 取消后立即返回。
MaxRetries 为 0 时原样透传上游错误。

# 辅助函数

  - ReadErrorMessage：解析错误响应体
  - ConvertMessagesToOpenAI / ToLLMChatResponse：消息与响应格式转换
  - ChooseModel：按优先级选择模型（请求 > 默认 > 兜底）
*/
package providers
