// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的大语言模型接入层：Provider 抽象、请求与响应模型、
以及统一错误码。

# 概述

会话中的每个发言者和终局评估者都通过 Provider 接口生成文本，
本包屏蔽不同服务商在接口、鉴权与错误语义上的差异。

# 核心接口

  - Provider：Completion / HealthCheck / Name
  - ChatRequest：模型、消息、温度、超时等请求参数
  - ChatResponse：choices 与 usage
  - Error：带 HTTP 状态与可重试标记的错误

# 子包

  - llm/providers：OpenAI 兼容协议的公共类型、错误映射与重试包装
  - llm/providers/openaicompat：基于 net/http 的 OpenAI 兼容 Provider
  - llm/tokenizer：tiktoken 计数与字符估算回退
  - llm/observability：Provider 的 span、指标与成本统计
*/
package llm
