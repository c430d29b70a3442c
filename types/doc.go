// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 pandemonium 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、llm、config
等上层模块提供统一的错误码与上下文约定，以避免循环依赖。

# 核心类型

  - Error / ErrorCode：结构化错误体系，errors.Is 按错误码匹配

# 错误分类

  - 配置错误：CONFIGURATION、MISSING_CREDENTIALS、DUPLICATE_IDENTITY，
    在第一轮发言前即终止
  - 生成错误：GENERATION_FAILED、CONCLUSION_FAILED，不重试，日志不变
  - 协议误用：EMPTY_SCHEDULER、ALREADY_STARTED、NOT_STARTED、
    CONVERSATION_ENDED、INVALID_SNAPSHOT

# Context 传播

WithConversationID / WithSpeaker 及其对应的提取函数，用于在调用链中
携带会话元数据；Provider 日志与 llm.completion span 会读取它们。
*/
package types
