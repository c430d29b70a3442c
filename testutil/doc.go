// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 pandemonium 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，自动注册 Cleanup 防止泄漏
  - 时钟辅助: FixedClock，配合各组件的 Now 注入点
  - Mock 实现: mocks.MockProvider，支持固定响应、响应序列、
    第 N 次调用失败与延迟注入
*/
package testutil
