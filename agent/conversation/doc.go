// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 conversation 提供多方轮询对话的调度与控制。

# 概述

Conversation 是会话的唯一写入者：它持有规范日志（memory.Store）、
调度器与生命周期状态。每次 Advance 执行一个回合：选择发言者、
对账其私有记忆、生成发言、追加到日志、提交调度计数。达到最大
轮数后的下一次 Advance 由全新的评估者给出结论并结束会话。

# 核心类型

  - Scheduler：按轮询顺序选人，支持主持人与随机覆盖；Select 与
    Commit 分离，失败的回合不会推进计数
  - Conversation：生命周期 NotStarted → Running → Concluded
  - Snapshot：可持久化状态，通过 State / Restore 读写
  - Recorder：生命周期事件回调，供指标采集

# 错误

所有错误均为 *types.Error，可用 errors.Is 与本包的哨兵错误比较。
*/
package conversation
