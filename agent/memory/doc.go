// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 memory 提供会话的窗口化共享记忆：一份只追加的规范日志。

# 概述

每条消息在追加时获得从 1 开始、连续递增的序号。发言者通过
UnseenSince 取回自上次发言以来的新消息，再以 RecentWindow
取得最近若干条消息作为生成上下文。

# 核心类型

  - [Message]：不可变消息（发言者、文本、序号、时间）
  - [Store]：Append / RecentWindow / UnseenSince / Transcript / Replace

# 并发

Store 内部使用读写锁，所有方法并发安全；返回的切片均为副本。
*/
package memory
