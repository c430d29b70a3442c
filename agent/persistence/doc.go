// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 persistence 提供已结束会话的归档存储。

# 概述

会话收尾后，完整日志、计数与评估结论被整理为一条 Transcript，
通过 TranscriptStore 写入可插拔的后端。归档失败不会影响会话本身。

# 后端

  - memory：进程内 map，用于开发与测试
  - file：每条归档一个 JSON 文件，先写临时文件再 rename
  - redis：JSON 字符串 + 按创建时间排序的 sorted set 索引，支持 TLS 与 TTL
  - sql：GORM，驱动可选 sqlite / postgres / mysql，消息列以 JSON 保存

NewTranscriptStore 按 StoreConfig.Type 选择后端。
*/
package persistence
