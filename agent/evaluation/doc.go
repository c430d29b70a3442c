// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package evaluation 提供会话收尾时的独立评估者。
//
// 每次收尾都通过 Factory 创建一个全新的 Evaluator，它只看到完整日志、
// 话题与评估标准，不共享任何参与者的记忆。
package evaluation
