// Package tokenizer 为发言者的上下文窗口计算 token 预算。
// OpenAI 系列模型使用 tiktoken 精确计数，其余模型或 BPE 数据不可用时
// 使用按字符估算的 EstimatorTokenizer。
package tokenizer
