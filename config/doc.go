// Package config 提供 Pandemonium 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序加载，
// 环境变量使用 PANDEMONIUM_ 前缀，并兼容旧版的 OPENAI_API_KEY、
// OPENAI_MODEL 与 MEMORY_WINDOW_SIZE。
package config
