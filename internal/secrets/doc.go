// Package secrets 解析 LLM API Key。
//
// 默认使用配置加载器已解析的值（配置文件、PANDEMONIUM_LLM_API_KEY 或
// OPENAI_API_KEY）；source 为 ssm 时回退到 AWS SSM Parameter Store。
// 所有来源均失败时返回 types.ErrMissingCredentials。
package secrets
