// Package openaicompat provides the OpenAI Chat Completions provider used by
// every speaker and by the closing evaluator.
//
// Any endpoint that speaks the OpenAI wire format works; only the base URL,
// key and default model differ. An optional local rate limiter keeps bursts
// of turns under the account's request quota.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName:  "openai",
//	    APIKey:        key,
//	    BaseURL:       "https://api.openai.com",
//	    DefaultModel:  "gpt-5",
//	    RateLimitRPS:  2,
//	}, logger)
package openaicompat
