package observability

import (
	"strings"
	"sync"
)

// ModelPrice 模型价格（USD / 1K tokens）
type ModelPrice struct {
	Model       string
	PriceInput  float64
	PriceOutput float64
}

// CostCalculator 按模型估算单次请求成本。
// 模型名按最长前缀匹配，"gpt-4o-mini-2024-07-18" 命中 "gpt-4o-mini"。
type CostCalculator struct {
	mu     sync.RWMutex
	prices map[string]ModelPrice
}

// NewCostCalculator 创建带默认价格表的成本计算器
func NewCostCalculator() *CostCalculator {
	c := &CostCalculator{prices: make(map[string]ModelPrice)}
	for _, p := range []ModelPrice{
		{Model: "gpt-5", PriceInput: 0.00125, PriceOutput: 0.01},
		{Model: "gpt-5-mini", PriceInput: 0.00025, PriceOutput: 0.002},
		{Model: "gpt-5-nano", PriceInput: 0.00005, PriceOutput: 0.0004},
		{Model: "gpt-4.1", PriceInput: 0.002, PriceOutput: 0.008},
		{Model: "gpt-4o", PriceInput: 0.0025, PriceOutput: 0.01},
		{Model: "gpt-4o-mini", PriceInput: 0.00015, PriceOutput: 0.0006},
		{Model: "gpt-3.5-turbo", PriceInput: 0.0005, PriceOutput: 0.0015},
	} {
		c.prices[p.Model] = p
	}
	return c
}

// SetPrice 设置或覆盖模型价格
func (c *CostCalculator) SetPrice(model string, priceInput, priceOutput float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[model] = ModelPrice{Model: model, PriceInput: priceInput, PriceOutput: priceOutput}
}

// Price returns the price entry for model.
func (c *CostCalculator) Price(model string) (ModelPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.prices[model]; ok {
		return p, true
	}
	var best ModelPrice
	found := false
	for name, p := range c.prices {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best.Model) {
			best, found = p, true
		}
	}
	return best, found
}

// Calculate 计算成本，未知模型返回 0
func (c *CostCalculator) Calculate(model string, tokensInput, tokensOutput int) float64 {
	price, ok := c.Price(model)
	if !ok {
		return 0
	}
	return float64(tokensInput)/1000*price.PriceInput + float64(tokensOutput)/1000*price.PriceOutput
}

// CostSummary 成本汇总
type CostSummary struct {
	TotalCost    float64
	TokensInput  int
	TokensOutput int
	RequestCount int
	FailedCount  int
}

// TotalTokens 返回输入与输出 token 之和
func (s CostSummary) TotalTokens() int { return s.TokensInput + s.TokensOutput }

// CostTracker 会话级成本累计
type CostTracker struct {
	calculator *CostCalculator
	mu         sync.Mutex
	summary    CostSummary
}

// NewCostTracker 创建成本追踪器，calculator 为 nil 时使用默认价格表
func NewCostTracker(calculator *CostCalculator) *CostTracker {
	if calculator == nil {
		calculator = NewCostCalculator()
	}
	return &CostTracker{calculator: calculator}
}

// Track 累计一次成功请求并返回其成本
func (t *CostTracker) Track(model string, tokensInput, tokensOutput int) float64 {
	cost := t.calculator.Calculate(model, tokensInput, tokensOutput)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.TotalCost += cost
	t.summary.TokensInput += tokensInput
	t.summary.TokensOutput += tokensOutput
	t.summary.RequestCount++
	return cost
}

// TrackFailure 记录一次失败请求
func (t *CostTracker) TrackFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.RequestCount++
	t.summary.FailedCount++
}

// Summary 获取成本汇总
func (t *CostTracker) Summary() CostSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// Reset 重置统计
func (t *CostTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary = CostSummary{}
}
