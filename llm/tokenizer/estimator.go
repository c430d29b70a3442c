package tokenizer

import "unicode"

const (
	// 每条消息的固定开销（角色标记与分隔符）
	perMessageOverhead = 4
	// 回复起始标记
	replyPrimer = 3

	defaultEstimatorMax = 4096
)

// wideScripts 中的字符大约 1.5 个对应一个 token，其余约 4 个。
var wideScripts = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
}

// EstimatorTokenizer 按字符数估算 token，用于没有 BPE 数据的模型，
// 也是 tiktoken 初始化失败时的兜底。
type EstimatorTokenizer struct {
	model     string
	maxTokens int
}

// NewEstimatorTokenizer creates a generic estimator. maxTokens <= 0 means 4096.
func NewEstimatorTokenizer(model string, maxTokens int) *EstimatorTokenizer {
	if maxTokens <= 0 {
		maxTokens = defaultEstimatorMax
	}
	return &EstimatorTokenizer{model: model, maxTokens: maxTokens}
}

func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	var wide, narrow int
	for _, r := range text {
		if isWide(r) {
			wide++
		} else {
			narrow++
		}
	}

	if n := int(float64(wide)/1.5 + float64(narrow)/4.0); n > 0 {
		return n, nil
	}
	return 1, nil
}

func (e *EstimatorTokenizer) CountMessages(messages []Message) (int, error) {
	total := replyPrimer
	for _, msg := range messages {
		n, _ := e.CountTokens(msg.Content)
		total += n + perMessageOverhead
	}
	return total, nil
}

func (e *EstimatorTokenizer) MaxTokens() int { return e.maxTokens }

func (e *EstimatorTokenizer) Name() string { return "estimator" }

// isWide 判断 CJK 文字及全角标点。
func isWide(r rune) bool {
	if unicode.In(r, wideScripts...) {
		return true
	}
	return (r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF)
}
