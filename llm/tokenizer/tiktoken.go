package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

type encodingInfo struct {
	encoding  string
	maxTokens int
}

// 模型编码将模型名称映射到其tiktoken编码和上下文大小。
// 按前缀匹配，较长的前缀排在前面。
var modelEncodings = []struct {
	prefix string
	info   encodingInfo
}{
	{"gpt-5", encodingInfo{"o200k_base", 272000}},
	{"gpt-4.1", encodingInfo{"o200k_base", 1000000}},
	{"gpt-4o", encodingInfo{"o200k_base", 128000}},
	{"gpt-4-turbo", encodingInfo{"cl100k_base", 128000}},
	{"gpt-4", encodingInfo{"cl100k_base", 8192}},
	{"gpt-3.5-turbo", encodingInfo{"cl100k_base", 16385}},
	{"o1", encodingInfo{"o200k_base", 200000}},
	{"o3", encodingInfo{"o200k_base", 200000}},
}

func lookupEncoding(model string) (encodingInfo, bool) {
	for _, m := range modelEncodings {
		if hasPrefixFold(model, m.prefix) {
			return m.info, true
		}
	}
	return encodingInfo{}, false
}

// TiktokenTokenizer为OpenAI-家庭模型改造tiktoken.
type TiktokenTokenizer struct {
	model     string
	encoding  string
	maxTokens int
	enc       *tiktoken.Tiktoken
	once      sync.Once
	initErr   error
}

func newTiktokenTokenizer(model string, info encodingInfo) *TiktokenTokenizer {
	return &TiktokenTokenizer{
		model:     model,
		encoding:  info.encoding,
		maxTokens: info.maxTokens,
	}
}

// NewTiktokenTokenizer为给定型号创建了以tiktoken为主的代号.
// 未知模型默认使用 cl100k_base。
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	info, ok := lookupEncoding(model)
	if !ok {
		info = encodingInfo{encoding: "cl100k_base", maxTokens: 8192}
	}
	return newTiktokenTokenizer(model, info)
}

// init lazily 初始化 tiktoken 编码(可以在第一次使用时下载数据).
func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) CountMessages(messages []Message) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}

	total := replyPrimer
	for _, msg := range messages {
		// <|start|>role\n content<|end|>\n
		total += perMessageOverhead
		total += len(t.enc.Encode(msg.Content, nil, nil))
		total += len(t.enc.Encode(msg.Role, nil, nil))
	}
	return total, nil
}

func (t *TiktokenTokenizer) MaxTokens() int {
	return t.maxTokens
}

func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}
