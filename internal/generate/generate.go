package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shoptools/shoppush/internal/gemini"
	"github.com/shoptools/shoppush/internal/ollama"
	"github.com/shoptools/shoppush/internal/openai"
	"github.com/shoptools/shoppush/internal/product"
	"github.com/shoptools/shoppush/internal/providers"
)

// Listing is the JSON shape the model is asked to produce for one
// product.
type Listing struct {
	Title       string `json:"title"`
	SubTitle    string `json:"sub_title"`
	Description string `json:"description"`
}

// NewProvider returns the provider implementation for the given name.
func NewProvider(name string) (providers.Provider, error) {
	switch name {
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s (supported: ollama, openai, gemini)", name)
	}
}

// DefaultModel picks the provider's default model, honoring the usual
// environment overrides.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	default:
		return ""
	}
}

// BuildPrompt asks for exactly one JSON object so ParseListing can
// unmarshal the reply without post-processing.
func BuildPrompt(productName, keywords string) string {
	var b strings.Builder
	b.WriteString("你是一名电商运营，为微信视频号小店撰写商品文案。\n")
	b.WriteString("商品名称: " + productName + "\n")
	if keywords != "" {
		b.WriteString("卖点关键词: " + keywords + "\n")
	}
	b.WriteString(`
请生成商品文案，要求:
- title: 商品标题，5到60个字符，包含商品名称和核心卖点
- sub_title: 副标题，一句话卖点，不超过18个字符
- description: 商品描述，2到3句话，突出材质、功能、适用场景

只输出一个JSON对象，不要输出任何其他内容:
{"title": "...", "sub_title": "...", "description": "..."}`)
	return b.String()
}

// ParseListing extracts the listing JSON from a model reply, tolerating
// markdown code fences around it.
func ParseListing(reply string) (*Listing, error) {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	// Models sometimes wrap the object in prose anyway.
	if i := strings.Index(text, "{"); i > 0 {
		text = text[i:]
	}
	if i := strings.LastIndex(text, "}"); i >= 0 {
		text = text[:i+1]
	}

	var listing Listing
	if err := json.Unmarshal([]byte(text), &listing); err != nil {
		return nil, fmt.Errorf("failed to parse listing from model reply: %w", err)
	}
	if strings.TrimSpace(listing.Title) == "" {
		return nil, fmt.Errorf("model reply has no title")
	}
	return &listing, nil
}

// Generate produces listing copy for one product name.
func Generate(ctx context.Context, provider providers.Provider, model, productName, keywords string) (*Listing, error) {
	reply, err := provider.GenerateText(ctx, providers.Config{
		Model:       model,
		Temperature: 0.7,
		Prompt:      BuildPrompt(productName, keywords),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate listing copy: %w", err)
	}
	return ParseListing(reply)
}

// Record converts generated copy into an uploadable product record.
// Everything the model does not produce is left for the completer.
func (l *Listing) Record() product.Record {
	return product.Record{
		Title:       l.Title,
		SubTitle:    l.SubTitle,
		Description: l.Description,
	}
}
