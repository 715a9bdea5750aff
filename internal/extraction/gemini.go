package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"

	"expensy/internal/cache"
	"expensy/internal/core"
	"expensy/internal/log"
	"expensy/internal/metrics"
)

const prompt = "Analise este comprovante de despesa e extraia o valor total, a categoria mais provável " +
	"(Estacionamento, Lavagem, Ferramentas, Combustível, Hospedagem, Alimentação, Outros) e a data. " +
	"Retorne os dados em JSON. Não gere texto para descrição."

// Gemini calls the generateContent endpoint with a JSON response schema.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *log.Logger

	group singleflight.Group
	cache *cache.LRUCache[core.Extraction]
}

func NewGemini(ctx context.Context, cfg Config, logger *log.Logger) (*Gemini, error) {
	if logger == nil {
		logger = log.Discard()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.Endpoint},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := strings.TrimPrefix(cfg.Model, "models/")
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	size, ttl := cfg.CacheSize, cfg.CacheTTL
	if size <= 0 {
		size = DefaultCacheLen
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Gemini{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
		cache:   cache.NewLRUCache[core.Extraction](size, ttl),
	}, nil
}

// Cache exposes the result cache so it can be registered for cleanup.
func (g *Gemini) Cache() *cache.LRUCache[core.Extraction] {
	return g.cache
}

func (g *Gemini) Suggest(ctx context.Context, img core.Image) (core.Extraction, bool) {
	if len(img.Data) == 0 {
		return core.Extraction{}, false
	}
	sum := sha256.Sum256(img.Data)
	key := hex.EncodeToString(sum[:])

	if x, ok := g.cache.Get(key); ok {
		metrics.ExtractionRequests.WithLabelValues("cached").Inc()
		return x, true
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		return g.call(ctx, img)
	})
	if err != nil {
		metrics.ExtractionRequests.WithLabelValues("failed").Inc()
		g.logger.WarnContext(ctx, "receipt extraction failed",
			log.FieldError, err.Error(), log.FieldOperation, log.OpExtract)
		return core.Extraction{}, false
	}
	x := v.(core.Extraction)
	if x.Empty() {
		metrics.ExtractionRequests.WithLabelValues("empty").Inc()
		return core.Extraction{}, false
	}
	g.cache.Set(key, x)
	metrics.ExtractionRequests.WithLabelValues("ok").Inc()
	return x, true
}

func (g *Gemini) call(ctx context.Context, img core.Image) (core.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, newContents(img), generationConfig())
	metrics.ExtractionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return core.Extraction{}, fmt.Errorf("%w: %v", core.ErrExtractionUnavailable, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return core.Extraction{}, err
	}
	x, err := parseResponse(text)
	if err != nil {
		return core.Extraction{}, fmt.Errorf("%w: %v", core.ErrExtractionUnavailable, err)
	}
	return x, nil
}

func newContents(img core.Image) []*genai.Content {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mime, Data: img.Data}},
			{Text: prompt},
		},
	}}
}

func generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}
}

func responseSchema() *genai.Schema {
	labels := make([]string, len(core.Categories))
	for i, c := range core.Categories {
		labels[i] = string(c)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"amount": {Type: genai.TypeNumber, Description: "Valor total da nota"},
			"category": {
				Type:        genai.TypeString,
				Format:      "enum",
				Enum:        labels,
				Description: "Uma das categorias: " + strings.Join(labels, ", "),
			},
			"date": {Type: genai.TypeString, Description: "Data no formato YYYY-MM-DD"},
		},
		Required: []string{"amount", "category"},
	}
}

var errNoCandidate = errors.New("response has no text candidate")

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: %v", core.ErrExtractionUnavailable, errNoCandidate)
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %v", core.ErrExtractionUnavailable, errNoCandidate)
}
