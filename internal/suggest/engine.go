package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"cartpilot/internal/logger"
	"cartpilot/internal/services/groq"
	"cartpilot/internal/services/shopify"
)

type Provider string

const (
	ProviderGroq     Provider = "groq"
	ProviderFallback Provider = "fallback"
	ProviderSkip     Provider = "skip"
)

const (
	maxSuggestions      = 2
	maxPromptCandidates = 10
	maxReasonLength     = 80
	genericReason       = "Customers often add this to their order"
)

// Suggestion is one upsell proposal for the storefront widget.
type Suggestion struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	EstimatedPrice *float64 `json:"estimated_price,omitempty"`
	Reason         string   `json:"reason"`
	Action         string   `json:"action,omitempty"`
}

// Result carries the full outcome of one suggestion attempt, including
// which strategy produced it and why a fallback was taken. Degradation is
// a value here, not a suppressed error.
type Result struct {
	Provider       Provider     `json:"provider"`
	Model          string       `json:"model,omitempty"`
	Suggestions    []Suggestion `json:"suggestions"`
	FallbackReason string       `json:"fallback_reason,omitempty"`
	LatencyMs      int64        `json:"ms"`
}

// Engine ranks upsell candidates for a cart. It is state-free per call;
// the Groq client and timeout are fixed at construction.
type Engine struct {
	groq    *groq.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

func NewEngine(groqClient *groq.Client, model string, timeout time.Duration, logger *logger.Logger) *Engine {
	return &Engine{
		groq:    groqClient,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Suggest produces at most two suggestions for the cart. Strategy order:
// mono-product heuristic when there are no candidates, LLM ranking when
// the Groq key is configured, then price proximity. Every failure in the
// LLM path degrades to the next strategy instead of erroring.
func (e *Engine) Suggest(ctx context.Context, cart shopify.Cart, candidates []shopify.Candidate) Result {
	startedAt := time.Now()

	if len(cart.Items) == 0 || cart.Total <= 0 {
		return Result{
			Provider:    ProviderSkip,
			Suggestions: []Suggestion{},
			LatencyMs:   time.Since(startedAt).Milliseconds(),
		}
	}

	if len(candidates) == 0 {
		return Result{
			Provider:       ProviderFallback,
			Suggestions:    e.monoProductSuggestions(cart),
			FallbackReason: "no catalog candidates",
			LatencyMs:      time.Since(startedAt).Milliseconds(),
		}
	}

	var fallbackReason string
	if e.groq.Configured() {
		picks, err := e.rankWithLLM(ctx, cart, candidates)
		if err == nil && len(picks) > 0 {
			return Result{
				Provider:    ProviderGroq,
				Model:       e.model,
				Suggestions: picks,
				LatencyMs:   time.Since(startedAt).Milliseconds(),
			}
		}
		if err != nil {
			fallbackReason = err.Error()
			e.logger.Warn("LLM ranking failed, using price proximity: %v", err)
		} else {
			fallbackReason = "no valid picks from model"
		}
	} else {
		fallbackReason = "no API key configured"
	}

	return Result{
		Provider:       ProviderFallback,
		Suggestions:    priceProximity(cart, candidates),
		FallbackReason: fallbackReason,
		LatencyMs:      time.Since(startedAt).Milliseconds(),
	}
}

// monoProductSuggestions is the strategy of last resort when the shop's
// catalog yields nothing: always exactly two suggestions built from the
// cart's first item.
func (e *Engine) monoProductSuggestions(cart shopify.Cart) []Suggestion {
	first := cart.Items[0]

	packReason := "Bundle up: a pack of three unlocks the best per-unit price"
	if first.Quantity < 3 {
		packReason = fmt.Sprintf("You have %d in your cart: step up to a pack of three", first.Quantity)
	}

	packPrice := first.Price * 3
	return []Suggestion{
		{
			ID:             first.ID,
			Title:          fmt.Sprintf("%s — pack of 3", first.Name),
			EstimatedPrice: &packPrice,
			Reason:         truncateReason(packReason),
			Action:         "set_quantity",
		},
		{
			ID:             first.ID,
			Title:          fmt.Sprintf("One more %s", first.Name),
			EstimatedPrice: &first.Price,
			Reason:         "Add a spare or gift one to someone who'd love it",
			Action:         "add",
		},
	}
}

// rankWithLLM asks the model to pick exactly two candidates. The model
// only ever chooses from the supplied candidate list; anything else it
// returns is discarded.
func (e *Engine) rankWithLLM(ctx context.Context, cart shopify.Cart, candidates []shopify.Candidate) ([]Suggestion, error) {
	prompt := buildPrompt(cart, candidates)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	content, err := e.groq.ChatCompletion(ctx, groq.ChatRequest{
		Model:       e.model,
		Temperature: 0.2,
		MaxTokens:   300,
		Messages: []groq.Message{
			{
				Role:    "system",
				Content: "You reply with valid JSON only, no surrounding text.",
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
		ResponseFormat: &groq.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	picks := parsePicks(content)
	if len(picks) == 0 {
		return nil, fmt.Errorf("no parseable picks in model response")
	}

	byID := make(map[string]shopify.Candidate, len(candidates))
	for _, cand := range candidates {
		byID[cand.ID] = cand
	}

	suggestions := make([]Suggestion, 0, maxSuggestions)
	for _, pick := range picks {
		cand, ok := byID[pick.ID]
		if !ok {
			// Never trust the model to invent identifiers.
			e.logger.Debug("Dropping hallucinated pick %q", pick.ID)
			continue
		}
		reason := pick.Reason
		if reason == "" {
			reason = genericReason
		}
		suggestions = append(suggestions, Suggestion{
			ID:             cand.ID,
			Title:          cand.Title,
			EstimatedPrice: cand.Price,
			Reason:         truncateReason(reason),
		})
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions, nil
}

func buildPrompt(cart shopify.Cart, candidates []shopify.Candidate) string {
	var cartLines []string
	for _, item := range cart.Items {
		cartLines = append(cartLines, fmt.Sprintf("- %s | qty:%d | price:%.2f", item.Name, item.Quantity, item.Price))
	}

	if len(candidates) > maxPromptCandidates {
		candidates = candidates[:maxPromptCandidates]
	}
	var candidateLines []string
	for _, cand := range candidates {
		priceLabel := "n/a"
		if cand.Price != nil {
			priceLabel = fmt.Sprintf("%.2f", *cand.Price)
		}
		candidateLines = append(candidateLines, fmt.Sprintf("- id:%s | %s | price:%s", cand.ID, cand.Title, priceLabel))
	}

	return fmt.Sprintf(`You are an e-commerce upsell assistant.

CART (total %.2f):
%s

AVAILABLE PRODUCTS (choose only from these):
%s

Pick exactly 2 product ids from AVAILABLE PRODUCTS that best complement the cart.
Rules:
- "id" must be copied verbatim from the list above
- "reason" is a short marketing hook, max 10 words
- Respond with ONLY this JSON shape, nothing else:
{"suggestions": [{"id": "...", "reason": "..."}, {"id": "...", "reason": "..."}]}`,
		cart.Total,
		strings.Join(cartLines, "\n"),
		strings.Join(candidateLines, "\n"))
}

var jsonSpanRe = regexp.MustCompile(`(?s)\{.*\}|\[.*\]`)

type llmPick struct {
	ID     string
	Reason string
}

// parsePicks extracts candidate picks from free-form model output. The
// first bracketed JSON span is parsed; both the documented
// {"suggestions": [...]} shape and a bare array are accepted, and ids may
// arrive as numbers.
func parsePicks(content string) []llmPick {
	span := jsonSpanRe.FindString(content)
	if span == "" {
		return nil
	}

	type rawPick struct {
		ID     interface{} `json:"id"`
		Reason string      `json:"reason"`
	}

	var raw []rawPick
	var wrapped struct {
		Suggestions []rawPick `json:"suggestions"`
		Products    []rawPick `json:"products"`
	}
	if err := json.Unmarshal([]byte(span), &wrapped); err == nil {
		raw = wrapped.Suggestions
		if len(raw) == 0 {
			raw = wrapped.Products
		}
	}
	if len(raw) == 0 {
		// Some models return a bare array despite the instructions.
		json.Unmarshal([]byte(span), &raw)
	}

	picks := make([]llmPick, 0, len(raw))
	for _, r := range raw {
		id := shopify.Stringify(r.ID)
		if id == "" {
			continue
		}
		picks = append(picks, llmPick{ID: id, Reason: strings.TrimSpace(r.Reason)})
	}
	return picks
}

// priceProximity sorts candidates by distance to the first cart item's
// price and takes the closest two. The sort is stable so ties keep the
// collector's order.
func priceProximity(cart shopify.Cart, candidates []shopify.Candidate) []Suggestion {
	anchor := cart.Items[0].Price

	ranked := make([]shopify.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(sortPrice(ranked[i])-anchor) < math.Abs(sortPrice(ranked[j])-anchor)
	})

	if len(ranked) > maxSuggestions {
		ranked = ranked[:maxSuggestions]
	}

	suggestions := make([]Suggestion, 0, len(ranked))
	for _, cand := range ranked {
		suggestions = append(suggestions, Suggestion{
			ID:             cand.ID,
			Title:          cand.Title,
			EstimatedPrice: cand.Price,
			Reason:         genericReason,
		})
	}
	return suggestions
}

// sortPrice treats an unknown candidate price as zero for ranking only;
// the nil price itself is carried through to the suggestion output.
func sortPrice(cand shopify.Candidate) float64 {
	if cand.Price == nil {
		return 0
	}
	return *cand.Price
}

// truncateReason cuts on a rune boundary; reasons are often accented
// and a byte slice could split a multi-byte character.
func truncateReason(reason string) string {
	runes := []rune(reason)
	if len(runes) > maxReasonLength {
		return string(runes[:maxReasonLength])
	}
	return reason
}
