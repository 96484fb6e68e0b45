package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"cartpilot/internal/logger"
)

const (
	recommendationLimit = 8
	catalogLimit        = 50
)

// Candidate is a product eligible for suggestion, fetched from the shop's
// public storefront endpoints. Price is nil when the storefront exposes
// no parseable variant price; a zero price is always a genuine zero.
type Candidate struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Price *float64 `json:"price,omitempty"`
}

// StorefrontClient fetches complementary-product candidates from a shop's
// unauthenticated storefront API. Every fetch failure degrades to an empty
// result; the client never returns an error to its callers.
type StorefrontClient struct {
	httpClient *http.Client
	logger     *logger.Logger
}

func NewStorefrontClient(timeout time.Duration, logger *logger.Logger) *StorefrontClient {
	return &StorefrontClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// CollectCandidates gathers upsell candidates for a cart:
// per-product recommendation fetches run in parallel and are flattened;
// if nothing comes back the general catalog is used as a fallback; any
// candidate already in the cart is filtered out and the remainder is
// deduplicated by ID preserving first-seen order.
func (c *StorefrontClient) CollectCandidates(ctx context.Context, shopOrigin string, cartProductIDs []string) []Candidate {
	origin := normalizeOrigin(shopOrigin)
	if origin == "" {
		return []Candidate{}
	}

	candidates := c.fetchRecommendations(ctx, origin, cartProductIDs)
	if len(candidates) == 0 {
		candidates = c.fetchCatalog(ctx, origin)
	}

	inCart := make(map[string]bool, len(cartProductIDs))
	for _, id := range cartProductIDs {
		inCart[id] = true
	}

	seen := make(map[string]bool, len(candidates))
	result := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.ID == "" || inCart[cand.ID] || seen[cand.ID] {
			continue
		}
		seen[cand.ID] = true
		result = append(result, cand)
	}
	return result
}

// fetchRecommendations fans out one request per in-cart product and
// gathers all results in input order before flattening.
func (c *StorefrontClient) fetchRecommendations(ctx context.Context, origin string, productIDs []string) []Candidate {
	if len(productIDs) == 0 {
		return nil
	}

	results := make([][]Candidate, len(productIDs))
	var wg sync.WaitGroup

	for i, productID := range productIDs {
		wg.Add(1)
		go func(i int, productID string) {
			defer wg.Done()
			endpoint := fmt.Sprintf("%s/recommendations/products.json?product_id=%s&limit=%d",
				origin, url.QueryEscape(productID), recommendationLimit)
			results[i] = c.fetchProducts(ctx, endpoint)
		}(i, productID)
	}
	wg.Wait()

	var flat []Candidate
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat
}

func (c *StorefrontClient) fetchCatalog(ctx context.Context, origin string) []Candidate {
	endpoint := fmt.Sprintf("%s/products.json?limit=%d", origin, catalogLimit)
	return c.fetchProducts(ctx, endpoint)
}

// fetchProducts performs one storefront GET and parses the response into
// candidates. Shopify exposes prices on variants as strings; the first
// variant's price is taken as the candidate price.
func (c *StorefrontClient) fetchProducts(ctx context.Context, endpoint string) []Candidate {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Debug("Storefront request build failed for %s: %v", endpoint, err)
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Storefront fetch failed for %s: %v", endpoint, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Storefront fetch returned %d for %s", resp.StatusCode, endpoint)
		return nil
	}

	var body struct {
		Products []struct {
			ID       interface{} `json:"id"`
			Title    string      `json:"title"`
			Variants []struct {
				Price interface{} `json:"price"`
			} `json:"variants"`
		} `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Debug("Storefront response decode failed for %s: %v", endpoint, err)
		return nil
	}

	candidates := make([]Candidate, 0, len(body.Products))
	for _, p := range body.Products {
		cand := Candidate{
			ID:    Stringify(p.ID),
			Title: p.Title,
		}
		if len(p.Variants) > 0 {
			if price, ok := ToNumberOK(p.Variants[0].Price); ok {
				cand.Price = &price
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates
}

// normalizeOrigin turns a shop domain or URL into an https origin with no
// trailing slash.
func normalizeOrigin(shopOrigin string) string {
	origin := strings.TrimSpace(shopOrigin)
	if origin == "" {
		return ""
	}
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		origin = "https://" + origin
	}
	return strings.TrimRight(origin, "/")
}
