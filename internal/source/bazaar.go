package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"dealradar/offers-service/internal/model"
	"dealradar/offers-service/internal/retry"
)

const bazaarTimeout = 15 * time.Second

// Bazaar fetches from the Bazaar marketplace. The promo API is the primary
// strategy; when it yields nothing the adapter falls back to scraping the
// public deals feed page, which lags the API but is rarely down.
type Bazaar struct {
	Normalizer

	BaseURL string // promo API base
	FeedURL string // public HTML deals feed
	client  *http.Client
}

// NewBazaar constructs the adapter.
func NewBazaar(baseURL, feedURL string, n Normalizer) *Bazaar {
	n.SourceName = "bazaar"
	return &Bazaar{
		Normalizer: n,
		BaseURL:    baseURL,
		FeedURL:    feedURL,
		client:     &http.Client{Timeout: bazaarTimeout},
	}
}

func (b *Bazaar) Name() string { return "bazaar" }

func (b *Bazaar) Strategies() []Strategy {
	return []Strategy{
		{Name: "promo"},
		{Name: "feed-scrape"},
	}
}

func (b *Bazaar) FetchCandidates(ctx context.Context, strategy Strategy) ([]model.RawCandidate, error) {
	switch strategy.Name {
	case "promo":
		return b.fetchPromo(ctx)
	case "feed-scrape":
		return b.scrapeFeed(ctx)
	default:
		return nil, fmt.Errorf("unknown bazaar strategy %q", strategy.Name)
	}
}

type bazaarPromoResponse struct {
	Promotions []struct {
		SKU       string  `json:"sku"`
		Name      string  `json:"name"`
		Summary   string  `json:"summary"`
		Category  string  `json:"category"`
		DealPrice float64 `json:"deal_price"`
		WasPrice  float64 `json:"was_price"`
		Currency  string  `json:"currency"`
		Link      string  `json:"link"`
		Image     string  `json:"image"`
		UnitsSold int     `json:"units_sold"`
	} `json:"promotions"`
}

func (b *Bazaar) fetchPromo(ctx context.Context) ([]model.RawCandidate, error) {
	if b.BaseURL == "" {
		log.Println("[bazaar] BAZAAR_BASE_URL not set — skipping promo strategy")
		return nil, nil
	}

	var body []byte
	err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/api/promotions/active", nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := b.client.Do(req)
		if err != nil {
			return fmt.Errorf("http GET: %w", err)
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &retry.StatusError{Code: resp.StatusCode}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("promo: %w", err)
	}

	var parsed bazaarPromoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("promo: json unmarshal: %w", err)
	}

	out := make([]model.RawCandidate, 0, len(parsed.Promotions))
	for _, p := range parsed.Promotions {
		out = append(out, model.RawCandidate{
			ExternalID:    p.SKU,
			Title:         p.Name,
			Description:   p.Summary,
			Category:      p.Category,
			Price:         p.DealPrice,
			OriginalPrice: p.WasPrice,
			Currency:      p.Currency,
			ProductURL:    p.Link,
			ImageURL:      p.Image,
			SalesVolume:   p.UnitsSold,
		})
	}
	return out, nil
}

// scrapeFeed walks the public deals feed page with colly. Selectors target
// the feed's stable data attributes, not its layout classes.
func (b *Bazaar) scrapeFeed(ctx context.Context) ([]model.RawCandidate, error) {
	if b.FeedURL == "" {
		log.Println("[bazaar] BAZAAR_FEED_URL not set — skipping feed scrape")
		return nil, nil
	}

	var out []model.RawCandidate

	c := colly.NewCollector(colly.UserAgent("dealradar-offers/1.0"))
	c.SetRequestTimeout(bazaarTimeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: time.Second}); err != nil {
		return nil, fmt.Errorf("feed scrape limit rule: %w", err)
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML("article[data-deal-id]", func(e *colly.HTMLElement) {
		price := parsePrice(e.Attr("data-price"))
		was := parsePrice(e.Attr("data-was-price"))
		out = append(out, model.RawCandidate{
			ExternalID:    e.Attr("data-deal-id"),
			Title:         strings.TrimSpace(e.ChildText("h2")),
			Description:   strings.TrimSpace(e.ChildText("p.deal-summary")),
			Category:      e.Attr("data-category"),
			Price:         price,
			OriginalPrice: was,
			Currency:      e.Attr("data-currency"),
			ProductURL:    e.Request.AbsoluteURL(e.ChildAttr("a", "href")),
			ImageURL:      e.ChildAttr("img", "src"),
		})
	})

	var visitErr error
	c.OnError(func(_ *colly.Response, err error) { visitErr = err })

	if err := c.Visit(b.FeedURL); err != nil {
		return nil, fmt.Errorf("feed scrape: %w", err)
	}
	c.Wait()
	if visitErr != nil && len(out) == 0 {
		return nil, fmt.Errorf("feed scrape: %w", visitErr)
	}
	return out, nil
}

// parsePrice tolerates "1,299.90" and plain floats.
func parsePrice(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
