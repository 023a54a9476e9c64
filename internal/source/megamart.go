package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"dealradar/offers-service/internal/model"
	"dealradar/offers-service/internal/retry"
)

const (
	megamartPageSize = 50
	megamartMaxPages = 3 // max 150 results per strategy run
	megamartTimeout  = 15 * time.Second
)

// Megamart fetches deals from the Megamart affiliate search API.
// If APIKey is empty, FetchCandidates returns (nil, nil) gracefully — the
// orchestrator will simply move on and log a warning.
//
// The API is rate-limited per affiliate account, so all requests go through
// a shared token-bucket limiter regardless of which strategy issues them.
type Megamart struct {
	Normalizer

	BaseURL string
	APIKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewMegamart constructs the adapter with a shared HTTP client and limiter.
func NewMegamart(baseURL, apiKey string, n Normalizer) *Megamart {
	n.SourceName = "megamart"
	return &Megamart{
		Normalizer: n,
		BaseURL:    baseURL,
		APIKey:     apiKey,
		client:     &http.Client{Timeout: megamartTimeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 4), // 2 req/s, burst 4
	}
}

func (m *Megamart) Name() string { return "megamart" }

// Strategies ranks hot/trending first, the personalised smart-match feed
// second, and a generic keyword search as the final net.
func (m *Megamart) Strategies() []Strategy {
	return []Strategy{
		{Name: "hot"},
		{Name: "smart-match"},
		{Name: "keyword"},
	}
}

// megamartResponse mirrors the top-level search payload.
type megamartResponse struct {
	Items []megamartItem `json:"items"`
	Meta  struct {
		Page      int `json:"page"`
		LastPage  int `json:"last_page"`
		TotalHits int `json:"total_hits"`
	} `json:"meta"`
}

type megamartItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	ListPrice   float64 `json:"list_price"`
	Currency    string  `json:"currency"`
	URL         string  `json:"url"`
	ImageURL    string  `json:"image_url"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
	Orders      int     `json:"orders"` // lifetime sales volume
}

// FetchCandidates pages through the endpoint for the given strategy until
// megamartMaxPages or the vendor's last page is reached. Each page request
// is individually retry-wrapped so one flaky page does not discard the
// pages already gathered.
func (m *Megamart) FetchCandidates(ctx context.Context, strategy Strategy) ([]model.RawCandidate, error) {
	if m.APIKey == "" || m.BaseURL == "" {
		log.Println("[megamart] MEGAMART_API_KEY / MEGAMART_BASE_URL not set — skipping")
		return nil, nil
	}

	var out []model.RawCandidate
	for page := 1; page <= megamartMaxPages; page++ {
		var batch []model.RawCandidate
		var lastPage int
		err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
			var err error
			batch, lastPage, err = m.fetchPage(ctx, strategy.Name, page)
			return err
		})
		if err != nil {
			if len(out) > 0 {
				log.Printf("[megamart] page %d failed (%v) — keeping %d candidates from earlier pages", page, err, len(out))
				return out, nil
			}
			return nil, fmt.Errorf("strategy %s page %d: %w", strategy.Name, page, err)
		}
		out = append(out, batch...)
		if page >= lastPage || len(batch) < megamartPageSize {
			break
		}
	}
	return out, nil
}

func (m *Megamart) fetchPage(ctx context.Context, strategy string, page int) ([]model.RawCandidate, int, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	params := url.Values{}
	params.Set("api_key", m.APIKey)
	params.Set("per_page", strconv.Itoa(megamartPageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("min_discount", "5")

	var endpoint string
	switch strategy {
	case "hot":
		endpoint = m.BaseURL + "/v2/deals/hot"
	case "smart-match":
		endpoint = m.BaseURL + "/v2/deals/smart-match"
	default:
		endpoint = m.BaseURL + "/v2/deals/search"
		params.Set("q", "discount")
		params.Set("sort_by", "discount_desc")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, &retry.StatusError{Code: resp.StatusCode, Body: truncate(body, 200)}
	}

	var parsed megamartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, 0, fmt.Errorf("json unmarshal: %w", err)
	}

	out := make([]model.RawCandidate, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		out = append(out, model.RawCandidate{
			ExternalID:    it.ID,
			Title:         it.Title,
			Description:   it.Description,
			Brand:         it.Brand,
			Category:      it.Category,
			Price:         it.Price,
			OriginalPrice: it.ListPrice,
			Currency:      it.Currency,
			ProductURL:    it.URL,
			ImageURL:      it.ImageURL,
			Rating:        it.Rating,
			ReviewCount:   it.Reviews,
			SalesVolume:   it.Orders,
		})
	}
	lastPage := parsed.Meta.LastPage
	if lastPage == 0 {
		lastPage = page
	}
	return out, lastPage, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
