package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"dealradar/offers-service/internal/model"
	"dealradar/offers-service/internal/retry"
)

const flashdealsTimeout = 15 * time.Second

// Flashdeals fetches from a storefront whose data endpoints are generated
// by its frontend framework: the offer array is buried at a path that moves
// between deploys. Rather than pinning a path, locateOffers walks a set of
// known roots and probes for the first array whose elements look like offers.
type Flashdeals struct {
	Normalizer

	BaseURL string
	client  *http.Client
}

// NewFlashdeals constructs the adapter.
func NewFlashdeals(baseURL string, n Normalizer) *Flashdeals {
	n.SourceName = "flashdeals"
	return &Flashdeals{
		Normalizer: n,
		BaseURL:    baseURL,
		client:     &http.Client{Timeout: flashdealsTimeout},
	}
}

func (f *Flashdeals) Name() string { return "flashdeals" }

// Strategies ranks the flash-sale endpoint first; the full daily-deals dump
// is expensive on the vendor side and runs behind the batch ledger.
func (f *Flashdeals) Strategies() []Strategy {
	return []Strategy{
		{Name: "flash"},
		{Name: "daily", Daily: true},
	}
}

func (f *Flashdeals) FetchCandidates(ctx context.Context, strategy Strategy) ([]model.RawCandidate, error) {
	if f.BaseURL == "" {
		log.Println("[flashdeals] FLASHDEALS_BASE_URL not set — skipping")
		return nil, nil
	}

	path := "/_data/flash.json"
	if strategy.Name == "daily" {
		path = "/_data/daily.json"
	}

	var body []byte
	err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
		var err error
		body, err = f.get(ctx, f.BaseURL+path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", strategy.Name, err)
	}

	offers, found := locateOffers(body)
	if !found {
		return nil, fmt.Errorf("strategy %s: no offer array found in payload", strategy.Name)
	}
	return offers, nil
}

func (f *Flashdeals) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{Code: resp.StatusCode}
	}
	return body, nil
}

// offerRoots are the payload paths where the offer array has been observed
// across vendor deploys, probed in order.
var offerRoots = []string{
	"pageProps.offers",
	"props.pageProps.offers",
	"data.offers",
	"offers",
}

// locateOffers probes the payload for an array of offer-shaped objects.
// The boolean is false when nothing usable was found; the traversal never
// leaks gjson values past this function.
func locateOffers(body []byte) ([]model.RawCandidate, bool) {
	doc := gjson.ParseBytes(body)
	for _, root := range offerRoots {
		arr := doc.Get(root)
		if !arr.IsArray() {
			continue
		}
		var out []model.RawCandidate
		arr.ForEach(func(_, v gjson.Result) bool {
			if c, ok := candidateFrom(v); ok {
				out = append(out, c)
			}
			return true
		})
		if len(out) > 0 {
			return out, true
		}
	}
	return nil, false
}

// candidateFrom maps one JSON object to a RawCandidate, accepting the field
// aliases seen in the wild. Objects without a title and price are not offers.
func candidateFrom(v gjson.Result) (model.RawCandidate, bool) {
	title := firstString(v, "title", "name", "productName")
	price := firstFloat(v, "price", "currentPrice", "salePrice")
	if title == "" || price == 0 {
		return model.RawCandidate{}, false
	}
	var coupons []string
	for _, cv := range v.Get("coupons").Array() {
		if s := cv.String(); s != "" {
			coupons = append(coupons, s)
		}
	}
	return model.RawCandidate{
		ExternalID:    firstString(v, "id", "sku", "offerId"),
		Title:         title,
		Description:   firstString(v, "description", "subtitle"),
		Brand:         v.Get("brand").String(),
		Category:      firstString(v, "category", "categoryName"),
		Price:         price,
		OriginalPrice: firstFloat(v, "oldPrice", "listPrice", "originalPrice"),
		Currency:      v.Get("currency").String(),
		ProductURL:    firstString(v, "url", "link", "productUrl"),
		ImageURL:      firstString(v, "image", "imageUrl", "thumbnail"),
		Rating:        v.Get("rating").Float(),
		ReviewCount:   int(v.Get("reviews").Int()),
		SalesVolume:   int(firstFloat(v, "sold", "orders", "salesCount")),
		CouponCodes:   coupons,
	}, true
}

func firstString(v gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := v.Get(k).String(); s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(v gjson.Result, keys ...string) float64 {
	for _, k := range keys {
		if f := v.Get(k).Float(); f != 0 {
			return f
		}
	}
	return 0
}
