// Package filter implements the content blacklist applied to normalised
// offers before persistence.
package filter

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"dealradar/offers-service/internal/model"
)

// Blacklist drops offers whose title, description or brand matches a
// configured keyword (case-insensitive substring) or regular expression.
// It holds no external state: construct once at startup, call Apply per batch.
type Blacklist struct {
	enabled  bool
	keywords []string
	patterns []*regexp.Regexp
}

// New compiles the blacklist. Keywords are lower-cased once here; exprs must
// be valid Go regexps or New fails.
func New(enabled bool, keywords, exprs []string) (*Blacklist, error) {
	b := &Blacklist{enabled: enabled}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			b.keywords = append(b.keywords, k)
		}
	}
	for _, e := range exprs {
		re, err := regexp.Compile("(?i)" + e)
		if err != nil {
			return nil, fmt.Errorf("blacklist pattern %q: %w", e, err)
		}
		b.patterns = append(b.patterns, re)
	}
	return b, nil
}

// Apply returns the offers that survive the blacklist. Disabled ⇒ identity.
// One log line per rejection plus a summary when anything was dropped.
func (b *Blacklist) Apply(offers []*model.Offer) []*model.Offer {
	if b == nil || !b.enabled {
		return offers
	}

	kept := make([]*model.Offer, 0, len(offers))
	dropped := 0
	for _, o := range offers {
		if reason := b.match(o); reason != "" {
			log.Printf("[filter] dropped %q: matched %s", o.Title, reason)
			dropped++
			continue
		}
		kept = append(kept, o)
	}
	if dropped > 0 {
		log.Printf("[filter] %d of %d offers dropped by blacklist", dropped, len(offers))
	}
	return kept
}

func (b *Blacklist) match(o *model.Offer) string {
	combined := o.Title + " " + o.Description + " " + o.Brand
	lower := strings.ToLower(combined)
	for _, k := range b.keywords {
		if strings.Contains(lower, k) {
			return fmt.Sprintf("keyword %q", k)
		}
	}
	for _, re := range b.patterns {
		if re.MatchString(combined) {
			return fmt.Sprintf("pattern %q", re.String())
		}
	}
	return ""
}
