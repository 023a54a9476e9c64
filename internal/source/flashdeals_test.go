package source

import "testing"

func TestLocateOffers_NestedRoots(t *testing.T) {
	payloads := []string{
		`{"pageProps":{"offers":[{"title":"TV","price":499.9,"oldPrice":799.9}]}}`,
		`{"props":{"pageProps":{"offers":[{"title":"TV","price":499.9}]}}}`,
		`{"data":{"offers":[{"name":"TV","salePrice":499.9}]}}`,
		`{"offers":[{"productName":"TV","currentPrice":499.9}]}`,
	}
	for _, p := range payloads {
		got, found := locateOffers([]byte(p))
		if !found {
			t.Errorf("locateOffers(%s) found nothing", p)
			continue
		}
		if len(got) != 1 || got[0].Title != "TV" {
			t.Errorf("locateOffers(%s) = %+v", p, got)
		}
	}
}

func TestLocateOffers_NotFound(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"offers":"not an array"}`,
		`{"offers":[{"irrelevant":true}]}`, // array exists but nothing offer-shaped
		`not even json`,
	}
	for _, p := range payloads {
		if _, found := locateOffers([]byte(p)); found {
			t.Errorf("locateOffers(%s) should find nothing", p)
		}
	}
}

func TestCandidateFrom_FieldAliases(t *testing.T) {
	got, found := locateOffers([]byte(
		`{"offers":[{"sku":"s-9","name":"Blender","salePrice":35,"listPrice":70,"sold":1200,"coupons":["SAVE5"]}]}`,
	))
	if !found {
		t.Fatal("expected a candidate")
	}
	c := got[0]
	if c.ExternalID != "s-9" || c.Price != 35 || c.OriginalPrice != 70 {
		t.Errorf("alias mapping wrong: %+v", c)
	}
	if c.SalesVolume != 1200 {
		t.Errorf("salesVolume = %d, want 1200", c.SalesVolume)
	}
	if len(c.CouponCodes) != 1 || c.CouponCodes[0] != "SAVE5" {
		t.Errorf("coupons = %v", c.CouponCodes)
	}
}
