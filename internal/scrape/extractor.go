package scrape

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrPriceNotFound is returned when no pattern matched the markup, or when a
// matched price string turned out not to be numeric.
var ErrPriceNotFound = errors.New("price not found")

// Retailer identifies which pattern set applies to a product page.
type Retailer string

const (
	RetailerUnknown  Retailer = ""
	RetailerAmazonIN Retailer = "amazon.in"
	RetailerFlipkart Retailer = "flipkart.com"
)

// DetectRetailer derives the retailer from a substring of the product URL.
func DetectRetailer(productURL string) Retailer {
	switch {
	case strings.Contains(productURL, "amazon.in"):
		return RetailerAmazonIN
	case strings.Contains(productURL, "flipkart.com"):
		return RetailerFlipkart
	}
	return RetailerUnknown
}

// pattern is one markup shape a retailer renders prices in. A paired pattern
// captures the whole and fractional parts separately and joins them with a
// decimal point; all others capture the full price text in group 1.
type pattern struct {
	re     *regexp.Regexp
	paired bool
}

// Ordered most-specific first; the first match wins. Regex matching over raw
// markup is brittle across site redesigns, but a short ordered list of known
// shapes is far cheaper than a full HTML parse and degrades to "not found"
// when all of them go stale.
var retailerPatterns = map[Retailer][]pattern{
	RetailerAmazonIN: {
		{re: regexp.MustCompile(`(?i)<span[^>]*class="a-price-whole"[^>]*>([\d,]+)</span>\s*<span[^>]*class="a-price-fraction"[^>]*>(\d+)</span>`), paired: true},
		{re: regexp.MustCompile(`(?i)<span[^>]*class="a-offscreen"[^>]*>₹\s*([\d,]+(?:\.\d{2})?)</span>`)},
		{re: regexp.MustCompile(`(?i)id="priceblock_ourprice"[^>]*>₹\s*([\d,]+(?:\.\d{2})?)<`)},
		{re: regexp.MustCompile(`(?i)id="priceblock_dealprice"[^>]*>₹\s*([\d,]+(?:\.\d{2})?)<`)},
		{re: regexp.MustCompile(`(?i)<span[^>]*data-a-size="xl"[^>]*>\s*<span[^>]*class="a-price-symbol"[^>]*>₹</span>\s*<span[^>]*class="a-price-whole"[^>]*>([\d,]+(?:\.\d{0,2})?)</span>\s*</span>`)},
	},
	RetailerFlipkart: {
		{re: regexp.MustCompile(`(?i)<div[^>]*class="_30jeq3 _16Jk6d"[^>]*>₹\s*([\d,]+(?:\.\d{2})?)</div>`)},
	},
}

// ExtractPrice locates a price in raw page markup for the given retailer and
// parses it to a decimal. An unrecognized retailer returns ErrPriceNotFound
// without evaluating any pattern. If a matched string fails numeric parsing
// the extraction fails; it does not fall through to the next pattern.
func ExtractPrice(markup string, retailer Retailer) (float64, error) {
	patterns, ok := retailerPatterns[retailer]
	if !ok {
		return 0, ErrPriceNotFound
	}

	for _, p := range patterns {
		m := p.re.FindStringSubmatch(markup)
		if m == nil {
			continue
		}

		var priceText string
		if p.paired {
			priceText = m[1] + "." + m[2]
		} else {
			priceText = m[1]
		}

		// Strip thousands separators before parsing.
		priceText = strings.ReplaceAll(priceText, ",", "")
		price, err := strconv.ParseFloat(priceText, 64)
		if err != nil {
			return 0, ErrPriceNotFound
		}
		return price, nil
	}

	return 0, ErrPriceNotFound
}
