package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// PlaceholderImage is used for products without an image URL.
	PlaceholderImage = "/logo.png"

	// DefaultColorHex is the swatch color for products without one.
	DefaultColorHex = "#6366f1"

	// MaxFeatured limits how many products may be featured in the Hero
	// section at the same time.
	MaxFeatured = 3

	defaultButtonText = "Shop Now"
	generatedIDPrefix = "gen_"
)

// Product is the canonical catalog entry. Incoming records vary in shape
// across producers (admin-entered vs. API-read); Normalize coerces them all
// into this one form.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	OldPrice    string  `json:"oldPrice,omitempty"`
	Image       string  `json:"image"`
	ImageAlt    string  `json:"imageAlt,omitempty"`
	Color       string  `json:"color,omitempty"`
	ColorHex    string  `json:"colorHex,omitempty"`
	Category    string  `json:"category,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"reviewCount,omitempty"`
	Featured    bool    `json:"featured,omitempty"`
	ButtonText  string  `json:"buttonText,omitempty"`
	Discount    string  `json:"discount,omitempty"`
}

// UnmarshalJSON tolerates ids arriving as numbers and prices arriving as
// strings. Both shapes exist in documents written by older producers; the id
// is normalized to its canonical string form at this boundary so downstream
// code never compares raw ids.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		ID       any `json:"id"`
		Price    any `json:"price"`
		OldPrice any `json:"oldPrice"`
		Rating   any `json:"rating"`
		*alias
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.ID = NormalizeID(aux.ID)
	p.Price, _ = toFloat(aux.Price)
	p.OldPrice = numericString(aux.OldPrice)
	if f, ok := toFloat(aux.Rating); ok {
		p.Rating = f
	}
	return nil
}

// Normalize converts a heterogeneous product record into the canonical
// Product shape. It is pure and total: every field gets a defined default
// and a missing id is derived deterministically, so normalizing the same
// input always yields the same product. All defaulting lives here; callers
// must not invent their own.
func Normalize(raw map[string]any) Product {
	name := firstString(raw, "name", "title")
	price, _ := toFloat(raw["price"])

	p := Product{
		ID:          NormalizeID(raw["id"]),
		Name:        name,
		Title:       firstString(raw, "title", "name"),
		Description: stringValue(raw["description"]),
		Price:       price,
		OldPrice:    numericString(raw["oldPrice"]),
		Image:       defaultString(stringValue(raw["image"]), PlaceholderImage),
		ImageAlt:    defaultString(stringValue(raw["imageAlt"]), name),
		Color:       stringValue(raw["color"]),
		ColorHex:    defaultString(stringValue(raw["colorHex"]), DefaultColorHex),
		Category:    stringValue(raw["category"]),
		Featured:    boolValue(raw["featured"]),
		ButtonText:  defaultString(stringValue(raw["buttonText"]), defaultButtonText),
		Discount:    stringValue(raw["discount"]),
	}

	if rating, ok := toFloat(raw["rating"]); ok {
		p.Rating = rating
	}
	if rc, ok := toFloat(raw["reviewCount"]); ok {
		p.ReviewCount = int(rc)
	}

	if p.ID == "" {
		p.ID = DeriveID(p.Name, p.Category, p.Price)
	}
	return p
}

// DeriveID generates a stable id for a product that lacks one. The hash is
// computed over name_category_price, so the same logical product yields the
// same id on every read regardless of which code path touched it first.
// Cart merging, featured toggles and edit/delete flows all key off this id.
func DeriveID(name, category string, price float64) string {
	priceStr := ""
	if price != 0 {
		priceStr = strconv.FormatFloat(price, 'f', -1, 64)
	}
	base := name + "_" + category + "_" + priceStr

	// 32-bit signed polynomial rolling hash, wrapping on overflow.
	var h int32
	for _, r := range base {
		h = h*31 + int32(r)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return generatedIDPrefix + strconv.FormatInt(n, 10)
}

// NormalizeID converts an id of any incoming type to its canonical string
// form. Ids arrive as numbers from some producers and strings from others;
// equality checks on raw ids silently duplicate cart lines.
func NormalizeID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

// DisplayName returns the product's title, falling back to its name.
func DisplayName(p Product) string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

// IsFeatured reports whether the product is flagged for the Hero section.
func IsFeatured(p Product) bool {
	return p.Featured
}

// CountFeatured returns how many products in the list are featured.
func CountFeatured(products []Product) int {
	n := 0
	for _, p := range products {
		if p.Featured {
			n++
		}
	}
	return n
}

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders a price as a currency string. Unparsable, missing and
// NaN inputs render as a zero amount rather than failing.
func FormatPrice(v any) string {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return pricePrinter.Sprintf("EGP %.2f", f)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// numericString preserves was/now price fields that arrive as either
// strings or numbers.
func numericString(v any) string {
	switch n := v.(type) {
	case string:
		return strings.TrimSpace(n)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case json.Number:
		return n.String()
	default:
		return ""
	}
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringValue(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
