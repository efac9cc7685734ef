package catalog

// BannerSettings is the storefront banner display configuration carried
// alongside the product list.
type BannerSettings struct {
	ShowBanner       bool   `json:"showBanner"`
	BannerText       string `json:"bannerText"`
	BannerButtonText string `json:"bannerButtonText"`
	BannerButtonLink string `json:"bannerButtonLink"`
}

// DefaultBannerSettings returns the banner configuration used when the
// catalog document carries none.
func DefaultBannerSettings() BannerSettings {
	return BannerSettings{
		ShowBanner:       true,
		BannerText:       "Sale 50% OFF",
		BannerButtonText: "Shop Now",
		BannerButtonLink: "#",
	}
}

// Document is the catalog payload stored as a single JSON file in the
// remote document store. Product order is display order.
type Document struct {
	Products       []Product       `json:"products"`
	BannerSettings *BannerSettings `json:"bannerSettings,omitempty"`
	LastUpdated    string          `json:"lastUpdated"`
}
