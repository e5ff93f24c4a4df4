package core

// AnalysisPayload is the inbound job description collected by the form wizard.
type AnalysisPayload struct {
	Site         string          `json:"site"`                   // Site identifier, usually a domain or URL
	Competitors  []string        `json:"competitors,omitempty"`  // Optional competitor domains or names
	TargetMarket string          `json:"targetMarket,omitempty"` // Market focus, e.g. "UK"
	ContactEmail string          `json:"contactEmail,omitempty"` // Who requested the report
	Report       *ExternalReport `json:"report"`                 // Structured web-intelligence report
}

// ExternalReport is the caller-supplied web-intelligence report. Read-only.
type ExternalReport struct {
	Domain           string          `json:"domain"`
	DetectedName     string          `json:"detected_name"`
	DetectedIndustry string          `json:"detected_industry"`
	Organic          OrganicSearch   `json:"organic_search"`
	Backlinks        Backlinks       `json:"backlinks"`
	Mobile           MobileStats     `json:"mobile"`
	Pages            PagedPages      `json:"pages"`
	Reviews          ReviewStats     `json:"reviews"`
	Local            LocalPresence   `json:"local_presence"`
	Ecommerce        EcommerceFlags  `json:"ecommerce"`
	Technologies     []Technology    `json:"technologies"`
	TrafficHistory   []TrafficSample `json:"traffic_history"`
}

// OrganicSearch holds organic search statistics.
type OrganicSearch struct {
	TotalKeywords    int             `json:"total_keywords"`
	EstimatedTraffic float64         `json:"estimated_traffic"`
	TrafficCost      float64         `json:"traffic_cost"`
	RankedKeywords   []RankedKeyword `json:"ranked_keywords"`
}

// RankedKeyword is one ranking row from the external report.
type RankedKeyword struct {
	Term           string  `json:"term"`
	Position       int     `json:"position"`
	MonthlyQueries int     `json:"monthly_queries_for_term"`
	CPC            float64 `json:"cpc"`
	URL            string  `json:"url,omitempty"`
}

// Backlinks holds backlink totals and the referring domain list.
type Backlinks struct {
	Total            int               `json:"total"`
	ReferringDomains []ReferringDomain `json:"referring_domains"`
	DofollowRatio    float64           `json:"dofollow_ratio"`
	AuthorityScore   float64           `json:"authority_score"`
}

// ReferringDomain is one domain linking to the site.
type ReferringDomain struct {
	Domain    string  `json:"domain"`
	Authority float64 `json:"authority"`
	Backlinks int     `json:"backlinks"`
	Dofollow  bool    `json:"dofollow"`
}

// MobileStats holds pagespeed and mobile friendliness data.
type MobileStats struct {
	MobileFriendly   bool    `json:"mobile_friendly"`
	PerformanceScore float64 `json:"performance_score"`
	LCPSeconds       float64 `json:"lcp_seconds"`
	CLS              float64 `json:"cls"`
	TBTMillis        float64 `json:"tbt_ms"`
}

// PagedPages is a page of crawled pages as returned by the report provider.
type PagedPages struct {
	Total int    `json:"total"`
	Items []Page `json:"items"`
}

// Page is one crawled page.
type Page struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	OrganicTraffic float64 `json:"organic_traffic"`
	Keywords       int     `json:"keywords"`
	StatusCode     int     `json:"status_code"`
}

// ReviewStats holds aggregate review data.
type ReviewStats struct {
	AverageRating float64  `json:"average_rating"`
	Count         int      `json:"count"`
	Sources       []string `json:"sources"`
}

// LocalPresence holds local listing data.
type LocalPresence struct {
	HasBusinessProfile bool     `json:"has_business_profile"`
	NAPConsistent      bool     `json:"nap_consistent"`
	Citations          int      `json:"citations"`
	Locations          []string `json:"locations"`
}

// EcommerceFlags describes detected e-commerce capability.
type EcommerceFlags struct {
	IsEcommerce  bool   `json:"is_ecommerce"`
	Platform     string `json:"platform"`
	ProductCount int    `json:"product_count"`
	HasCart      bool   `json:"has_cart"`
}

// Technology is one detected technology.
type Technology struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// TrafficSample is one point of the organic traffic history.
type TrafficSample struct {
	Month   string  `json:"month"`
	Traffic float64 `json:"traffic"`
}

// Firmographics is the firmographic record for a domain.
type Firmographics struct {
	Name             string     `json:"name"`
	Domain           string     `json:"domain"`
	Industry         string     `json:"industry"`
	Keywords         []string   `json:"keywords"`
	EmployeeEstimate string     `json:"employee_estimate"`
	RevenueEstimate  string     `json:"revenue_estimate"`
	FoundedYear      int        `json:"founded_year"`
	Country          string     `json:"country"`
	Social           SocialURLs `json:"social"`
}

// SocialURLs lists known social profiles.
type SocialURLs struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
}

// Present returns the non-empty social profiles keyed by network.
func (s SocialURLs) Present() map[string]string {
	out := make(map[string]string)
	for name, url := range map[string]string{
		"linkedin":  s.LinkedIn,
		"twitter":   s.Twitter,
		"facebook":  s.Facebook,
		"instagram": s.Instagram,
		"youtube":   s.YouTube,
	} {
		if url != "" {
			out[name] = url
		}
	}
	return out
}
