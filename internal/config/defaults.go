package config

const (
	DefaultListURLTemplate = "https://www.ilan.gov.tr/ilan/kategori/9/ihale-duyurulari?currentPage={page}&ats=3"
	DefaultBaseURL         = "https://www.ilan.gov.tr"
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	DefaultDetailPattern = `^/ilan/`
)

var (
	defaultGeoTokens = []string{
		"antalya", "aksu", "kepez", "muratpaşa", "muratpasa", "konyaaltı", "konyaalti",
		"döşemealtı", "dosemealti", "serik", "manavgat", "alanya", "kaş", "kas",
		"kemer", "kumluca", "finike", "demre", "elmalı", "elmali", "gazipaşa",
		"gazipasa", "akseki", "ibradı", "ibradi", "gündoğmuş", "gundogmus",
	}
	defaultPositive = []string{
		"kiralama ihalesi", "kira ihalesi", "kiralanacaktır", "kiralanacakt",
		"kiraya verilece", "kiraya verilecek", "kiraya verilmesi",
		"işletme hakkı", "isletme hakki", "kullanım hakkı", "kullanim hakki",
		"ihale", "kiralama", "kira",
	}
	defaultNegative = []string{
		"konkordato", "iflas", "tasfiye", "icra", "satış", "satis", "arsa",
		"taşınmaz satışı", "tasinmaz satisi", "mahkeme", "dava",
		"kamulaştırma", "kamulastirma", "haciz", "ipotek",
	}
	defaultAmbiguous = []string{"kiraya verme"}
)

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
		Logic: LogicConfig{
			MaxPages:       6,
			MaxSendPerRun:  6,
			TimeoutSec:     45,
			SleepBetween:   0.6,
			NotifyPause:    0.4,
			ChatPause:      0.25,
			UserAgent:      DefaultUserAgent,
			DetailTextMode: TextModeFull,
		},
		Filter: FilterConfig{
			Primary:          "antalya",
			GeoTokens:        append([]string(nil), defaultGeoTokens...),
			Positive:         append([]string(nil), defaultPositive...),
			Negative:         append([]string(nil), defaultNegative...),
			Ambiguous:        append([]string(nil), defaultAmbiguous...),
			AllowKirayaVerme: true,
		},
		Store: StoreConfig{
			Backend:         BackendFile,
			CacheDir:        ".cache",
			Capacity:        5000,
			MongoDatabase:   "tender_spider",
			MongoCollection: "seen",
			RedisPrefix:     "tender_spider:seen",
			S3Key:           "tender_spider/seen.json",
		},
		Log: LogConfig{Level: "info"},
		Sources: map[string]SourceConfig{
			"ilan_list": {
				Kind:            KindList,
				Enabled:         true,
				URL:             DefaultListURLTemplate,
				BaseURL:         DefaultBaseURL,
				Bucket:          "ilan",
				DetailPattern:   DefaultDetailPattern,
				ExcludePatterns: []string{`^/ilan/kategori/`},
				Priority:        0,
			},
			"ilan_api": {
				Kind:     KindAPI,
				URL:      "https://www.ilan.gov.tr/api/api/services/app/Ad/AdsByFilter?currentPage={page}&searchText={query}",
				BaseURL:  DefaultBaseURL,
				Bucket:   "ilan",
				Query:    "kiralama",
				Priority: 10,
			},
			"ilan_sitemap": {
				Kind:             KindSitemap,
				URL:              "https://www.ilan.gov.tr/sitemap.xml",
				BaseURL:          DefaultBaseURL,
				Bucket:           "ilan",
				DetailPattern:    `/ilan/\d+`,
				MaxURLs:          200,
				MaxChildSitemaps: 5,
				Priority:         20,
			},
			"municipal": {
				Kind:          KindPage,
				URLs:          []string{"https://www.antalya.bel.tr/tr/ihaleler"},
				BaseURL:       "https://www.antalya.bel.tr",
				Bucket:        "municipal",
				DetailPattern: `ihale`,
				Priority:      30,
			},
		},
	}
}

// setSourceDefaults fills per-source fields a YAML file may have left empty.
func (c *Config) setSourceDefaults() {
	for name, src := range c.Sources {
		if src.Bucket == "" {
			src.Bucket = name
		}
		if src.DetailPattern == "" && (src.Kind == KindList || src.Kind == KindSitemap) {
			src.DetailPattern = DefaultDetailPattern
		}
		if src.Kind == KindSitemap {
			if src.MaxURLs <= 0 {
				src.MaxURLs = 200
			}
			if src.MaxChildSitemaps <= 0 {
				src.MaxChildSitemaps = 5
			}
		}
		c.Sources[name] = src
	}
}
