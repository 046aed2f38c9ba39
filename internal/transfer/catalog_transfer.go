package transfer

import "time"

// CatalogFilter narrows a catalog query.
type CatalogFilter struct {
	Keyword string
	Sort    string
	Hits    int
	Offset  int
}

// ProductRecord is a catalog item normalized from the provider response.
type ProductRecord struct {
	ExternalID      string
	Title           string
	Performers      []string
	Categories      []string
	Maker           string
	URL             string
	PackageImageURL string
	ReleaseDate     *time.Time
	SampleImageURLs []string
	SampleVideoURL  string
}

type DMMItemListResponse struct {
	Result struct {
		Status        int       `json:"status"`
		ResultCount   int       `json:"result_count"`
		TotalCount    int       `json:"total_count"`
		FirstPosition int       `json:"first_position"`
		Items         []DMMItem `json:"items"`
		Message       string    `json:"message"`
	} `json:"result"`
}

type DMMItem struct {
	ContentID string `json:"content_id"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	URL       string `json:"URL"`
	AffURL    string `json:"affiliateURL"`
	Date      string `json:"date"`
	ImageURL  struct {
		List  string `json:"list"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"imageURL"`
	SampleImageURL struct {
		SampleS struct {
			Image []string `json:"image"`
		} `json:"sample_s"`
		SampleL struct {
			Image []string `json:"image"`
		} `json:"sample_l"`
	} `json:"sampleImageURL"`
	SampleMovieURL map[string]any `json:"sampleMovieURL"`
	ItemInfo       struct {
		Genre   []DMMNamed `json:"genre"`
		Actress []DMMNamed `json:"actress"`
		Maker   []DMMNamed `json:"maker"`
	} `json:"iteminfo"`
}

type DMMNamed struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
