package models

import "time"

type Product struct {
	ID              int64      `db:"id" json:"id"`
	ExternalID      string     `db:"external_id" json:"external_id"`
	Title           string     `db:"title" json:"title"`
	Performers      []string   `db:"performers" json:"performers"`
	Categories      []string   `db:"categories" json:"categories"`
	Maker           string     `db:"maker" json:"maker,omitempty"`
	URL             string     `db:"url" json:"url"`
	PackageImageURL string     `db:"package_image_url" json:"package_image_url,omitempty"`
	ReleaseDate     *time.Time `db:"release_date" json:"release_date,omitempty"`
	FetchedAt       time.Time  `db:"fetched_at" json:"fetched_at"`
	Posted          bool       `db:"posted" json:"posted"`
	LastPostedAt    *time.Time `db:"last_posted_at" json:"last_posted_at,omitempty"`
}

type ProductSort string

const (
	ProductSortLatest  ProductSort = "latest"
	ProductSortTitle   ProductSort = "title"
	ProductSortRelease ProductSort = "release"
)

type ProductFilter struct {
	Keyword  string
	Sort     ProductSort
	Unposted bool
	Limit    int
	Offset   int
}
