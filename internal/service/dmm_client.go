package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	config "github.com/maheshrc27/curapost/configs"
	"github.com/maheshrc27/curapost/internal/transfer"
)

const (
	dmmItemListURL  = "https://api.dmm.com/affiliate/v3/ItemList"
	dmmDateLayout   = "2006-01-02 15:04:05"
	dmmDefaultHits  = 20
	dmmDefaultSort  = "date"
	dmmFetchTimeout = 30 * time.Second
)

var dmmMovieSizes = []string{"size_720_480", "size_644_414", "size_560_360", "size_476_306"}

// CatalogClient queries the product catalog.
type CatalogClient interface {
	Fetch(ctx context.Context, filter transfer.CatalogFilter) ([]transfer.ProductRecord, error)
}

type DMMClient struct {
	cfg        config.DMM
	httpClient *http.Client
	baseURL    string
	loc        *time.Location
}

func NewDMMClient(cfg config.DMM, httpClient *http.Client, loc *time.Location) *DMMClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: dmmFetchTimeout}
	}
	return &DMMClient{cfg: cfg, httpClient: httpClient, baseURL: dmmItemListURL, loc: loc}
}

func (c *DMMClient) Fetch(ctx context.Context, filter transfer.CatalogFilter) ([]transfer.ProductRecord, error) {
	if c.cfg.APIID == "" || c.cfg.AffiliateID == "" {
		return nil, fmt.Errorf("dmm credentials are not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, dmmFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+c.params(filter).Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var body transfer.DMMItemListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	records := make([]transfer.ProductRecord, 0, len(body.Result.Items))
	for _, item := range body.Result.Items {
		if item.ContentID == "" {
			continue
		}
		records = append(records, c.normalize(item))
	}
	return records, nil
}

func (c *DMMClient) params(filter transfer.CatalogFilter) url.Values {
	hits := filter.Hits
	if hits <= 0 {
		hits = dmmDefaultHits
	}
	sort := filter.Sort
	if sort == "" {
		sort = dmmDefaultSort
	}

	params := url.Values{}
	params.Set("api_id", c.cfg.APIID)
	params.Set("affiliate_id", c.cfg.AffiliateID)
	params.Set("site", "FANZA")
	params.Set("service", "digital")
	params.Set("floor", c.cfg.Floor)
	params.Set("output", "json")
	params.Set("hits", strconv.Itoa(hits))
	params.Set("sort", sort)
	if filter.Offset > 0 {
		params.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.Keyword != "" {
		params.Set("keyword", filter.Keyword)
	}
	return params
}

func (c *DMMClient) normalize(item transfer.DMMItem) transfer.ProductRecord {
	record := transfer.ProductRecord{
		ExternalID:      item.ContentID,
		Title:           item.Title,
		URL:             item.URL,
		PackageImageURL: item.ImageURL.Large,
		SampleImageURLs: item.SampleImageURL.SampleL.Image,
	}

	for _, a := range item.ItemInfo.Actress {
		record.Performers = append(record.Performers, a.Name)
	}
	for _, g := range item.ItemInfo.Genre {
		record.Categories = append(record.Categories, g.Name)
	}
	if len(item.ItemInfo.Maker) > 0 {
		record.Maker = item.ItemInfo.Maker[0].Name
	}

	if item.Date != "" {
		if t, err := time.ParseInLocation(dmmDateLayout, item.Date, c.loc); err == nil {
			record.ReleaseDate = &t
		}
	}

	for _, size := range dmmMovieSizes {
		if u, ok := item.SampleMovieURL[size].(string); ok && u != "" {
			record.SampleVideoURL = u
			break
		}
	}
	return record
}
