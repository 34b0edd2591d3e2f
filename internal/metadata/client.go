package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/range-arb/pkg/types"
	"go.uber.org/zap"
)

// Client is an HTTP client for the Polymarket Gamma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Gamma API client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// FetchActiveMarkets fetches one page of active markets.
func (c *Client) FetchActiveMarkets(ctx context.Context, limit, offset int) ([]types.GammaMarket, error) {
	endpoint := fmt.Sprintf("%s/markets", c.baseURL)

	params := url.Values{}
	params.Add("closed", "false")
	params.Add("active", "true")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))
	params.Add("order", "endDate")
	params.Add("ascending", "true")

	requestURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "range-arb/1.0")

	c.logger.Debug("fetching-markets",
		zap.String("url", requestURL),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	// The Gamma API returns a direct array, not a wrapped object.
	var markets []types.GammaMarket
	err = json.Unmarshal(body, &markets)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	c.logger.Debug("fetched-markets", zap.Int("count", len(markets)))

	return markets, nil
}

const pageSize = 100

// FetchRecords pages through active markets up to the given limit and
// converts them into structure-snapshot records. Markets without the YES/NO
// token pair are skipped.
func (c *Client) FetchRecords(ctx context.Context, limit int) ([]types.MarketRecord, error) {
	var records []types.MarketRecord

	for offset := 0; limit == 0 || offset < limit; offset += pageSize {
		size := pageSize
		if limit > 0 && limit-offset < size {
			size = limit - offset
		}

		markets, err := c.FetchActiveMarkets(ctx, size, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}

		for i := range markets {
			if markets[i].Closed || !markets[i].Active {
				continue
			}
			rec, ok := markets[i].ToRecord()
			if !ok {
				RecordsSkippedTotal.Inc()
				continue
			}
			records = append(records, rec)
		}

		if len(markets) < size {
			break
		}
	}

	RecordsFetched.Set(float64(len(records)))
	return records, nil
}

// FetchRecordBySlug pages through active markets looking for one slug. The
// Gamma API has no by-slug endpoint, so this scans up to maxPages pages.
func (c *Client) FetchRecordBySlug(ctx context.Context, slug string) (types.MarketRecord, error) {
	const maxPages = 10

	for page := 0; page < maxPages; page++ {
		markets, err := c.FetchActiveMarkets(ctx, pageSize, page*pageSize)
		if err != nil {
			return types.MarketRecord{}, fmt.Errorf("fetch page %d: %w", page, err)
		}

		for i := range markets {
			if markets[i].Slug != slug {
				continue
			}
			rec, ok := markets[i].ToRecord()
			if !ok {
				return types.MarketRecord{}, fmt.Errorf("market %s is missing its YES/NO token pair", slug)
			}
			return rec, nil
		}

		if len(markets) < pageSize {
			break
		}
	}

	return types.MarketRecord{}, fmt.Errorf("market %s not found among active markets", slug)
}
