// Package rates implements the exchange rate feed port against the ECB.
// Both feeds quote foreign currency units per euro; the conversion use case
// inverts before caching.
package rates

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/resilience"
)

const (
	// Daily reference rate series: D.{currency}.EUR.SP00.A.
	DefaultHistoricalURL = "https://data-api.ecb.europa.eu/service/data/EXR"
	DefaultLatestURL     = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"
)

// HistoricalFeed serves dated quotes from the ECB SDMX data API in CSV form.
type HistoricalFeed struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewHistoricalFeed(baseURL string, executor *resilience.Executor) *HistoricalFeed {
	if baseURL == "" {
		baseURL = DefaultHistoricalURL
	}
	return &HistoricalFeed{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		executor:   executor,
	}
}

func (f *HistoricalFeed) Quote(ctx context.Context, currency, date string) (float64, error) {
	url := fmt.Sprintf("%s/D.%s.EUR.SP00.A?startPeriod=%s&endPeriod=%s&format=csvdata",
		f.baseURL, strings.ToUpper(currency), date, date)

	var quote float64
	call := func(callCtx context.Context) error {
		body, err := fetch(callCtx, f.httpClient, url)
		if err != nil {
			return err
		}
		quote, err = parseSDMXCSV(body)
		return err
	}

	var err error
	if f.executor != nil {
		err = f.executor.Execute(ctx, "rates.historical", call, classifyFeedError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("historical quote %s@%s: %w", currency, date, err)
	}
	return quote, nil
}

// parseSDMXCSV pulls OBS_VALUE out of an SDMX csvdata response. The payload
// is one header row plus one observation row for a single-day query.
func parseSDMXCSV(body []byte) (float64, error) {
	records, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return 0, fmt.Errorf("no observations in feed response")
	}

	valueCol := -1
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), "OBS_VALUE") {
			valueCol = i
			break
		}
	}
	if valueCol < 0 {
		return 0, fmt.Errorf("no OBS_VALUE column in feed response")
	}
	if valueCol >= len(records[1]) {
		return 0, fmt.Errorf("malformed observation row")
	}

	quote, err := strconv.ParseFloat(strings.TrimSpace(records[1][valueCol]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse observation value: %w", err)
	}
	if quote <= 0 {
		return 0, fmt.Errorf("non-positive quote %v", quote)
	}
	return quote, nil
}

// LatestFeed serves the most recent reference rates from the daily XML
// snapshot. It cannot answer for a specific historical date; the requested
// date is ignored.
type LatestFeed struct {
	url        string
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewLatestFeed(url string, executor *resilience.Executor) *LatestFeed {
	if url == "" {
		url = DefaultLatestURL
	}
	return &LatestFeed{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		executor:   executor,
	}
}

type envelope struct {
	Cube struct {
		Day struct {
			Time  string `xml:"time,attr"`
			Rates []struct {
				Currency string `xml:"currency,attr"`
				Rate     string `xml:"rate,attr"`
			} `xml:"Cube"`
		} `xml:"Cube"`
	} `xml:"Cube"`
}

func (f *LatestFeed) Quote(ctx context.Context, currency, _ string) (float64, error) {
	var quote float64
	call := func(callCtx context.Context) error {
		body, err := fetch(callCtx, f.httpClient, f.url)
		if err != nil {
			return err
		}
		quote, err = parseDailyXML(body, currency)
		return err
	}

	var err error
	if f.executor != nil {
		err = f.executor.Execute(ctx, "rates.latest", call, classifyFeedError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("latest quote %s: %w", currency, err)
	}
	return quote, nil
}

func parseDailyXML(body []byte, currency string) (float64, error) {
	var doc envelope
	if err := xml.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("parse daily xml: %w", err)
	}

	currency = strings.ToUpper(currency)
	for _, r := range doc.Cube.Day.Rates {
		if r.Currency != currency {
			continue
		}
		quote, err := strconv.ParseFloat(r.Rate, 64)
		if err != nil {
			return 0, fmt.Errorf("parse rate for %s: %w", currency, err)
		}
		if quote <= 0 {
			return 0, fmt.Errorf("non-positive quote %v for %s", quote, currency)
		}
		return quote, nil
	}
	return 0, fmt.Errorf("currency %s not in daily snapshot", currency)
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &feedStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}
	return body, nil
}
