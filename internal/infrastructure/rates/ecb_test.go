package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sdmxCSV = `KEY,FREQ,CURRENCY,CURRENCY_DENOM,EXR_TYPE,EXR_SUFFIX,TIME_PERIOD,OBS_VALUE
EXR.D.USD.EUR.SP00.A,D,USD,EUR,SP00,A,2024-03-15,1.0892
`

const dailyXML = `<?xml version="1.0" encoding="UTF-8"?>
<gesmes:Envelope xmlns:gesmes="http://www.gesmes.org/xml/2002-08-01" xmlns="http://www.ecb.int/vocabulary/2002-08-01/eurofxref">
  <gesmes:subject>Reference rates</gesmes:subject>
  <Cube>
    <Cube time="2024-03-15">
      <Cube currency="USD" rate="1.0892"/>
      <Cube currency="GBP" rate="0.8541"/>
    </Cube>
  </Cube>
</gesmes:Envelope>`

func TestHistoricalFeedQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/D.USD.EUR.SP00.A") {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("startPeriod") != "2024-03-15" || q.Get("endPeriod") != "2024-03-15" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(sdmxCSV))
	}))
	defer server.Close()

	feed := NewHistoricalFeed(server.URL, nil)
	quote, err := feed.Quote(context.Background(), "usd", "2024-03-15")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote != 1.0892 {
		t.Errorf("quote = %v, want 1.0892", quote)
	}
}

func TestHistoricalFeedQuote_NoObservation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Weekend dates come back with just the header.
		_, _ = w.Write([]byte("KEY,TIME_PERIOD,OBS_VALUE\n"))
	}))
	defer server.Close()

	feed := NewHistoricalFeed(server.URL, nil)
	if _, err := feed.Quote(context.Background(), "USD", "2024-03-16"); err == nil {
		t.Fatal("expected error for empty observation set")
	}
}

func TestHistoricalFeedQuote_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	feed := NewHistoricalFeed(server.URL, nil)
	if _, err := feed.Quote(context.Background(), "USD", "2024-03-15"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLatestFeedQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(dailyXML))
	}))
	defer server.Close()

	feed := NewLatestFeed(server.URL, nil)
	quote, err := feed.Quote(context.Background(), "GBP", "2024-03-15")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote != 0.8541 {
		t.Errorf("quote = %v, want 0.8541", quote)
	}
}

func TestLatestFeedQuote_UnknownCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(dailyXML))
	}))
	defer server.Close()

	feed := NewLatestFeed(server.URL, nil)
	if _, err := feed.Quote(context.Background(), "XXX", "2024-03-15"); err == nil {
		t.Fatal("expected error for unknown currency")
	}
}
