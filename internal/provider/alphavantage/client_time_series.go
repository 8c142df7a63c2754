package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"strings"

	"stocksrealtime/internal/provider"
)

// DefaultInterval is the bar size requested from TIME_SERIES_INTRADAY.
const DefaultInterval = "15min"

// errorKeys are the top-level keys Alpha Vantage uses for provider-side
// problems (bad symbol, throttling, premium endpoints).
var errorKeys = []string{"Error Message", "Information"}

// MetaData is the "Meta Data" object of a time-series document.
type MetaData struct {
	Information   string `json:"1. Information"`
	Symbol        string `json:"2. Symbol"`
	LastRefreshed string `json:"3. Last Refreshed"`
	Interval      string `json:"4. Interval"`
	OutputSize    string `json:"5. Output Size"`
	TimeZone      string `json:"6. Time Zone"`
}

// OHLC is one bar. Values stay as the provider's strings.
type OHLC struct {
	Open   string
	High   string
	Low    string
	Close  string
	Volume string
}

// UnmarshalJSON accepts both numbered Alpha Vantage keys ("2. high") and
// plain keys ("high").
func (o *OHLC) UnmarshalJSON(b []byte) error {
	var raw struct {
		Open        flexString `json:"1. open"`
		High        flexString `json:"2. high"`
		Low         flexString `json:"3. low"`
		Close       flexString `json:"4. close"`
		Volume      flexString `json:"5. volume"`
		PlainOpen   flexString `json:"open"`
		PlainHigh   flexString `json:"high"`
		PlainLow    flexString `json:"low"`
		PlainClose  flexString `json:"close"`
		PlainVolume flexString `json:"volume"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*o = OHLC{
		Open:   firstNonEmpty(raw.Open, raw.PlainOpen),
		High:   firstNonEmpty(raw.High, raw.PlainHigh),
		Low:    firstNonEmpty(raw.Low, raw.PlainLow),
		Close:  firstNonEmpty(raw.Close, raw.PlainClose),
		Volume: firstNonEmpty(raw.Volume, raw.PlainVolume),
	}
	return nil
}

// Entry is one timestamped bar; Values is nil when the provider sent null.
type Entry struct {
	Timestamp string
	Values    *OHLC
}

// TimeSeries is a decoded intraday document. Entries keep the order the
// provider sent them in; nothing is re-sorted by timestamp.
type TimeSeries struct {
	MetaData *MetaData
	Entries  []Entry
}

// GetIntradayTimeSeries fetches TIME_SERIES_INTRADAY for symbol.
// Every failure is a *provider.Error carrying its classification.
func (c *Client) GetIntradayTimeSeries(ctx context.Context, symbol, interval string, opts ...ClientOption) (*TimeSeries, error) {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      maps.Clone(c.query),
	}
	for _, opt := range opts {
		opt(override)
	}
	if interval == "" {
		interval = DefaultInterval
	}

	query := maps.Clone(override.query)
	query.Set("function", "TIME_SERIES_INTRADAY")
	query.Set("symbol", symbol)
	query.Set("interval", interval)

	url := fmt.Sprintf("%s?%s", override.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &provider.Error{Kind: provider.KindTransport, Ticker: symbol, Message: "creating request", Err: err}
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, symbol, "performing request", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, &provider.Error{
			Kind:       provider.KindStatus,
			Ticker:     symbol,
			StatusCode: res.StatusCode,
			Message:    strings.TrimSpace(string(b)),
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, transportError(ctx, symbol, "reading body", err)
	}

	if msg, ok := probeError(body); ok {
		return nil, &provider.Error{Kind: provider.KindUpstream, Ticker: symbol, Message: msg}
	}

	ts, err := decodeTimeSeries(body)
	if err != nil {
		return nil, &provider.Error{Kind: provider.KindDecode, Ticker: symbol, Err: err}
	}

	switch {
	case ts == nil:
		return nil, &provider.Error{Kind: provider.KindShape, Ticker: symbol, Message: "document is null"}
	case ts.MetaData == nil:
		return nil, &provider.Error{Kind: provider.KindShape, Ticker: symbol, Message: "missing meta data"}
	case len(ts.Entries) == 0:
		return nil, &provider.Error{Kind: provider.KindShape, Ticker: symbol, Message: "empty time series"}
	}
	return ts, nil
}

// transportError classifies a failed round trip. The caller's context wins
// over whatever the transport reported.
func transportError(ctx context.Context, symbol, msg string, err error) error {
	kind := provider.KindTransport
	var ne net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		kind = provider.KindCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		kind = provider.KindTimeout
	}
	return &provider.Error{Kind: kind, Ticker: symbol, Message: msg, Err: err}
}

// probeError reports the provider message when body is a flat string map
// carrying one of errorKeys. Bodies of any other shape are not errors here.
func probeError(body []byte) (string, bool) {
	var m map[string]string
	if err := json.Unmarshal(body, &m); err != nil || m == nil {
		return "", false
	}
	for _, k := range errorKeys {
		if msg, ok := m[k]; ok {
			return msg, true
		}
	}
	return "", false
}

// decodeTimeSeries walks the document token by token so the time-series
// entries keep their order. A JSON null document yields (nil, nil).
func decodeTimeSeries(body []byte) (*TimeSeries, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	ts := &TimeSeries{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading key: %w", err)
		}
		key, _ := keyTok.(string)
		switch {
		case key == "Meta Data":
			var md *MetaData
			if err := dec.Decode(&md); err != nil {
				return nil, fmt.Errorf("decoding meta data: %w", err)
			}
			ts.MetaData = md
		case strings.HasPrefix(key, "Time Series"):
			entries, err := decodeEntries(dec)
			if err != nil {
				return nil, fmt.Errorf("decoding %s: %w", key, err)
			}
			ts.Entries = entries
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", key, err)
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("closing document: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after document")
	}
	return ts, nil
}

func decodeEntries(dec *json.Decoder) ([]Entry, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		ts, _ := keyTok.(string)
		var v *OHLC
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("entry %s: %w", ts, err)
		}
		entries = append(entries, Entry{Timestamp: ts, Values: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

// flexString takes a JSON string or a bare number and keeps its text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n)
	return nil
}

func firstNonEmpty(vals ...flexString) string {
	for _, v := range vals {
		if v != "" {
			return string(v)
		}
	}
	return ""
}
