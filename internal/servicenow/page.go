// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package servicenow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is a single record as returned by the Table API. With reference links
// excluded the values are almost always strings, but the Table API makes no
// hard promise, so values stay untyped until the sink coerces them.
type Row map[string]any

// Page is one bounded batch of records from a single Table API request.
type Page struct {
	Rows []Row

	// Columns holds the first record's field names in JSON document order.
	// Go maps do not preserve key order, so the order is captured from the
	// raw bytes before the records are decoded.
	Columns []string

	// TotalCount is the X-Total-Count response header, or -1 when the
	// header was absent or unparsable.
	TotalCount int
}

// Count returns the number of records in the page.
func (p *Page) Count() int {
	return len(p.Rows)
}

// parsePage decodes a Table API response body into a Page.
func parsePage(body []byte) (*Page, error) {
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse response body: %w", err)
	}
	if len(envelope.Result) == 0 || bytes.Equal(envelope.Result, []byte("null")) {
		return nil, ErrBadResult
	}

	var records []json.RawMessage
	if err := json.Unmarshal(envelope.Result, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResult, err)
	}

	page := &Page{TotalCount: -1}
	for i, raw := range records {
		row, err := decodeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		page.Rows = append(page.Rows, row)
	}

	if len(records) > 0 {
		cols, err := objectKeys(records[0])
		if err != nil {
			return nil, fmt.Errorf("read field names: %w", err)
		}
		page.Columns = cols
	}

	return page, nil
}

// decodeRow decodes one record. Numbers are kept as json.Number so the sink
// can write them out exactly as they arrived.
func decodeRow(raw json.RawMessage) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var row Row
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	return row, nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("record is not a JSON object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in record", tok)
		}
		keys = append(keys, key)

		// Consume the value belonging to the key.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}

	return keys, nil
}
