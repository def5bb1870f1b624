package api

import (
	"errors"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/blumenshine/rankwatch/pkg/keywords"
)

var errMalformed = errors.New("malformed payload")

// collection returns the array carried by body, either bare or wrapped in a
// {"data": [...]} envelope.
func collection(body string) (gjson.Result, error) {
	if !gjson.Valid(body) {
		return gjson.Result{}, errors.New("body is not valid JSON")
	}
	root := gjson.Parse(body)
	if root.IsArray() {
		return root, nil
	}
	if data := root.Get("data"); data.IsArray() {
		return data, nil
	}
	return gjson.Result{}, errMalformed
}

// object returns the record carried by body, bare or under "data".
func object(body string) gjson.Result {
	root := gjson.Parse(body)
	if data := root.Get("data"); data.IsObject() {
		return data
	}
	return root
}

func number(r gjson.Result) *float64 {
	if r.Type != gjson.Number {
		return nil
	}
	v := r.Float()
	return &v
}

func text(r gjson.Result) string {
	switch r.Type {
	case gjson.String, gjson.Number:
		return r.String()
	}
	return ""
}

// parseRecord reads a keyword record without ever failing; fields of the
// wrong type are left empty.
func parseRecord(r gjson.Result) keywords.Record {
	rec := keywords.Record{
		KeywordID:       text(r.Get("keyword_id")),
		Keyword:         text(r.Get("keyword")),
		TargetDomain:    text(r.Get("target_domain")),
		RankingPosition: number(r.Get("ranking_position")),
		RankingURL:      text(r.Get("ranking_url")),
		Delta7:          number(r.Get("delta_7")),
		Delta30:         number(r.Get("delta_30")),
	}
	if rec.KeywordID == "" {
		rec.KeywordID = text(r.Get("id"))
	}
	ts := r.Get("timestamp")
	switch ts.Type {
	case gjson.Number:
		rec.TimestampMs = number(ts)
	case gjson.String:
		rec.Timestamp = ts.Str
	}
	return rec
}

// parseRecords reads every object element that carries an identifier.
func parseRecords(arr gjson.Result) []keywords.Record {
	out := []keywords.Record{}
	arr.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		rec := parseRecord(value)
		if rec.KeywordID == "" {
			return true
		}
		out = append(out, rec)
		return true
	})
	return out
}

// parseHistory reads {timestamp, position} points, dropping points without a
// usable timestamp, and orders them by time.
func parseHistory(arr gjson.Result) []keywords.HistoricalPoint {
	out := []keywords.HistoricalPoint{}
	arr.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		rec := parseRecord(value)
		pos := value.Get("position")
		if !pos.Exists() {
			pos = value.Get("ranking_position")
		}
		rec.RankingPosition = number(pos)

		row := keywords.Normalize(rec)
		if row.Timestamp == nil {
			return true
		}
		out = append(out, keywords.HistoricalPoint{Timestamp: *row.Timestamp, Position: row.Position})
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// errorMessage extracts a human readable message from a failure body.
func errorMessage(body string) string {
	if !gjson.Valid(body) {
		return ""
	}
	for _, path := range []string{"error.message", "error", "detail", "message"} {
		r := gjson.Get(body, path)
		if !r.Exists() {
			continue
		}
		if r.Type == gjson.String {
			return r.Str
		}
		if r.Type != gjson.JSON {
			return r.String()
		}
	}
	return ""
}
