package scraper

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var jsonModelRe = regexp.MustCompile(`window\.jsonModel\s*=\s*\{`)

// extractJSONModel pulls the listing data out of a results page.
//
// Strategy 1 scans the raw page text for the `window.jsonModel` assignment
// and cuts out the balanced JSON object. Strategy 2 walks script tags with
// goquery in case the assignment is split across inline scripts. Strategy 3
// handles pages migrated to the source's Next.js stack, where the data lives
// in the `__NEXT_DATA__` script instead.
func extractJSONModel(html string) *jsonModel {
	if strings.Contains(html, "We couldn’t find the place you were looking for") ||
		strings.Contains(html, "We couldn't find the place you were looking for") {
		slog.Warn("Listing source returned a 'not found' page; location identifier may be stale")
		return nil
	}

	if loc := jsonModelRe.FindStringIndex(html); loc != nil {
		start := loc[1] - 1
		if raw := extractBalancedJSON(html, start); raw != "" {
			var model jsonModel
			if err := json.Unmarshal([]byte(raw), &model); err == nil {
				return &model
			} else {
				slog.Debug("Strategy-1 JSON decode failed", "error", err)
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		slog.Debug("HTML parse error", "error", err)
		return nil
	}

	var model *jsonModel
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		loc := jsonModelRe.FindStringIndex(text)
		if loc == nil {
			return true
		}
		raw := extractBalancedJSON(text, loc[1]-1)
		if raw == "" {
			return true
		}
		var m jsonModel
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			slog.Debug("Strategy-2 JSON decode failed", "error", err)
			return true
		}
		model = &m
		return false
	})
	if model != nil {
		return model
	}

	if model := extractNextData(doc); model != nil {
		return model
	}

	snippet := strings.ReplaceAll(html, "\n", " ")
	if len(snippet) > 300 {
		snippet = snippet[:300]
	}
	slog.Warn("Could not extract listing data from page", "snippet", snippet)
	return nil
}

// extractNextData reads listing data from a Next.js __NEXT_DATA__ payload,
// trying the nesting paths the source has been observed to use
func extractNextData(doc *goquery.Document) *jsonModel {
	text := doc.Find("script#__NEXT_DATA__").Text()
	if text == "" {
		return nil
	}

	var nextData struct {
		Props struct {
			PageProps struct {
				Properties    []rawProperty `json:"properties"`
				SearchResults struct {
					Properties []rawProperty `json:"properties"`
				} `json:"searchResults"`
				Results struct {
					Properties []rawProperty `json:"properties"`
				} `json:"results"`
				Pagination  pagination  `json:"pagination"`
				ResultCount json.Number `json:"resultCount"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(text), &nextData); err != nil {
		slog.Debug("__NEXT_DATA__ extraction failed", "error", err)
		return nil
	}

	pp := nextData.Props.PageProps
	properties := pp.Properties
	if len(properties) == 0 {
		properties = pp.SearchResults.Properties
	}
	if len(properties) == 0 {
		properties = pp.Results.Properties
	}
	if len(properties) == 0 {
		return nil
	}

	slog.Debug("Extracted properties via __NEXT_DATA__", "count", len(properties))
	return &jsonModel{
		Properties:  properties,
		Pagination:  pp.Pagination,
		ResultCount: pp.ResultCount,
	}
}

// extractBalancedJSON returns the balanced JSON object starting at position
// start in text, or "" if the braces never balance
func extractBalancedJSON(text string, start int) string {
	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escapeNext = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
