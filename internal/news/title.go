package news

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanTitle strips markup and entities from a search-result title and
// collapses whitespace.
func CleanTitle(raw string) string {
	text := raw
	if strings.ContainsAny(raw, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}
