// Package sitemeta extracts display metadata from a mirrored site on
// disk. Everything here is best-effort: a mirror with no parseable index
// page simply yields empty values.
package sitemeta

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// indexCandidates are the page names wget commonly produces for the site
// root, in preference order.
var indexCandidates = []string{"index.html", "index.htm"}

// Title returns the <title> of the mirrored site's root index page, or
// "" when no index page exists or it cannot be parsed.
func Title(siteDir string) string {
	for _, name := range indexCandidates {
		path := filepath.Join(siteDir, name)
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(f)
		f.Close()
		if err != nil {
			continue
		}
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			return title
		}
	}
	return ""
}
