package scanner

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var skippedSchemes = map[string]struct{}{
	"mailto":     {},
	"tel":        {},
	"javascript": {},
	"data":       {},
	"sms":        {},
	"ftp":        {},
}

var assetExtensions = map[string]struct{}{
	".css": {}, ".js": {}, ".mjs": {}, ".map": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".webp": {}, ".avif": {}, ".ico": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
	".mp4": {}, ".webm": {}, ".mp3": {}, ".wav": {}, ".ogg": {},
	".pdf": {}, ".zip": {}, ".gz": {}, ".tar": {}, ".dmg": {}, ".exe": {},
	".xml": {}, ".json": {}, ".txt": {}, ".csv": {},
}

// ExtractLinks returns the absolute URLs of the same-origin <a href> links in
// body, in document order and without duplicates. pageURL resolves relative
// references unless the document declares a <base href>.
func ExtractLinks(site *url.URL, pageURL string, body []byte) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if declared, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = declared
		}
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		link, ok := internalLink(site, base, href)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links, nil
}

func internalLink(site, base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if _, skip := skippedSchemes[strings.ToLower(ref.Scheme)]; skip {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(abs.Host, site.Host) {
		return "", false
	}
	if _, asset := assetExtensions[strings.ToLower(path.Ext(abs.Path))]; asset {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
