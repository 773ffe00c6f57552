// internal/crawler/crawler.go

// Package crawler performs a small same-origin breadth-first crawl of the
// target domain. The output feeds the knowledge store; it is a form-and-link
// survey, not a full site mirror.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/config"
)

// Crawler fetches pages level by level, same-origin only, bounded by depth
// and page count. Individual page failures are recorded, not fatal.
type Crawler struct {
	cfg     config.CrawlerConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewCrawler(cfg config.CrawlerConfig, logger *zap.Logger) *Crawler {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Crawler{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.PageTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger.Named("crawler"),
	}
}

// Crawl walks the site breadth-first from the root URL and returns the pages
// keyed by URL. Only the root URL being unparseable is an error; everything
// else degrades to per-page error records.
func (c *Crawler) Crawl(ctx context.Context, root string) (map[string]*schemas.Page, error) {
	rootURL, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("invalid crawl root %q: %w", root, err)
	}
	if rootURL.Host == "" {
		return nil, fmt.Errorf("crawl root %q has no host", root)
	}

	pages := make(map[string]*schemas.Page)
	visited := map[string]bool{normalizeURL(rootURL): true}
	frontier := []string{normalizeURL(rootURL)}

	var mu sync.Mutex

	for depth := 0; depth < c.cfg.MaxDepth && len(frontier) > 0; depth++ {
		c.logger.Info("Crawling level",
			zap.Int("depth", depth),
			zap.Int("urls", len(frontier)))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.Concurrency)

		var next []string
		for _, pageURL := range frontier {
			mu.Lock()
			full := len(pages) >= c.cfg.MaxPages
			mu.Unlock()
			if full {
				break
			}

			pageURL := pageURL
			g.Go(func() error {
				if err := c.limiter.Wait(gctx); err != nil {
					return err
				}
				page := c.fetch(gctx, rootURL, pageURL)

				mu.Lock()
				defer mu.Unlock()
				if len(pages) >= c.cfg.MaxPages {
					return nil
				}
				pages[pageURL] = page
				for _, link := range page.Links {
					if !visited[link] {
						visited[link] = true
						next = append(next, link)
					}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return pages, err
		}
		frontier = next
	}

	c.logger.Info("Crawl complete", zap.Int("pages", len(pages)))
	return pages, nil
}

// fetch downloads and parses one page. Failures come back as an error-status
// page record.
func (c *Crawler) fetch(ctx context.Context, rootURL *url.URL, pageURL string) *schemas.Page {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return errorPage(pageURL, err.Error())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return errorPage(pageURL, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorPage(pageURL, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.cfg.HTMLLimit)+1))
	if err != nil {
		return errorPage(pageURL, err.Error())
	}
	if len(body) > c.cfg.HTMLLimit {
		body = body[:c.cfg.HTMLLimit]
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return errorPage(pageURL, err.Error())
	}
	return parsePage(rootURL, base, body)
}

// parsePage extracts the structured survey of a page: title, forms with
// their fields, input names, headings, and same-origin links.
func parsePage(rootURL, base *url.URL, body []byte) *schemas.Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return errorPage(base.String(), err.Error())
	}

	page := &schemas.Page{
		URL:    base.String(),
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
		HTML:   string(body),
		Status: schemas.PageStatusSuccess,
	}

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		f := schemas.Form{
			ID:     form.AttrOr("id", ""),
			Action: form.AttrOr("action", ""),
			Method: strings.ToLower(form.AttrOr("method", "get")),
		}
		form.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
			name := field.AttrOr("name", "")
			if name == "" {
				return
			}
			_, required := field.Attr("required")
			f.Fields = append(f.Fields, schemas.FormField{
				Name:     name,
				Type:     field.AttrOr("type", "text"),
				Required: required,
			})
		})
		page.Forms = append(page.Forms, f)
	})

	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		if name := input.AttrOr("name", ""); name != "" {
			page.Inputs = append(page.Inputs, name)
		}
	})

	doc.Find("h1, h2, h3").Each(func(_ int, h *goquery.Selection) {
		if text := strings.TrimSpace(h.Text()); text != "" {
			page.Headings = append(page.Headings, text)
		}
	})

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		link, err := base.Parse(href)
		if err != nil {
			return
		}
		if link.Scheme != "http" && link.Scheme != "https" {
			return
		}
		if link.Host != rootURL.Host {
			return
		}
		normalized := normalizeURL(link)
		if !seen[normalized] {
			seen[normalized] = true
			page.Links = append(page.Links, normalized)
		}
	})

	return page
}

func errorPage(pageURL, msg string) *schemas.Page {
	return &schemas.Page{URL: pageURL, Status: schemas.PageStatusError, Error: msg}
}

// normalizeURL drops fragments so anchors on the same document do not count
// as distinct pages.
func normalizeURL(u *url.URL) string {
	clone := *u
	clone.Fragment = ""
	return clone.String()
}
