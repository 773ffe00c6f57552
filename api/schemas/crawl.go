// api/schemas/crawl.go
package schemas

// PageStatus reports whether a crawled page was fetched and parsed.
type PageStatus string

const (
	PageStatusSuccess PageStatus = "success"
	PageStatusError   PageStatus = "error"
)

// FormField describes a single named input discovered inside a form.
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Form is one HTML form discovered on a crawled page. Forms without named
// fields are not reported.
type Form struct {
	ID     string      `json:"id"`
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []FormField `json:"fields"`
}

// Page is the structured result of crawling a single URL. It feeds the
// knowledge base that seeds the agent's planning context.
type Page struct {
	URL      string     `json:"url"`
	Title    string     `json:"title"`
	HTML     string     `json:"html"` // truncated by the crawler
	Forms    []Form     `json:"forms"`
	Inputs   []string   `json:"inputs"`
	Headings []string   `json:"headings"`
	Links    []string   `json:"links"`
	Status   PageStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
}
