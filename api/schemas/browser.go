// api/schemas/browser.go
package schemas

// PageSnapshot is the agent-facing view of the live page after an action.
// HTML is truncated by the browser layer; the full document never crosses
// this boundary.
type PageSnapshot struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}
