package fetch

import "context"

// Page is one decoded API result page. Keys follow the provider's wire
// field names (InstanceIds, NextToken, IsTruncated and so on).
type Page map[string]any

// Client invokes named provider operations. Implementations map the
// operation string onto a concrete SDK call and decode the response into
// a Page.
type Client interface {
	// Service returns the provider service this client talks to.
	Service() string
	// Invoke runs one operation with the given parameters.
	Invoke(ctx context.Context, operation string, params map[string]any) (Page, error)
}

// Marker extracts a continuation token from a page. Empty string means
// the key is absent or not a usable token.
func (p Page) Marker(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Truncated reports the legacy IsTruncated pagination flag.
func (p Page) Truncated() bool {
	v, ok := p["IsTruncated"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Strings extracts a list-of-strings field from the page. Non-string
// elements are skipped.
func (p Page) Strings(key string) []string {
	raw, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// List extracts a list-of-records field from the page.
func (p Page) List(key string) []map[string]any {
	raw, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
