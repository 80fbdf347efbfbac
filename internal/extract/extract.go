package extract

import (
	"net/url"
	"strings"
)

// Inbound carries the already-parsed views of one request body. The
// transport adapter fills Structured only when the body decoded as a JSON
// object and Form only when the body was form-encoded; a malformed payload
// simply leaves the corresponding view nil, so parse failures degrade to
// "absent" here instead of aborting extraction.
type Inbound struct {
	Structured map[string]any
	Form       url.Values
	Raw        []byte
}

// Extract returns the single best-candidate alert string for the request.
// Precedence, first non-empty wins: structured "message", structured
// "text", form "message", then the whitespace-trimmed raw body. Pure and
// idempotent; the producer never has to announce which encoding it used.
func Extract(in Inbound) string {
	for _, key := range []string{"message", "text"} {
		if v := structuredString(in.Structured, key); v != "" {
			return v
		}
	}

	if in.Form != nil {
		if v := strings.TrimSpace(in.Form.Get("message")); v != "" {
			return v
		}
	}

	return strings.TrimSpace(string(in.Raw))
}

func structuredString(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	v, ok := fields[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
