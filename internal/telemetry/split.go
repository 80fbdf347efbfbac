package telemetry

import (
	"encoding/json"
	"strings"
)

// Marker is the literal token producers use to embed a machine-readable
// payload inside alert text, either inline after the human-readable part
// of a line or on a dedicated line.
const Marker = "LOG:"

// Fragment is the parsed telemetry payload plus a verbatim copy of the
// bytes it was decoded from.
type Fragment struct {
	Fields map[string]any
	Raw    json.RawMessage
}

// Split separates the human-readable portion of an alert from its embedded
// telemetry. clean has every marker and everything after it on its line
// removed; a line the marker started is dropped entirely, and trailing
// blank lines are trimmed. The fragment is decoded from the substring
// after the first marker occurrence; decode failure yields ok=false and
// never affects clean.
func Split(alert string) (clean string, frag Fragment, ok bool) {
	clean = stripMarkers(alert)

	if idx := strings.Index(alert, Marker); idx >= 0 {
		frag, ok = parseFragment(alert[idx+len(Marker):])
	}
	return clean, frag, ok
}

func stripMarkers(alert string) string {
	lines := strings.Split(alert, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		idx := strings.Index(line, Marker)
		if idx < 0 {
			kept = append(kept, line)
			continue
		}
		prefix := strings.TrimSpace(line[:idx])
		if prefix == "" {
			continue
		}
		kept = append(kept, prefix)
	}

	out := strings.Join(kept, "\n")
	return strings.TrimRight(out, " \t\r\n")
}

func parseFragment(s string) (Fragment, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return Fragment{}, false
	}

	raw := strings.TrimSpace(s[:dec.InputOffset()])
	return Fragment{Fields: fields, Raw: json.RawMessage(raw)}, true
}
