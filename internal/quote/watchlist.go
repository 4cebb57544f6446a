package quote

import "strings"

var (
	entrySeparators = strings.NewReplacer("；", ";", "\r\n", ";", "\n", ";")
	fieldSeparators = strings.NewReplacer("，", ",")
)

// ParseWatchEntry parses a single identifier[,costBasis[,positionSize]] line.
// Extra fields are ignored. It returns false when the identifier is empty.
func ParseWatchEntry(line string) (WatchEntry, bool) {
	parts := strings.Split(fieldSeparators.Replace(line), ",")
	id := strings.TrimSpace(parts[0])
	if id == "" {
		return WatchEntry{}, false
	}
	e := WatchEntry{Identifier: id}
	if len(parts) > 1 {
		e.CostBasis = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		e.PositionSize = strings.TrimSpace(parts[2])
	}
	return e, true
}

// ParseWatchList parses a whole watch-list. Entries are separated by ';'
// (full-width too) or newlines. The first occurrence of an identifier wins.
func ParseWatchList(text string) []WatchEntry {
	raw := strings.Split(entrySeparators.Replace(text), ";")
	out := make([]WatchEntry, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, line := range raw {
		e, ok := ParseWatchEntry(line)
		if !ok {
			continue
		}
		if _, dup := seen[e.Identifier]; dup {
			continue
		}
		seen[e.Identifier] = struct{}{}
		out = append(out, e)
	}
	return out
}
