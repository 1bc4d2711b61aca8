package tui

// recall keeps submitted commands for Up/Down navigation. The line being
// typed when navigation starts is kept as a draft and comes back after the
// newest entry.
type recall struct {
	entries []string
	limit   int
	pos     int // len(entries) when not navigating
	draft   string
}

func newRecall(limit int) *recall {
	return &recall{limit: limit}
}

// Add stores a submitted command and ends navigation. A repeat of the
// newest entry is not stored twice.
func (r *recall) Add(cmd string) {
	if n := len(r.entries); n == 0 || r.entries[n-1] != cmd {
		r.entries = append(r.entries, cmd)
		if len(r.entries) > r.limit {
			r.entries = r.entries[len(r.entries)-r.limit:]
		}
	}
	r.pos = len(r.entries)
	r.draft = ""
}

// Older steps back one entry. current is the text in the input line.
func (r *recall) Older(current string) (string, bool) {
	if r.pos == 0 {
		return "", false
	}
	if r.pos == len(r.entries) {
		r.draft = current
	}
	r.pos--
	return r.entries[r.pos], true
}

// Newer steps forward one entry, ending on the draft.
func (r *recall) Newer() (string, bool) {
	if r.pos >= len(r.entries) {
		return "", false
	}
	r.pos++
	if r.pos == len(r.entries) {
		return r.draft, true
	}
	return r.entries[r.pos], true
}
