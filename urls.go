package docconv

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// maxURLNameLength bounds the file name derived from a URL.
const maxURLNameLength = 50

// ParseURLList splits free text into URLs, one per line. Blank lines and a
// bare scheme are dropped; a line without a scheme gets https:// prepended.
func ParseURLList(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		if line == "" || line == "http://" || line == "https://" {
			return "", false
		}
		if !fileutil.IsURL(line) {
			line = "https://" + line
		}
		return line, true
	})
}

// URLOutputName derives the output stem for the URL at index: host with dots
// and path with slashes replaced by underscores, truncated. Falls back to
// webpage_<index+1> when nothing usable remains.
func URLOutputName(index int, rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = strings.ReplaceAll(u.Host, ".", "_") + strings.ReplaceAll(u.Path, "/", "_")
	}
	name = sanitizeName(name)
	if len(name) > maxURLNameLength {
		name = name[:maxURLNameLength]
	}
	if name == "" {
		name = fmt.Sprintf("webpage_%d", index+1)
	}
	return name
}

// URLNamer names webpage outputs <url-name>.pdf.
func URLNamer() NameFunc {
	return func(index int, input string) string {
		return URLOutputName(index, input) + ".pdf"
	}
}

// sanitizeName replaces characters that are invalid in file names on any
// supported platform.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '*', '?', '"', '<', '>', '|', '\\', '/':
			return '_'
		}
		if r < 0x20 || r > 0x7e {
			return '_'
		}
		return r
	}, s)
}
