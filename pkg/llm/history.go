package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// History appends prompt/response exchanges to a plain-text log file.
// A nil *History or an empty path disables logging.
type History struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewHistory returns a history writer for path.
func NewHistory(path string) *History {
	return &History{path: path, now: time.Now}
}

// Log records one exchange. Write errors are ignored.
func (h *History) Log(provider, name, prompt, response string) {
	if h == nil || h.path == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return
	}

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	timestamp := h.now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf("[%s] %s PROMPT: %s\nPROMPT_TEXT:\n%s\n\nRESPONSE:\n%s\n%s\n",
		timestamp, provider, name, Truncate(prompt, 2000), WordWrap(response, 80), strings.Repeat("-", 80))

	_, _ = f.WriteString(entry)
}
