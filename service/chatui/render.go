package chatui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/brojonat/solkit/service/metrics"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer holds the parsed message list templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse chat templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes the message list template for v.
func (r *Renderer) Render(v View) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "messages.html", v); err != nil {
		return nil, fmt.Errorf("failed to render message list: %w", err)
	}
	return buf.Bytes(), nil
}

// DefaultCacheSize bounds the number of rendered lists a MessageList keeps.
const DefaultCacheSize = 1024

// cacheKey separates output per chat and per display flags, since both flags
// change the markup but not the skip decision.
type cacheKey struct {
	chatID   string
	readonly bool
	artifact bool
}

func keyOf(p Props) cacheKey {
	return cacheKey{chatID: p.ChatID, readonly: p.IsReadonly, artifact: p.IsArtifactVisible}
}

type cached struct {
	props Props
	html  []byte
}

// MessageList renders chats and reuses the previous output for a chat when
// its props would not change what is shown. The least recently used entries
// are evicted once the cache is full.
type MessageList struct {
	renderer *Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu    sync.Mutex
	cache *lru.Cache[cacheKey, cached]
}

// NewMessageList creates a message list holding at most size entries.
// A size of zero or less uses DefaultCacheSize. m may be nil.
func NewMessageList(renderer *Renderer, size int, m *metrics.Metrics, logger *slog.Logger) (*MessageList, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, cached](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create render cache: %w", err)
	}
	return &MessageList{
		renderer: renderer,
		metrics:  m,
		logger:   logger,
		cache:    cache,
	}, nil
}

// Render returns the HTML for p and whether it was freshly rendered.
func (l *MessageList) Render(p Props) ([]byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := keyOf(p)
	if prev, ok := l.cache.Get(key); ok && ShouldSkipRender(prev.props, p) {
		l.record("skipped")
		return prev.html, false, nil
	}

	html, err := l.renderer.Render(BuildView(p))
	if err != nil {
		return nil, false, err
	}
	// Messages are copied so later mutation by the caller cannot alter the
	// comparison baseline.
	stored := p
	stored.Messages = append([]Message(nil), p.Messages...)
	if evicted := l.cache.Add(key, cached{props: stored, html: html}); evicted {
		l.logger.Debug("evicted cached message list", "cache_size", l.cache.Len())
	}
	l.record("rendered")
	l.logger.Debug("rendered message list",
		"chat_id", p.ChatID,
		"status", p.Status,
		"messages", len(p.Messages),
	)
	return html, true, nil
}

// Len returns the number of cached lists.
func (l *MessageList) Len() int {
	return l.cache.Len()
}

// Forget drops the cached output for a chat under every display mode.
func (l *MessageList) Forget(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, readonly := range []bool{false, true} {
		for _, artifact := range []bool{false, true} {
			l.cache.Remove(cacheKey{chatID: chatID, readonly: readonly, artifact: artifact})
		}
	}
}

func (l *MessageList) record(result string) {
	if l.metrics != nil {
		l.metrics.RecordChatRender(result)
	}
}
