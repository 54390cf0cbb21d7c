package lang

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xela07ax/nosigns-guard/internal/domain"
)

const DefaultLocale = "en"

// Catalog — переводы сообщений игроку: locale -> key -> text.
// Поиск: точная локаль, затем язык без региона ("ru-RU" -> "ru"), затем en, затем сам ключ.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
}

func NewCatalog() *Catalog {
	c := &Catalog{messages: make(map[string]map[string]string)}
	c.RegisterMessages(DefaultLocale, map[string]string{
		domain.MessageCannotPlaceSign: "You cannot place signs on this entity.",
	})
	return c
}

// RegisterMessages добавляет или перекрывает сообщения локали.
func (c *Catalog) RegisterMessages(locale string, msgs map[string]string) {
	locale = normalizeLocale(locale)
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.messages[locale]
	if !ok {
		m = make(map[string]string, len(msgs))
		c.messages[locale] = m
	}
	for k, v := range msgs {
		m[k] = v
	}
}

// LoadDir подгружает файлы переводов из dir и возвращает загруженные локали.
// Поддерживаются две раскладки: <dir>/<locale>.json и <dir>/<locale>/<plugin>.json (как у хоста).
// Пустой dir или отсутствующий каталог: ничего не грузим, это не ошибка.
func (c *Catalog) LoadDir(dir, plugin string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lang: read dir: %w", err)
	}

	var locales []string
	for _, e := range entries {
		var locale, path string
		switch {
		case e.IsDir():
			locale, path = e.Name(), filepath.Join(dir, e.Name(), plugin+".json")
		case filepath.Ext(e.Name()) == ".json":
			locale, path = strings.TrimSuffix(e.Name(), ".json"), filepath.Join(dir, e.Name())
		default:
			continue
		}

		msgs, err := readMessages(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue // каталог локали без файла нашего плагина
		}
		if err != nil {
			return nil, err
		}
		c.RegisterMessages(locale, msgs)
		locales = append(locales, normalizeLocale(locale))
	}
	sort.Strings(locales)
	return locales, nil
}

func readMessages(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var msgs map[string]string
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("lang: %s: %w", path, err)
	}
	return msgs, nil
}

// Message возвращает текст сообщения; args подставляются через fmt, как string.Format у хоста.
func (c *Catalog) Message(key, locale string, args ...any) string {
	text := c.lookup(key, locale)
	if len(args) > 0 {
		text = fmt.Sprintf(text, args...)
	}
	return text
}

func (c *Catalog) lookup(key, locale string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, l := range candidates(normalizeLocale(locale)) {
		if text, ok := c.messages[l][key]; ok {
			return text
		}
	}
	return key
}

func candidates(locale string) []string {
	out := make([]string, 0, 3)
	if locale != "" {
		out = append(out, locale)
		if i := strings.IndexByte(locale, '-'); i > 0 {
			out = append(out, locale[:i])
		}
	}
	return append(out, DefaultLocale)
}

func normalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "_", "-")
}
