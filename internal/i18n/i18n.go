// Package i18n holds the storefront's display strings for each supported
// language and formats amounts the way each language writes them.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/pricing"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"
)

// BaseLanguage must define every key; other languages fall back to it
const BaseLanguage = appstate.LanguageEnglish

var ErrInvalidCatalog = errors.New("invalid message catalog")

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type localeFile struct {
	Language string            `yaml:"language"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle is a loaded set of message catalogs
type Bundle struct {
	builder  *catalog.Builder
	messages map[appstate.Language]map[string]string
}

var defaultBundle = mustLoad(embeddedLocales)

// Default returns the catalogs compiled into the binary
func Default() *Bundle {
	return defaultBundle
}

// T translates key into lang through the default bundle
func T(lang appstate.Language, key string, args ...any) string {
	return defaultBundle.T(lang, key, args...)
}

// Load reads locales/<language>.yaml files from fsys.
func Load(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no locale files", ErrInvalidCatalog)
	}
	slices.Sort(paths)

	b := &Bundle{
		builder:  catalog.NewBuilder(catalog.Fallback(BaseLanguage.Tag())),
		messages: make(map[appstate.Language]map[string]string),
	}
	for _, p := range paths {
		if err := b.addFile(fsys, p); err != nil {
			return nil, err
		}
	}

	base, ok := b.messages[BaseLanguage]
	if !ok {
		return nil, fmt.Errorf("%w: base language %s missing", ErrInvalidCatalog, BaseLanguage)
	}
	for lang, messages := range b.messages {
		for key := range messages {
			if _, ok := base[key]; !ok {
				return nil, fmt.Errorf("%w: %s defines %q which %s does not", ErrInvalidCatalog, lang, key, BaseLanguage)
			}
		}
	}
	return b, nil
}

func (b *Bundle) addFile(fsys fs.FS, p string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}
	var file localeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidCatalog, p, err)
	}

	lang, err := appstate.ParseLanguage(file.Language)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, p, err)
	}
	if name := strings.TrimSuffix(path.Base(p), path.Ext(p)); name != string(lang) {
		return fmt.Errorf("%w: %s declares language %q", ErrInvalidCatalog, p, file.Language)
	}
	if _, dup := b.messages[lang]; dup {
		return fmt.Errorf("%w: language %s defined twice", ErrInvalidCatalog, lang)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("%w: %s has no messages", ErrInvalidCatalog, p)
	}

	messages := make(map[string]string, len(file.Messages))
	for key, msg := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("%w: %s has a blank key", ErrInvalidCatalog, p)
		}
		if err := b.builder.SetString(lang.Tag(), key, msg); err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalidCatalog, p, key, err)
		}
		messages[key] = msg
	}
	b.messages[lang] = messages
	return nil
}

// Printer returns a printer that translates catalog keys into lang.
// Unsupported languages get the base language.
func (b *Bundle) Printer(lang appstate.Language) *message.Printer {
	if !lang.Valid() {
		lang = BaseLanguage
	}
	return message.NewPrinter(lang.Tag(), message.Catalog(b.builder))
}

// T translates key into lang, filling any verbs in the message from args.
// Unknown keys come back as the key itself.
func (b *Bundle) T(lang appstate.Language, key string, args ...any) string {
	return b.Printer(lang).Sprintf(key, args...)
}

// Missing lists base-language keys that lang does not translate
func (b *Bundle) Missing(lang appstate.Language) []string {
	var out []string
	for key := range b.messages[BaseLanguage] {
		if _, ok := b.messages[lang][key]; !ok {
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return out
}

// Money renders an amount with lang's grouping and decimal marks, e.g.
// "R899.99" in English and "R899,99" in Afrikaans.
func (b *Bundle) Money(lang appstate.Language, m pricing.Money) string {
	cents := m.Cents()
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := number.Decimal(float64(cents)/100, number.MinFractionDigits(2), number.MaxFractionDigits(2))
	return sign + pricing.CurrencySymbol + b.Printer(lang).Sprint(amount)
}

func mustLoad(fsys fs.FS) *Bundle {
	b, err := Load(fsys)
	if err != nil {
		panic(err)
	}
	return b
}
