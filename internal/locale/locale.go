// Package locale validates the configured language variants of a
// multilingual site. Each variant gets its own collation; alternates
// root their output at a locale subdirectory of the target.
package locale

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/uwe-app/app-sub001/internal/config"
)

// Variant is one language variant of the site.
type Variant struct {
	// Name is the configured BCP 47 tag, empty for an unconfigured
	// single-language site.
	Name string
	// Tag is the parsed canonical tag. Undefined when Name is empty.
	Tag language.Tag
	// Primary marks the variant rooted at the target itself.
	Primary bool
}

// Dir returns the target subdirectory for the variant. The primary
// variant writes directly into the target root.
func (v Variant) Dir() string {
	if v.Primary {
		return ""
	}
	return v.Name
}

// Parse validates the locale configuration and returns the variant
// list, primary first. An empty configuration yields a single primary.
func Parse(cfg config.LocaleConfig) ([]Variant, error) {
	if cfg.Primary == "" {
		if len(cfg.Alternates) > 0 {
			return nil, fmt.Errorf("locales: primary is required when alternates are configured")
		}
		return []Variant{{Primary: true}}, nil
	}

	primary, err := language.Parse(cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("locales: invalid primary %q: %w", cfg.Primary, err)
	}

	variants := []Variant{{Name: cfg.Primary, Tag: primary, Primary: true}}
	seen := map[string]bool{cfg.Primary: true}

	for _, name := range cfg.Alternates {
		if seen[name] {
			return nil, fmt.Errorf("locales: duplicate variant %q", name)
		}
		seen[name] = true

		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("locales: invalid alternate %q: %w", name, err)
		}
		variants = append(variants, Variant{Name: name, Tag: tag})
	}
	return variants, nil
}
