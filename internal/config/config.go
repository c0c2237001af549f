// Package config loads and validates the site configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	enginerr "github.com/uwe-app/app-sub001/internal/errors"
)

// Config is the root site configuration for one build.
type Config struct {
	// Source is the root of the source tree.
	Source string `yaml:"source"`
	// Target is the root of the output tree.
	Target string `yaml:"target"`
	// Host is the canonical host name for the published site.
	Host string `yaml:"host,omitempty"`
	// BaseHref is an optional directory prefix stripped from every path.
	BaseHref string `yaml:"base_href,omitempty"`

	Build      BuildConfig         `yaml:"build"`
	Link       LinkConfig          `yaml:"link"`
	Extensions ExtensionConfig     `yaml:"extensions"`
	HTML       HTMLConfig          `yaml:"html"`
	Locales    LocaleConfig        `yaml:"locales"`
	Layouts    LayoutConfig        `yaml:"layouts"`
	Hooks      HooksConfig         `yaml:"hooks"`
	Page       PageConfig          `yaml:"page"`
	Pages      PageTable           `yaml:"pages,omitempty"`
	Menus      map[string][]string `yaml:"menus,omitempty"`
	Redirects  map[string]string   `yaml:"redirects,omitempty"`
	Search     *SearchConfig       `yaml:"search,omitempty"`
	Highlight  *HighlightConfig    `yaml:"highlight,omitempty"`
	Book       *BookConfig         `yaml:"book,omitempty"`
	Events     *EventsConfig       `yaml:"events,omitempty"`
	Metrics    *MetricsConfig      `yaml:"metrics,omitempty"`

	// GitInfo annotates every page with last-commit metadata from the
	// repository containing the source tree.
	GitInfo bool `yaml:"git_info,omitempty"`

	// Exclude lists source-relative roots that are never collated
	// (partials, includes, data sources, themes, locale files, hooks).
	Exclude []string `yaml:"exclude,omitempty"`
}

// BuildConfig controls scheduler behavior.
type BuildConfig struct {
	// Workers bounds the dispatch pool. Zero means available parallelism.
	Workers int `yaml:"workers,omitempty"`
	// FailFast aborts the pass on the first per-file error. When false,
	// all dispatched work finishes and errors are aggregated.
	FailFast bool `yaml:"fail_fast,omitempty"`
	// Incremental enables the build manifest mtime cache.
	Incremental bool `yaml:"incremental,omitempty"`
	// Force rebuilds every file regardless of the manifest.
	Force bool `yaml:"force,omitempty"`
	// Release enables the release profile (drafts suppressed).
	Release bool `yaml:"release,omitempty"`
}

// LinkConfig controls URL computation.
type LinkConfig struct {
	// Clean rewrites name.ext to name/index.html.
	Clean bool `yaml:"clean"`
	// IncludeIndex keeps index file names in computed hrefs.
	IncludeIndex bool `yaml:"include_index,omitempty"`
	// Verify makes unresolvable internal hrefs a hard error.
	Verify bool `yaml:"verify,omitempty"`
}

// ExtensionConfig maps page-shaped source extensions to output extensions.
type ExtensionConfig struct {
	// Render lists extensions treated as pages.
	Render []string `yaml:"render,omitempty"`
	// Map overrides the output extension per source extension.
	Map map[string]string `yaml:"map,omitempty"`
}

// Resolved returns the effective source -> output extension map.
func (e ExtensionConfig) Resolved() map[string]string {
	out := make(map[string]string, len(e.Render))
	for _, ext := range e.Render {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if mapped, ok := e.Map[ext]; ok {
			out[ext] = mapped
		} else {
			out[ext] = ".html"
		}
	}
	return out
}

// HTMLConfig controls the HTML post-processing applied to rendered pages.
type HTMLConfig struct {
	Minify        bool `yaml:"minify,omitempty"`
	AutoID        bool `yaml:"auto_id,omitempty"`
	Highlight     bool `yaml:"highlight,omitempty"`
	StripComments bool `yaml:"strip_comments,omitempty"`
	TOC           bool `yaml:"toc,omitempty"`
}

// Active reports whether any rewrite pass must run.
func (h HTMLConfig) Active(searchConfigured bool) bool {
	return h.AutoID || h.Highlight || h.StripComments || h.TOC || searchConfigured
}

// LocaleConfig describes the locale variants of a multilingual site.
type LocaleConfig struct {
	// Primary is the fallback locale rooted at the target itself.
	Primary string `yaml:"primary,omitempty"`
	// Alternates each get their own output subdirectory and collation.
	Alternates []string `yaml:"alternates,omitempty"`
}

// LayoutConfig names the default layout and per-path overrides.
type LayoutConfig struct {
	// Default is the source-relative path of the default layout.
	Default string `yaml:"default,omitempty"`
	// Overrides maps source paths to layout paths.
	Overrides map[string]string `yaml:"overrides,omitempty"`
}

// HooksConfig lists commands run strictly before and after a build.
type HooksConfig struct {
	Before []Hook `yaml:"before,omitempty"`
	After  []Hook `yaml:"after,omitempty"`
}

// Hook is one external command.
type Hook struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	Dir     string   `yaml:"dir,omitempty"`
}

// SearchConfig enables plain-text extraction into a search index.
type SearchConfig struct {
	// Path is the SQLite index file, relative to the target.
	Path string `yaml:"path"`
}

// HighlightConfig enables syntax highlighting of fenced code blocks.
type HighlightConfig struct {
	Theme string `yaml:"theme,omitempty"`
}

// BookConfig points at external book-compiler directories.
type BookConfig struct {
	Paths []string `yaml:"paths"`
}

// EventsConfig enables publishing build lifecycle events to NATS.
type EventsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig enables the Prometheus build recorder and its scrape
// endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Address is the host:port the /metrics endpoint listens on.
	Address string `yaml:"address,omitempty"`
}

// PageTable maps source-relative paths to per-page overrides.
type PageTable map[string]PageConfig

// PageConfig carries page data merged from defaults, the page table and
// front matter, in that precedence order.
type PageConfig struct {
	Title      string         `yaml:"title,omitempty"`
	Layout     string         `yaml:"layout,omitempty"`
	Standalone *bool          `yaml:"standalone,omitempty"`
	Draft      *bool          `yaml:"draft,omitempty"`
	Render     *bool          `yaml:"render,omitempty"`
	Data       map[string]any `yaml:"data,omitempty"`
}

// Merge overlays other on top of p and returns the result. Scalar fields
// of other win when set; data maps are merged key-wise.
func (p PageConfig) Merge(other PageConfig) PageConfig {
	out := p
	if other.Title != "" {
		out.Title = other.Title
	}
	if other.Layout != "" {
		out.Layout = other.Layout
	}
	if other.Standalone != nil {
		out.Standalone = other.Standalone
	}
	if other.Draft != nil {
		out.Draft = other.Draft
	}
	if other.Render != nil {
		out.Render = other.Render
	}
	if len(other.Data) > 0 {
		data := make(map[string]any, len(p.Data)+len(other.Data))
		for k, v := range p.Data {
			data[k] = v
		}
		for k, v := range other.Data {
			data[k] = v
		}
		out.Data = data
	}
	return out
}

// FromFields lifts a parsed front matter map into a PageConfig. Known
// keys become typed fields; the rest stays in Data.
func FromFields(fields map[string]any) PageConfig {
	var pc PageConfig
	data := make(map[string]any)
	for k, v := range fields {
		switch k {
		case "title":
			if s, ok := v.(string); ok {
				pc.Title = s
				continue
			}
		case "layout":
			if s, ok := v.(string); ok {
				pc.Layout = s
				continue
			}
		case "standalone":
			if b, ok := v.(bool); ok {
				pc.Standalone = &b
				continue
			}
		case "draft":
			if b, ok := v.(bool); ok {
				pc.Draft = &b
				continue
			}
		case "render":
			if b, ok := v.(bool); ok {
				pc.Render = &b
				continue
			}
		}
		data[k] = v
	}
	if len(data) > 0 {
		pc.Data = data
	}
	return pc
}

// Load reads, expands and validates a configuration file.
func Load(configPath string) (*Config, error) {
	// Load .env if present; its absence is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(configPath))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Source == "" {
		c.Source = "site"
	}
	if c.Target == "" {
		c.Target = "build"
	}
	if !filepath.IsAbs(c.Source) {
		c.Source = filepath.Join(baseDir, c.Source)
	}
	if !filepath.IsAbs(c.Target) {
		c.Target = filepath.Join(baseDir, c.Target)
	}
	if len(c.Extensions.Render) == 0 {
		c.Extensions.Render = []string{".md", ".html"}
	}
	if c.Events != nil && c.Events.Subject == "" {
		c.Events.Subject = "site.build.events"
	}
	if c.Metrics != nil && c.Metrics.Address == "" {
		c.Metrics.Address = "127.0.0.1:9090"
	}
}

// Validate reports configuration errors. These are always fatal and
// surface before any output is written.
func (c *Config) Validate() error {
	if c.Source == "" {
		return enginerr.New(enginerr.CategoryConfig, "source directory is required")
	}
	if c.Target == "" {
		return enginerr.New(enginerr.CategoryConfig, "target directory is required")
	}
	if filepath.Clean(c.Source) == filepath.Clean(c.Target) {
		return enginerr.New(enginerr.CategoryConfig, "source and target must differ")
	}
	if c.Build.Workers < 0 {
		return enginerr.New(enginerr.CategoryConfig, "build.workers must not be negative")
	}
	for key := range c.Pages {
		if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
			return enginerr.Newf(enginerr.CategoryConfig, "pages key %q must be a relative path inside the source tree", key)
		}
	}
	for _, hook := range append(append([]Hook{}, c.Hooks.Before...), c.Hooks.After...) {
		if hook.Command == "" {
			return enginerr.New(enginerr.CategoryConfig, "hook command must not be empty")
		}
	}
	if c.Search != nil && c.Search.Path == "" {
		return enginerr.New(enginerr.CategoryConfig, "search.path is required when search is configured")
	}
	if c.Events != nil && c.Events.URL == "" {
		return enginerr.New(enginerr.CategoryConfig, "events.url is required when events are configured")
	}
	return nil
}
