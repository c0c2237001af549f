package collation

// Kind classifies a discovered filesystem entry.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
	KindPage
	KindAsset
	KindLocale
	KindPartial
	KindInclude
	KindDataSource
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindPage:
		return "page"
	case KindAsset:
		return "asset"
	case KindLocale:
		return "locale"
	case KindPartial:
		return "partial"
	case KindInclude:
		return "include"
	case KindDataSource:
		return "datasource"
	default:
		return "unknown"
	}
}

// Operation is what the build performs for a resource.
type Operation int

const (
	OpNoop Operation = iota
	OpRender
	OpCopy
	OpLink
)

func (o Operation) String() string {
	switch o {
	case OpNoop:
		return "noop"
	case OpRender:
		return "render"
	case OpCopy:
		return "copy"
	case OpLink:
		return "link"
	default:
		return "unknown"
	}
}

// Resource is a discovered filesystem entry with its build operation and
// output-relative destination.
type Resource struct {
	Kind        Kind
	Operation   Operation
	Destination string
}

// NewResource classifies a resource. Directories always carry Noop;
// pages render; everything else defaults to a copy.
func NewResource(kind Kind, destination string) Resource {
	op := OpCopy
	switch kind {
	case KindDirectory:
		op = OpNoop
	case KindPage:
		op = OpRender
	}
	return Resource{Kind: kind, Operation: op, Destination: destination}
}

// Page is a render-tracked resource with merged configuration data.
type Page struct {
	// SourcePath is the canonical absolute source path.
	SourcePath string
	// Destination is the output-relative path.
	Destination string
	// Href is the site-root-relative URL.
	Href string

	Title string
	// Layout is a source-relative layout reference; empty means the
	// collation default applies.
	Layout string
	// Standalone pages render without any wrapping layout.
	Standalone bool
	// Draft pages produce no output in the release profile.
	Draft bool
	// Render false means the file is byte-copied despite being page-shaped.
	Render bool

	// Data is the merged front matter / page-table configuration.
	Data map[string]any
	// Body is the page content with front matter stripped.
	Body []byte
}
