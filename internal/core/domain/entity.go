package domain

// EntityKind classifies an extracted code construct. Open-ended on purpose:
// parsers for new languages may introduce kinds beyond the core set.
type EntityKind string

const (
	KindFunction EntityKind = "function"
	KindClass    EntityKind = "class"
	KindModule   EntityKind = "module"
	KindOther    EntityKind = "other"
)

// Entity is the normalized record a parser produces for one code construct.
// Entities are immutable once created; re-ingesting a revision replaces the
// entities for a path instead of patching them.
type Entity struct {
	Name         string     `json:"name"`
	Kind         EntityKind `json:"kind"`
	FilePath     string     `json:"file_path"`
	LineNumber   int        `json:"line_number"`
	EndLine      int        `json:"end_line,omitempty"`
	Language     string     `json:"language"`
	Docstring    string     `json:"docstring,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Snippet      string     `json:"snippet,omitempty"`
}

// Validate checks the invariants every indexed entity must hold.
func (e Entity) Validate() error {
	if e.Name == "" {
		return WrapError(ErrInvalidInput, "validate entity", errEmptyEntityName)
	}
	if e.FilePath == "" {
		return WrapError(ErrInvalidInput, "validate entity", errEmptyEntityPath)
	}
	if e.LineNumber < 1 {
		return WrapError(ErrInvalidInput, "validate entity", errBadEntityLine)
	}
	return nil
}
