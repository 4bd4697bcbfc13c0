package file

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/domain"
	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// Ensure FieldTable implements the interface.
var _ driven.FieldTable = (*FieldTable)(nil)

//go:embed fields.toml
var defaultFieldsTOML []byte

// fieldConfig mirrors one [[field]] entry in fields.toml.
type fieldConfig struct {
	Name                string   `toml:"name"`
	Description         string   `toml:"description"`
	DataPoints          []string `toml:"data_points"`
	SourceTypes         []string `toml:"source_types"`
	IssueTypes          []string `toml:"issue_types"`
	Queries             []string `toml:"queries"`
	PageStrategy        string   `toml:"page_strategy"`
	RequiresImage       bool     `toml:"requires_image"`
	TopK                int      `toml:"top_k"`
	AuthoritativeSource string   `toml:"authoritative_source"`
	ListField           bool     `toml:"list_field"`
}

type fieldsFile struct {
	Fields []fieldConfig `toml:"field"`
}

// FieldTable is a TOML-backed implementation of driven.FieldTable.
// Definitions are loaded once at construction; the table is immutable
// afterwards, so reads need no locking.
type FieldTable struct {
	defs  map[domain.ExtractionField]*domain.FieldDefinition
	order []domain.ExtractionField
}

// NewFieldTable loads the routing table from the given TOML file.
// If path is empty, ~/.finlab/fields.toml is tried; when no file exists
// the embedded default table is used.
func NewFieldTable(path string) (*FieldTable, error) {
	explicit := path != ""
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, ".finlab", "fields.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			data = defaultFieldsTOML
		} else {
			return nil, fmt.Errorf("read field table %s: %w", path, err)
		}
	}

	return parseFieldTable(data)
}

// DefaultFieldTable returns the embedded routing table without touching
// the filesystem.
func DefaultFieldTable() (*FieldTable, error) {
	return parseFieldTable(defaultFieldsTOML)
}

func parseFieldTable(data []byte) (*FieldTable, error) {
	var parsed fieldsFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse field table: %w", err)
	}
	if len(parsed.Fields) == 0 {
		return nil, fmt.Errorf("field table defines no fields")
	}

	t := &FieldTable{
		defs: make(map[domain.ExtractionField]*domain.FieldDefinition, len(parsed.Fields)),
	}
	for _, fc := range parsed.Fields {
		def, err := fc.toDefinition()
		if err != nil {
			return nil, err
		}
		if _, dup := t.defs[def.Field]; dup {
			return nil, fmt.Errorf("field %q defined twice", def.Field)
		}
		t.defs[def.Field] = def
		t.order = append(t.order, def.Field)
	}
	return t, nil
}

func (fc fieldConfig) toDefinition() (*domain.FieldDefinition, error) {
	if fc.Name == "" {
		return nil, fmt.Errorf("field entry missing name")
	}
	if len(fc.SourceTypes) == 0 {
		return nil, fmt.Errorf("field %q: source_types is required", fc.Name)
	}
	if len(fc.Queries) == 0 {
		return nil, fmt.Errorf("field %q: queries is required", fc.Name)
	}

	def := &domain.FieldDefinition{
		Field:         domain.ExtractionField(fc.Name),
		Description:   fc.Description,
		DataPoints:    fc.DataPoints,
		IssueTypes:    fc.IssueTypes,
		Queries:       fc.Queries,
		RequiresImage: fc.RequiresImage,
		TopK:          fc.TopK,
		ListField:     fc.ListField,
	}

	for _, raw := range fc.SourceTypes {
		st, err := domain.ParseSourceType(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fc.Name, err)
		}
		def.SourceTypes = append(def.SourceTypes, st)
	}

	switch fc.PageStrategy {
	case "", string(domain.StrategyConsecutive):
		def.PageStrategy = domain.StrategyConsecutive
	case string(domain.StrategyTopHit):
		def.PageStrategy = domain.StrategyTopHit
	default:
		return nil, fmt.Errorf("field %q: unknown page strategy %q", fc.Name, fc.PageStrategy)
	}

	if fc.AuthoritativeSource != "" {
		st, err := domain.ParseSourceType(fc.AuthoritativeSource)
		if err != nil {
			return nil, fmt.Errorf("field %q: authoritative_source: %w", fc.Name, err)
		}
		def.AuthoritativeSource = &st
	}

	return def, nil
}

// Definition returns the routing definition for a field.
func (t *FieldTable) Definition(field domain.ExtractionField) (*domain.FieldDefinition, error) {
	def, ok := t.defs[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFieldUnknown, field)
	}
	return def, nil
}

// Fields returns every defined field in table order.
func (t *FieldTable) Fields() []domain.ExtractionField {
	out := make([]domain.ExtractionField, len(t.order))
	copy(out, t.order)
	return out
}
