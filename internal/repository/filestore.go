package repository

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/payorders/internal/entity"
)

type fileEntry struct {
	entity.ReferenceEntity `yaml:",inline"`
	Precedence             int   `yaml:"precedence"`
	Active                 *bool `yaml:"active"`
}

type fileLists struct {
	Companies []fileEntry `yaml:"companies"`
	Creditors []fileEntry `yaml:"creditors"`
	Concepts  []fileEntry `yaml:"concepts"`
}

// FileReferenceStore serves reference lists from a YAML file, for local runs
// and the reconcile command. It applies the same active filter and precedence
// order as the database.
type FileReferenceStore struct {
	lists entity.ReferenceLists
}

// LoadFileReferenceStore reads path.
func LoadFileReferenceStore(path string) (*FileReferenceStore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}
	return ParseReferenceYAML(b)
}

// ParseReferenceYAML decodes a reference document.
func ParseReferenceYAML(b []byte) (*FileReferenceStore, error) {
	var raw fileLists
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode reference file: %w", err)
	}

	companies, err := activeSorted(KindCompany, raw.Companies)
	if err != nil {
		return nil, err
	}
	creditors, err := activeSorted(KindCreditor, raw.Creditors)
	if err != nil {
		return nil, err
	}
	concepts, err := activeSorted(KindConcept, raw.Concepts)
	if err != nil {
		return nil, err
	}
	return &FileReferenceStore{lists: entity.ReferenceLists{
		Companies: companies,
		Creditors: creditors,
		Concepts:  concepts,
	}}, nil
}

func activeSorted(kind string, entries []fileEntry) ([]entity.ReferenceEntity, error) {
	kept := make([]fileEntry, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Canonical) == "" {
			return nil, fmt.Errorf("%s entry %d has no canonical string", kind, i)
		}
		if e.Active != nil && !*e.Active {
			continue
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("%s-%d", kind, i+1)
		}
		kept = append(kept, e)
	}
	slices.SortStableFunc(kept, func(a, b fileEntry) int {
		if a.Precedence != b.Precedence {
			return a.Precedence - b.Precedence
		}
		return strings.Compare(a.Canonical, b.Canonical)
	})

	out := make([]entity.ReferenceEntity, len(kept))
	for i, e := range kept {
		out[i] = e.ReferenceEntity
	}
	return out, nil
}

func (s *FileReferenceStore) ListCompanies(context.Context) ([]entity.ReferenceEntity, error) {
	return slices.Clone(s.lists.Companies), nil
}

func (s *FileReferenceStore) ListCreditors(context.Context) ([]entity.ReferenceEntity, error) {
	return slices.Clone(s.lists.Creditors), nil
}

func (s *FileReferenceStore) ListConcepts(context.Context) ([]entity.ReferenceEntity, error) {
	return slices.Clone(s.lists.Concepts), nil
}
