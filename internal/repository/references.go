package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/joseph-ayodele/payorders/internal/entity"
)

// Reference list kinds stored in reference_entity.kind.
const (
	KindCompany  = "company"
	KindCreditor = "creditor"
	KindConcept  = "concept"
)

// ReferenceRepository returns active reference entries in precedence order.
type ReferenceRepository interface {
	ListCompanies(ctx context.Context) ([]entity.ReferenceEntity, error)
	ListCreditors(ctx context.Context) ([]entity.ReferenceEntity, error)
	ListConcepts(ctx context.Context) ([]entity.ReferenceEntity, error)
}

type referenceRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewReferenceRepository(db DBTX, logger *slog.Logger) ReferenceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &referenceRepository{db: db, logger: logger}
}

func (r *referenceRepository) ListCompanies(ctx context.Context) ([]entity.ReferenceEntity, error) {
	return r.list(ctx, KindCompany)
}

func (r *referenceRepository) ListCreditors(ctx context.Context) ([]entity.ReferenceEntity, error) {
	return r.list(ctx, KindCreditor)
}

func (r *referenceRepository) ListConcepts(ctx context.Context) ([]entity.ReferenceEntity, error) {
	return r.list(ctx, KindConcept)
}

func (r *referenceRepository) list(ctx context.Context, kind string) ([]entity.ReferenceEntity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, canonical, COALESCE(tokens, '{}')
		FROM reference_entity
		WHERE kind = $1 AND active
		ORDER BY precedence, canonical`, kind)
	if err != nil {
		r.logger.Error("reference list query failed", "kind", kind, "error", err)
		return nil, fmt.Errorf("list %s references: %w", kind, err)
	}

	refs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.ReferenceEntity, error) {
		var ref entity.ReferenceEntity
		err := row.Scan(&ref.ID, &ref.Canonical, &ref.Tokens)
		return ref, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s references: %w", kind, err)
	}
	for i := range refs {
		if len(refs[i].Tokens) == 0 {
			refs[i].Tokens = nil
		}
	}
	r.logger.Debug("reference list loaded", "kind", kind, "count", len(refs))
	return refs, nil
}

// LoadLists fetches the three lists a form session works against.
func LoadLists(ctx context.Context, repo ReferenceRepository) (entity.ReferenceLists, error) {
	var lists entity.ReferenceLists
	var err error
	if lists.Companies, err = repo.ListCompanies(ctx); err != nil {
		return entity.ReferenceLists{}, err
	}
	if lists.Creditors, err = repo.ListCreditors(ctx); err != nil {
		return entity.ReferenceLists{}, err
	}
	if lists.Concepts, err = repo.ListConcepts(ctx); err != nil {
		return entity.ReferenceLists{}, err
	}
	return lists, nil
}
