package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/coleifer/scout/internal/apierr"
	"github.com/coleifer/scout/internal/model"
)

// IndexRepository is the CRUD path for named search-scope indexes.
type IndexRepository struct {
	db *sql.DB
}

// NewIndexRepository builds an IndexRepository over db.
func NewIndexRepository(db *sql.DB) *IndexRepository {
	return &IndexRepository{db: db}
}

// Create inserts a new index. A duplicate name is a Conflict error (I1).
func (r *IndexRepository) Create(name string) (*model.Index, error) {
	res, err := r.db.Exec("INSERT INTO main_index (name) VALUES (?)", name)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return nil, apierr.Conflict("%q already exists.", name)
		}
		return nil, apierr.Engine(fmt.Errorf("failed to create index: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to read new index id: %w", err))
	}
	return &model.Index{ID: id, Name: name}, nil
}

// Get loads an index by name.
func (r *IndexRepository) Get(name string) (*model.Index, error) {
	idx := &model.Index{Name: name}
	err := r.db.QueryRow(`
		SELECT main_index.id, COUNT(main_index_document.document_id)
		FROM main_index
		LEFT OUTER JOIN main_index_document ON main_index_document.index_id = main_index.id
		WHERE main_index.name = ?
		GROUP BY main_index.id
	`, name).Scan(&idx.ID, &idx.DocumentCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("index %q not found", name)
	}
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to load index: %w", err))
	}
	return idx, nil
}

// GetByID loads an index by its surrogate id.
func (r *IndexRepository) GetByID(id int64) (*model.Index, error) {
	idx := &model.Index{ID: id}
	err := r.db.QueryRow("SELECT name FROM main_index WHERE id = ?", id).Scan(&idx.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("index not found")
	}
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to load index: %w", err))
	}
	return idx, nil
}

// ResolveNames resolves a list of index names into rows, returning a
// Validation error listing every name that does not exist.
func (r *IndexRepository) ResolveNames(names []string) ([]*model.Index, error) {
	var found []*model.Index
	var missing []string
	for _, name := range names {
		idx, err := r.Get(name)
		if err != nil {
			var apiErr *apierr.Error
			if errors.As(err, &apiErr) && apiErr.Kind == apierr.KindNotFound {
				missing = append(missing, name)
				continue
			}
			return nil, err
		}
		found = append(found, idx)
	}
	if len(missing) > 0 {
		return nil, apierr.Validation("The following indexes were not found: %s.", joinNames(missing))
	}
	return found, nil
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

// Rename changes an index's name. A clash with an existing index is a
// Conflict error distinct in wording from creation's.
func (r *IndexRepository) Rename(id int64, newName string) error {
	_, err := r.db.Exec("UPDATE main_index SET name = ? WHERE id = ?", newName, id)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return apierr.Conflict("%q is already in use.", newName)
		}
		return apierr.Engine(fmt.Errorf("failed to rename index: %w", err))
	}
	return nil
}

// Delete clears an index's membership rows, then the index itself.
func (r *IndexRepository) Delete(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return apierr.Engine(fmt.Errorf("failed to begin index-delete transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM main_index_document WHERE index_id = ?", id); err != nil {
		return apierr.Engine(fmt.Errorf("failed to clear index membership: %w", err))
	}
	if _, err := tx.Exec("DELETE FROM main_index WHERE id = ?", id); err != nil {
		return apierr.Engine(fmt.Errorf("failed to delete index: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return apierr.Engine(fmt.Errorf("failed to commit index-delete transaction: %w", err))
	}
	return nil
}

// List returns every index with its document count in one aggregate
// query, ordered per orderBy ("name", "document_count", or "id",
// optionally "-"-prefixed for descending).
func (r *IndexRepository) List(orderBy string) ([]*model.Index, error) {
	column, desc := normalizeIndexOrdering(orderBy)
	order := "ASC"
	if desc {
		order = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT main_index.id, main_index.name, COUNT(main_index_document.document_id) AS document_count
		FROM main_index
		LEFT OUTER JOIN main_index_document ON main_index_document.index_id = main_index.id
		GROUP BY main_index.id
		ORDER BY %s %s
	`, column, order)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to list indexes: %w", err))
	}
	defer rows.Close()

	var out []*model.Index
	for rows.Next() {
		idx := &model.Index{}
		if err := rows.Scan(&idx.ID, &idx.Name, &idx.DocumentCount); err != nil {
			return nil, apierr.Engine(fmt.Errorf("failed to scan index row: %w", err))
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

func normalizeIndexOrdering(orderBy string) (column string, desc bool) {
	key := orderBy
	if len(key) > 0 && key[0] == '-' {
		desc = true
		key = key[1:]
	}
	switch key {
	case "document_count":
		return "document_count", desc
	case "id":
		return "main_index.id", desc
	default:
		return "main_index.name", desc
	}
}
