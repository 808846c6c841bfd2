package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/facematch"
)

// SectionRepository stores section training corpora with pgvector
type SectionRepository struct {
	pool *Pool
}

// NewSectionRepository creates a new PostgreSQL section repository
func NewSectionRepository(pool *Pool) *SectionRepository {
	return &SectionRepository{pool: pool}
}

// GetSection loads a section's corpus in enrollment order, returns nil if not found
func (r *SectionRepository) GetSection(ctx context.Context, section string) (*database.StoredSection, error) {
	s := database.StoredSection{Section: section}
	err := r.pool.QueryRow(ctx,
		`SELECT embedding_dim, version, updated_at FROM sections WHERE section = $1`, section,
	).Scan(&s.Dim, &s.Version, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get section: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT label, embedding FROM section_embeddings WHERE section = $1 ORDER BY position`, section)
	if err != nil {
		return nil, fmt.Errorf("get section embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var vec pgvector.Vector
		if err := rows.Scan(&label, &vec); err != nil {
			return nil, fmt.Errorf("scan section embedding: %w", err)
		}
		s.Labels = append(s.Labels, label)
		s.Embeddings = append(s.Embeddings, facematch.Embedding(vec.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate section embeddings: %w", err)
	}
	return &s, nil
}

// SectionVersion returns the corpus version without loading embeddings
func (r *SectionRepository) SectionVersion(ctx context.Context, section string) (int64, bool, error) {
	var version int64
	err := r.pool.QueryRow(ctx, `SELECT version FROM sections WHERE section = $1`, section).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get section version: %w", err)
	}
	return version, true, nil
}

// ListSections returns summaries of all sections ordered by name
func (r *SectionRepository) ListSections(ctx context.Context) ([]database.SectionSummary, error) {
	query := `
		SELECT s.section, s.version, s.updated_at,
		       COUNT(e.id), COUNT(DISTINCT e.label)
		FROM sections s
		LEFT JOIN section_embeddings e ON e.section = s.section
		GROUP BY s.section, s.version, s.updated_at
		ORDER BY s.section
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var out []database.SectionSummary
	for rows.Next() {
		var s database.SectionSummary
		if err := rows.Scan(&s.Section, &s.Version, &s.UpdatedAt, &s.Samples, &s.Students); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return out, nil
}

// SaveSection replaces a section's corpus and bumps its version atomically
func (r *SectionRepository) SaveSection(ctx context.Context, section string, embeddings []facematch.Embedding, labels []string) (int64, error) {
	if len(embeddings) != len(labels) {
		return 0, fmt.Errorf("save section: %d embeddings but %d labels", len(embeddings), len(labels))
	}
	if len(embeddings) == 0 {
		return 0, errors.New("save section: empty corpus")
	}
	dim := len(embeddings[0])

	var version int64
	err := r.pool.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sections (section, embedding_dim, version, updated_at)
			VALUES ($1, $2, 1, NOW())
			ON CONFLICT (section) DO UPDATE SET
				embedding_dim = EXCLUDED.embedding_dim,
				version = sections.version + 1,
				updated_at = NOW()
			RETURNING version
		`, section, dim).Scan(&version)
		if err != nil {
			return fmt.Errorf("upsert section: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM section_embeddings WHERE section = $1`, section); err != nil {
			return fmt.Errorf("clear section embeddings: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO section_embeddings (section, position, label, embedding) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, emb := range embeddings {
			if len(emb) != dim {
				return fmt.Errorf("embedding %d has %d values, expected %d", i, len(emb), dim)
			}
			if _, err := stmt.ExecContext(ctx, section, i, labels[i], pgvector.NewVector(emb)); err != nil {
				return fmt.Errorf("insert embedding %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("save section %s: %w", section, err)
	}
	return version, nil
}

// DeleteSection removes a section, its embeddings cascade
func (r *SectionRepository) DeleteSection(ctx context.Context, section string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sections WHERE section = $1`, section); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}
