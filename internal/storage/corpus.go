package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/runger/casenote/internal/provider"
)

// Compile-time check that SQLiteStore can back a lookup provider.
var _ provider.CandidateSource = (*SQLiteStore)(nil)

// InputSummary describes one stored input.
type InputSummary struct {
	Input      string
	Key        string
	NumOutputs int
}

// ImportCorpus replaces the stored corpus with c in a single transaction and
// returns the number of inputs written.
func (s *SQLiteStore) ImportCorpus(ctx context.Context, c *provider.Corpus) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_outputs`); err != nil {
		return 0, fmt.Errorf("failed to clear corpus outputs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_inputs`); err != nil {
		return 0, fmt.Errorf("failed to clear corpus inputs: %w", err)
	}

	insertInput, err := tx.PrepareContext(ctx, `INSERT INTO corpus_inputs (input, input_key) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare input insert: %w", err)
	}
	defer insertInput.Close()

	insertOutput, err := tx.PrepareContext(ctx, `INSERT INTO corpus_outputs (input_id, position, text) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare output insert: %w", err)
	}
	defer insertOutput.Close()

	entries := c.Entries()
	for _, e := range entries {
		res, err := insertInput.ExecContext(ctx, e.Input, provider.Normalize(e.Input))
		if err != nil {
			return 0, fmt.Errorf("failed to insert input %q: %w", e.Input, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read input id: %w", err)
		}
		for pos, text := range e.Outputs {
			if _, err := insertOutput.ExecContext(ctx, id, pos, text); err != nil {
				return 0, fmt.Errorf("failed to insert output %d of %q: %w", pos, e.Input, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit corpus import: %w", err)
	}
	return len(entries), nil
}

// Candidates returns the outputs stored for a normalized key, ordered by
// position. found is false when the key has no stored input.
func (s *SQLiteStore) Candidates(ctx context.Context, key string) ([]string, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM corpus_inputs WHERE input_key = ?`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query corpus input: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, text FROM corpus_outputs
		WHERE input_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query corpus outputs: %w", err)
	}
	defer rows.Close()

	var outputs []string
	for rows.Next() {
		var pos int
		var text string
		if err := rows.Scan(&pos, &text); err != nil {
			return nil, false, fmt.Errorf("failed to scan corpus output: %w", err)
		}
		// Positions are dense from 0, so the slice index is the identity.
		if pos != len(outputs) {
			return nil, false, fmt.Errorf("corpus output positions for %q are not contiguous", key)
		}
		outputs = append(outputs, text)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to iterate corpus outputs: %w", err)
	}
	return outputs, true, nil
}

// ListInputs returns every stored input with its output count, in import
// order.
func (s *SQLiteStore) ListInputs(ctx context.Context) ([]InputSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.input, i.input_key, COUNT(o.position)
		FROM corpus_inputs i
		LEFT JOIN corpus_outputs o ON o.input_id = i.id
		GROUP BY i.id
		ORDER BY i.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus inputs: %w", err)
	}
	defer rows.Close()

	var out []InputSummary
	for rows.Next() {
		var in InputSummary
		if err := rows.Scan(&in.Input, &in.Key, &in.NumOutputs); err != nil {
			return nil, fmt.Errorf("failed to scan corpus input: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate corpus inputs: %w", err)
	}
	return out, nil
}

// CountInputs returns the number of stored inputs.
func (s *SQLiteStore) CountInputs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_inputs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count corpus inputs: %w", err)
	}
	return n, nil
}

// LoadCorpus reads the stored corpus back into memory.
func (s *SQLiteStore) LoadCorpus(ctx context.Context) (*provider.Corpus, error) {
	inputs, err := s.ListInputs(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]provider.Entry, 0, len(inputs))
	for _, in := range inputs {
		outputs, _, err := s.Candidates(ctx, in.Key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, provider.Entry{Input: in.Input, Outputs: outputs})
	}
	return provider.NewCorpus(entries)
}
