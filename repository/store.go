package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// IndexEntry is the persisted state of one repository.
type IndexEntry struct {
	Backend  Backend
	Problems []ProblemIndexEntry
}

// Index maps repository names to their persisted state.
type Index map[Name]IndexEntry

// IndexStore persists the repository index as a whole.
type IndexStore interface {
	// Load reads the complete index. A fresh store yields an empty index.
	Load() (Index, error)

	// Save replaces the stored index with idx in a single write.
	Save(idx Index) error

	// Close releases the store.
	Close() error
}

// SQLiteIndexStore implements IndexStore using modernc.org/sqlite (pure Go).
type SQLiteIndexStore struct {
	db *sql.DB
}

// OpenSQLiteIndexStore opens or creates the index database at path.
func OpenSQLiteIndexStore(path string) (*SQLiteIndexStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteIndexStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init index schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteIndexStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repositories (
		name           TEXT PRIMARY KEY,
		backend_kind   TEXT NOT NULL,
		backend_origin TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS problems (
		repository TEXT NOT NULL REFERENCES repositories(name),
		position   INTEGER NOT NULL,
		name       TEXT NOT NULL,
		path       TEXT NOT NULL,
		PRIMARY KEY (repository, position)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads every repository and its problem list.
func (s *SQLiteIndexStore) Load() (Index, error) {
	idx := make(Index)

	rows, err := s.db.Query(`SELECT name, backend_kind, backend_origin FROM repositories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, kind, origin string
		if err := rows.Scan(&name, &kind, &origin); err != nil {
			return nil, err
		}
		idx[Name(name)] = IndexEntry{Backend: Backend{Kind: BackendKind(kind), Origin: origin}}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	probRows, err := s.db.Query(`SELECT repository, name, path FROM problems ORDER BY repository, position`)
	if err != nil {
		return nil, err
	}
	defer probRows.Close()

	for probRows.Next() {
		var repo, name, path string
		if err := probRows.Scan(&repo, &name, &path); err != nil {
			return nil, err
		}
		entry, ok := idx[Name(repo)]
		if !ok {
			return nil, fmt.Errorf("index: problem %q refers to unknown repository %q", name, repo)
		}
		entry.Problems = append(entry.Problems, ProblemIndexEntry{Name: Name(name), Path: path})
		idx[Name(repo)] = entry
	}
	return idx, probRows.Err()
}

// Save rewrites the whole index inside one transaction.
func (s *SQLiteIndexStore) Save(idx Index) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM problems`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM repositories`); err != nil {
		return err
	}

	for name, entry := range idx {
		if _, err := tx.Exec(
			`INSERT INTO repositories (name, backend_kind, backend_origin) VALUES (?, ?, ?)`,
			string(name), string(entry.Backend.Kind), entry.Backend.Origin,
		); err != nil {
			return err
		}
		for i, prob := range entry.Problems {
			if _, err := tx.Exec(
				`INSERT INTO problems (repository, position, name, path) VALUES (?, ?, ?, ?)`,
				string(name), i, string(prob.Name), prob.Path,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteIndexStore) Close() error {
	return s.db.Close()
}
