package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"slidecast/internal/project"
)

// ErrStaleWrite is returned when a save carries an older saved_at than
// the stored row. The caller holds a stale copy and must reload before
// retrying; last writer wins.
var ErrStaleWrite = errors.New("project was saved by a newer writer")

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		media_json TEXT NOT NULL,
		audio_json TEXT,
		settings_json TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_saved ON projects(saved_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProject upserts the project. An existing row with a strictly
// newer saved_at wins and the write is rejected with ErrStaleWrite.
func (s *Store) SaveProject(p *project.Project) error {
	mediaJSON, err := json.Marshal(p.Media)
	if err != nil {
		return err
	}
	settingsJSON, err := json.Marshal(p.Settings)
	if err != nil {
		return err
	}
	var audioJSON sql.NullString
	if p.Audio != nil {
		b, err := json.Marshal(p.Audio)
		if err != nil {
			return err
		}
		audioJSON = sql.NullString{String: string(b), Valid: true}
	}

	var existing sql.NullTime
	err = s.db.QueryRow("SELECT saved_at FROM projects WHERE id = ?", p.ID).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if existing.Valid && existing.Time.After(p.SavedAt) {
		return ErrStaleWrite
	}

	_, err = s.db.Exec(`
		INSERT INTO projects (id, name, media_json, audio_json, settings_json, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			media_json = excluded.media_json,
			audio_json = excluded.audio_json,
			settings_json = excluded.settings_json,
			saved_at = excluded.saved_at
	`, p.ID, p.Name, string(mediaJSON), audioJSON, string(settingsJSON), p.SavedAt.UTC())

	return err
}

// GetProject returns the project or nil when absent.
func (s *Store) GetProject(id string) (*project.Project, error) {
	row := s.db.QueryRow(`
		SELECT id, name, media_json, audio_json, settings_json, saved_at
		FROM projects WHERE id = ?
	`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns all projects, most recently saved first.
func (s *Store) ListProjects() ([]project.Project, error) {
	rows, err := s.db.Query(`
		SELECT id, name, media_json, audio_json, settings_json, saved_at
		FROM projects ORDER BY saved_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}

	return out, rows.Err()
}

func (s *Store) DeleteProject(id string) error {
	_, err := s.db.Exec("DELETE FROM projects WHERE id = ?", id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*project.Project, error) {
	var (
		p            project.Project
		mediaJSON    string
		audioJSON    sql.NullString
		settingsJSON string
		savedAt      time.Time
	)
	if err := row.Scan(&p.ID, &p.Name, &mediaJSON, &audioJSON, &settingsJSON, &savedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mediaJSON), &p.Media); err != nil {
		return nil, err
	}
	if audioJSON.Valid {
		var a project.AudioTrack
		if err := json.Unmarshal([]byte(audioJSON.String), &a); err != nil {
			return nil, err
		}
		p.Audio = &a
	}
	if err := json.Unmarshal([]byte(settingsJSON), &p.Settings); err != nil {
		return nil, err
	}
	p.SavedAt = savedAt
	if p.Media == nil {
		p.Media = []project.MediaItem{}
	}
	return &p, nil
}
