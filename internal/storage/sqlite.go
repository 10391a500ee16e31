package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aipdfchat/docchat/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

// transcriptFormat is the row format written by this build. Rows carrying a
// different format are skipped on load rather than failing initialization.
const transcriptFormat = 1

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &SQLiteStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password, email, name, profession, purpose, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		user.Username,
		user.Password,
		user.Email,
		user.Name,
		user.Profession,
		user.Purpose,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating user: %v", err)
	}
	return nil
}

func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT username, password, email, name, profession, purpose, created_at
		FROM users WHERE username = ?`

	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT username, password, email, name, profession, purpose, created_at
		FROM users WHERE email = ?`

	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStorage) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.Username,
		&user.Password,
		&user.Email,
		&user.Name,
		&user.Profession,
		&user.Purpose,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user: %v", err)
	}
	return &user, nil
}

func (s *SQLiteStorage) SaveSession(ctx context.Context, username string) error {
	query := `
		INSERT INTO session (id, username) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET username = excluded.username`

	_, err := s.db.ExecContext(ctx, query, username)
	if err != nil {
		return fmt.Errorf("error saving session: %v", err)
	}
	return nil
}

func (s *SQLiteStorage) GetSession(ctx context.Context) (string, error) {
	var username string
	err := s.db.QueryRowContext(ctx, `SELECT username FROM session WHERE id = 1`).Scan(&username)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error getting session: %v", err)
	}
	return username, nil
}

func (s *SQLiteStorage) ClearSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("error clearing session: %v", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveTranscript(ctx context.Context, turns []models.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transcript`); err != nil {
		return fmt.Errorf("error clearing transcript: %v", err)
	}

	query := `
		INSERT INTO transcript (turn_id, role, content, sources, format)
		VALUES (?, ?, ?, ?, ?)`

	for _, turn := range turns {
		sources, err := json.Marshal(turn.Sources)
		if err != nil {
			return fmt.Errorf("error encoding turn sources: %v", err)
		}
		if _, err := tx.ExecContext(ctx, query, turn.ID, string(turn.Role), turn.Content, string(sources), transcriptFormat); err != nil {
			return fmt.Errorf("error saving turn: %v", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) LoadTranscript(ctx context.Context) ([]models.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT turn_id, role, content, sources, format
		FROM transcript ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("error loading transcript: %v", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var (
			turn      models.Turn
			role      string
			sourcesJS string
			format    int
		)
		if err := rows.Scan(&turn.ID, &role, &turn.Content, &sourcesJS, &format); err != nil {
			return nil, fmt.Errorf("error scanning turn: %v", err)
		}
		if format != transcriptFormat {
			continue
		}
		turn.Role = models.Role(role)
		// Malformed stored sources degrade to none rather than failing the load.
		if err := json.Unmarshal([]byte(sourcesJS), &turn.Sources); err != nil {
			turn.Sources = nil
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (s *SQLiteStorage) ClearTranscript(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transcript`)
	if err != nil {
		return fmt.Errorf("error clearing transcript: %v", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
