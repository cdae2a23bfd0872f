package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db        *sqlx.DB
	comments  *attachmentTable[string]
	reactions *attachmentTable[model.Emotion]
}

func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newStore(db), nil
}

// FromDB wraps an existing handle. The schema is assumed to be in place.
func FromDB(db *sql.DB, driverName string) *Store {
	return newStore(sqlx.NewDb(db, driverName))
}

func newStore(db *sqlx.DB) *Store {
	return &Store{
		db: db,
		comments: &attachmentTable[string]{
			db:         db,
			table:      "comments",
			payload:    "content",
			freetOrder: []string{"rowid ASC"},
		},
		reactions: &attachmentTable[model.Emotion]{
			db:         db,
			table:      "reactions",
			payload:    "emotion",
			freetOrder: []string{"emotion ASC", "rowid ASC"},
		},
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Comments() store.AttachmentStore[string] {
	return s.comments
}

func (s *Store) Reactions() store.AttachmentStore[model.Emotion] {
	return s.reactions
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	date_joined INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);

CREATE TABLE IF NOT EXISTS follows (
	follower_id TEXT NOT NULL,
	followee_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (follower_id, followee_id)
);
CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS freets (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL,
	content TEXT NOT NULL,
	date_created INTEGER NOT NULL,
	date_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_freets_author ON freets(author_id);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL,
	freet_id TEXT NOT NULL,
	content TEXT NOT NULL,
	date_created INTEGER NOT NULL,
	date_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_freet ON comments(freet_id);
CREATE INDEX IF NOT EXISTS idx_comments_author ON comments(author_id);

CREATE TABLE IF NOT EXISTS reactions (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL,
	freet_id TEXT NOT NULL,
	emotion TEXT NOT NULL,
	date_created INTEGER NOT NULL,
	date_modified INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reactions_author_freet ON reactions(author_id, freet_id);
CREATE INDEX IF NOT EXISTS idx_reactions_freet ON reactions(freet_id);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sqlx.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	if err := db.Get(&currentVersion, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	DateJoined   int64  `db:"date_joined"`
}

func (r userRow) toModel() model.User {
	return model.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		DateJoined:   fromUnixNano(r.DateJoined),
	}
}

var userColumns = []string{"id", "username", "password_hash", "date_joined"}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := sq.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Username, user.PasswordHash, user.DateJoined.UnixNano()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.getUser(ctx, sq.Eq{"id": id})
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (model.User, error) {
	return s.getUser(ctx, sq.Eq{"username": username})
}

func (s *Store) getUser(ctx context.Context, where sq.Eq) (model.User, error) {
	query, args, err := sq.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return model.User{}, err
	}
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	return row.toModel(), nil
}

func (s *Store) RenameUser(ctx context.Context, id, username string) error {
	query, args, err := sq.Update("users").Set("username", username).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	query, args, err := sq.Delete("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	query, args, err := sq.Insert("follows").
		Columns("follower_id", "followee_id", "created_at").
		Values(followerID, followeeID, time.Now().UnixNano()).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	query, args, err := sq.Delete("follows").
		Where(sq.Eq{"follower_id": followerID, "followee_id": followeeID}).
		ToSql()
	if err != nil {
		return false, err
	}
	return execDeleted(ctx, s.db, query, args)
}

func (s *Store) ListFollows(ctx context.Context, userID string) (model.Follows, error) {
	follows := model.Follows{Followers: []string{}, Following: []string{}}

	query, args, err := sq.Select("u.username").
		From("follows f").
		Join("users u ON u.id = f.follower_id").
		Where(sq.Eq{"f.followee_id": userID}).
		OrderBy("u.username ASC").
		ToSql()
	if err != nil {
		return follows, err
	}
	if err := s.db.SelectContext(ctx, &follows.Followers, query, args...); err != nil {
		return follows, err
	}

	query, args, err = sq.Select("u.username").
		From("follows f").
		Join("users u ON u.id = f.followee_id").
		Where(sq.Eq{"f.follower_id": userID}).
		OrderBy("u.username ASC").
		ToSql()
	if err != nil {
		return follows, err
	}
	if err := s.db.SelectContext(ctx, &follows.Following, query, args...); err != nil {
		return follows, err
	}
	return follows, nil
}

func (s *Store) DeleteFollowsByUser(ctx context.Context, userID string) error {
	query, args, err := sq.Delete("follows").
		Where(sq.Or{sq.Eq{"follower_id": userID}, sq.Eq{"followee_id": userID}}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

type sessionRow struct {
	Token     string `db:"token"`
	UserID    string `db:"user_id"`
	ExpiresAt int64  `db:"expires_at"`
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	query, args, err := sq.Insert("sessions").
		Columns("token", "user_id", "expires_at", "created_at").
		Values(session.Token, session.UserID, session.ExpiresAt.UnixNano(), time.Now().UnixNano()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) GetSession(ctx context.Context, token string) (model.Session, error) {
	query, args, err := sq.Select("token", "user_id", "expires_at").
		From("sessions").
		Where(sq.Eq{"token": token}).
		ToSql()
	if err != nil {
		return model.Session{}, err
	}
	var row sessionRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, store.ErrNotFound
		}
		return model.Session{}, err
	}
	return model.Session{Token: row.Token, UserID: row.UserID, ExpiresAt: fromUnixNano(row.ExpiresAt)}, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	query, args, err := sq.Delete("sessions").Where(sq.Eq{"token": token}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) DeleteSessionsByUser(ctx context.Context, userID string) error {
	query, args, err := sq.Delete("sessions").Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

type freetRow struct {
	ID           string `db:"id"`
	AuthorID     string `db:"author_id"`
	Content      string `db:"content"`
	DateCreated  int64  `db:"date_created"`
	DateModified int64  `db:"date_modified"`
}

func (r freetRow) toModel() model.Freet {
	return model.Freet{
		ID:           r.ID,
		AuthorID:     r.AuthorID,
		Content:      r.Content,
		DateCreated:  fromUnixNano(r.DateCreated),
		DateModified: fromUnixNano(r.DateModified),
	}
}

var freetColumns = []string{"id", "author_id", "content", "date_created", "date_modified"}

func (s *Store) CreateFreet(ctx context.Context, freet *model.Freet) error {
	query, args, err := sq.Insert("freets").
		Columns(freetColumns...).
		Values(freet.ID, freet.AuthorID, freet.Content, freet.DateCreated.UnixNano(), freet.DateModified.UnixNano()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) GetFreet(ctx context.Context, id string) (model.Freet, error) {
	query, args, err := sq.Select(freetColumns...).From("freets").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Freet{}, err
	}
	var row freetRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Freet{}, store.ErrNotFound
		}
		return model.Freet{}, err
	}
	return row.toModel(), nil
}

func (s *Store) ListFreets(ctx context.Context) ([]model.Freet, error) {
	return s.listFreets(ctx, nil)
}

func (s *Store) ListFreetsByAuthor(ctx context.Context, authorID string) ([]model.Freet, error) {
	return s.listFreets(ctx, sq.Eq{"author_id": authorID})
}

func (s *Store) listFreets(ctx context.Context, where sq.Sqlizer) ([]model.Freet, error) {
	builder := sq.Select(freetColumns...).From("freets").OrderBy("date_modified DESC", "rowid DESC")
	if where != nil {
		builder = builder.Where(where)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []freetRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	freets := make([]model.Freet, 0, len(rows))
	for _, r := range rows {
		freets = append(freets, r.toModel())
	}
	return freets, nil
}

func (s *Store) UpdateFreet(ctx context.Context, id, content string, modified time.Time) error {
	query, args, err := sq.Update("freets").
		Set("content", content).
		Set("date_modified", modified.UnixNano()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteFreet(ctx context.Context, id string) (bool, error) {
	query, args, err := sq.Delete("freets").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, err
	}
	return execDeleted(ctx, s.db, query, args)
}

func (s *Store) DeleteFreetsByAuthor(ctx context.Context, authorID string) error {
	query, args, err := sq.Delete("freets").Where(sq.Eq{"author_id": authorID}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n)
}

func requireAffected(res sql.Result) error {
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func execDeleted(ctx context.Context, db *sqlx.DB, query string, args []any) (bool, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
