package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/postgres"
	"github.com/lib/pq"
)

// PostgresStore keeps profiles in two tables; every aggregate is a JSONB
// column.
//
//	CREATE TABLE topic_profiles (
//	    id     BIGINT PRIMARY KEY,
//	    title  TEXT NOT NULL,
//	    url    TEXT NOT NULL,
//	    tokens JSONB NOT NULL
//	);
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "profile-store"),
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS topic_profiles (
		id     BIGINT PRIMARY KEY,
		title  TEXT NOT NULL,
		url    TEXT NOT NULL,
		tokens JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		id          BIGINT PRIMARY KEY,
		name        TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		url         TEXT NOT NULL,
		avatar      TEXT NOT NULL DEFAULT '',
		tokens      JSONB NOT NULL DEFAULT '[]',
		smileys     JSONB NOT NULL DEFAULT '[]',
		quotes_from JSONB NOT NULL DEFAULT '[]',
		quoted_by   JSONB NOT NULL DEFAULT '[]',
		topics      JSONB NOT NULL DEFAULT '[]',
		sentiment   JSONB,
		activity    JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS user_profiles_name_idx ON user_profiles (lower(name) text_pattern_ops)`,
	`CREATE INDEX IF NOT EXISTS topic_profiles_tokens_idx ON topic_profiles USING GIN (tokens jsonb_path_ops)`,
}

// EnsureSchema creates the tables and indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring profile schema: %w", err)
		}
	}
	return nil
}

// execer is the part of *sql.DB and *sql.Tx the writes need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) CreateTopicProfile(ctx context.Context, p TopicProfile) error {
	return insertTopic(ctx, s.db.DB, p)
}

func (s *PostgresStore) CreateUserProfile(ctx context.Context, p UserProfile) error {
	return insertUser(ctx, s.db.DB, p)
}

func (s *PostgresStore) TruncateAll(ctx context.Context) error {
	return truncate(ctx, s.db.DB)
}

func truncate(ctx context.Context, db execer) error {
	if _, err := db.ExecContext(ctx, `TRUNCATE topic_profiles, user_profiles`); err != nil {
		return fmt.Errorf("truncating profiles: %w", err)
	}
	return nil
}

func insertTopic(ctx context.Context, db execer, p TopicProfile) error {
	row, err := topicRow(p)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO topic_profiles (id, title, url, tokens) VALUES ($1, $2, $3, $4)`,
		row...,
	)
	if err != nil {
		return fmt.Errorf("inserting topic profile %d: %w", p.ID, err)
	}
	return nil
}

func insertUser(ctx context.Context, db execer, p UserProfile) error {
	row, err := userRow(p)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO user_profiles (`+strings.Join(userColumns, ", ")+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		row...,
	)
	if err != nil {
		return fmt.Errorf("inserting user profile %d: %w", p.ID, err)
	}
	return nil
}

var (
	topicColumns = []string{"id", "title", "url", "tokens"}
	userColumns  = []string{
		"id", "name", "title", "url", "avatar", "tokens", "smileys",
		"quotes_from", "quoted_by", "topics", "sentiment", "activity",
	}
)

func topicRow(p TopicProfile) ([]any, error) {
	tokens, err := jsonText(p.Tokens)
	if err != nil {
		return nil, fmt.Errorf("encoding topic %d: %w", p.ID, err)
	}
	return []any{p.ID, p.Title, p.URL, tokens}, nil
}

func userRow(p UserProfile) ([]any, error) {
	row := []any{p.ID, p.Name, p.Title, p.URL, p.AvatarURL}
	for _, v := range []any{p.Tokens, p.Smileys, p.QuotesFrom, p.QuotedBy, p.Topics} {
		text, err := jsonText(v)
		if err != nil {
			return nil, fmt.Errorf("encoding user %d: %w", p.ID, err)
		}
		row = append(row, text)
	}
	for _, v := range []any{p.Sentiment, p.Activity} {
		text, err := jsonText(v)
		if err != nil {
			return nil, fmt.Errorf("encoding user %d: %w", p.ID, err)
		}
		if text == "null" {
			row = append(row, nil)
			continue
		}
		row = append(row, text)
	}
	return row, nil
}

// jsonText encodes v as text, which both INSERT and COPY accept for JSONB.
// Nil slices become empty arrays.
func jsonText(v any) (string, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.IsNil() {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReplaceAll truncates both tables and bulk loads the new profiles with
// COPY inside a single transaction.
func (s *PostgresStore) ReplaceAll(ctx context.Context, topics []TopicProfile, users []UserProfile) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := truncate(ctx, tx); err != nil {
			return err
		}
		topicRows := make([][]any, 0, len(topics))
		for _, p := range topics {
			row, err := topicRow(p)
			if err != nil {
				return err
			}
			topicRows = append(topicRows, row)
		}
		if err := copyRows(ctx, tx, "topic_profiles", topicColumns, topicRows); err != nil {
			return err
		}
		userRows := make([][]any, 0, len(users))
		for _, p := range users {
			row, err := userRow(p)
			if err != nil {
				return err
			}
			userRows = append(userRows, row)
		}
		if err := copyRows(ctx, tx, "user_profiles", userColumns, userRows); err != nil {
			return err
		}
		s.logger.Info("profiles replaced", "topics", len(topics), "users", len(users))
		return nil
	})
}

func copyRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("preparing copy into %s: %w", table, err)
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("copying into %s: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flushing copy into %s: %w", table, err)
	}
	return nil
}

// SearchTopicsByTerm returns topics whose top terms contain term exactly.
func (s *PostgresStore) SearchTopicsByTerm(ctx context.Context, term string) ([]TopicProfile, error) {
	filter, err := json.Marshal([]map[string]string{{"term": term}})
	if err != nil {
		return nil, fmt.Errorf("encoding term filter: %w", err)
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, title, url, tokens FROM topic_profiles WHERE tokens @> $1::jsonb ORDER BY id`,
		string(filter),
	)
	if err != nil {
		return nil, fmt.Errorf("searching topics by term: %w", err)
	}
	defer rows.Close()

	topics := []TopicProfile{}
	for rows.Next() {
		var (
			p      TopicProfile
			tokens []byte
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.URL, &tokens); err != nil {
			return nil, fmt.Errorf("scanning topic profile: %w", err)
		}
		if err := json.Unmarshal(tokens, &p.Tokens); err != nil {
			s.logger.Warn("skipping corrupt topic profile", "id", p.ID, "error", err)
			continue
		}
		topics = append(topics, p)
	}
	return topics, rows.Err()
}

// SearchUsersByNamePrefix matches names case-insensitively. The prefix is
// taken literally: LIKE wildcards in it are escaped.
func (s *PostgresStore) SearchUsersByNamePrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT name FROM user_profiles WHERE name ILIKE $1 ESCAPE '\' ORDER BY name LIMIT $2`,
		escapeLike(prefix)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching users by prefix: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning user name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *PostgresStore) UserByName(ctx context.Context, name string) (*UserProfile, error) {
	var (
		p                                             UserProfile
		tokens, smileys, quotesFrom, quotedBy, topics []byte
		sentiment, activity                           []byte
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT `+strings.Join(userColumns, ", ")+` FROM user_profiles WHERE name = $1 ORDER BY id DESC LIMIT 1`,
		name,
	).Scan(&p.ID, &p.Name, &p.Title, &p.URL, &p.AvatarURL,
		&tokens, &smileys, &quotesFrom, &quotedBy, &topics, &sentiment, &activity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUserNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %q: %w", name, err)
	}
	for _, f := range []struct {
		data []byte
		dst  any
	}{
		{tokens, &p.Tokens},
		{smileys, &p.Smileys},
		{quotesFrom, &p.QuotesFrom},
		{quotedBy, &p.QuotedBy},
		{topics, &p.Topics},
		{sentiment, &p.Sentiment},
		{activity, &p.Activity},
	} {
		if f.data == nil {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return nil, fmt.Errorf("decoding user %q: %w", name, err)
		}
	}
	return &p, nil
}

func (s *PostgresStore) ListTopics(ctx context.Context) ([]TopicSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT id, title FROM topic_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	defer rows.Close()

	topics := []TopicSummary{}
	for rows.Next() {
		var t TopicSummary
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// Ping lets the store act as a readiness dependency.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
