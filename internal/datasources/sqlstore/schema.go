package sqlstore

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS problems (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT,
		category_id TEXT,
		vote_count  INTEGER NOT NULL DEFAULT 0,
		proposer_id TEXT,
		status      TEXT NOT NULL,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_problems_status_updated ON problems(status, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_problems_category ON problems(category_id)`,
	`CREATE TABLE IF NOT EXISTS votes (
		user_id    TEXT NOT NULL,
		problem_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, problem_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_problem ON votes(problem_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS user_interactions (
		user_id           TEXT NOT NULL,
		problem_id        TEXT NOT NULL,
		interaction_type  TEXT NOT NULL,
		weight            REAL NOT NULL DEFAULT 1,
		interaction_count INTEGER NOT NULL DEFAULT 1,
		last_interaction  DATETIME NOT NULL,
		PRIMARY KEY (user_id, problem_id, interaction_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_problem ON user_interactions(problem_id, last_interaction)`,
	`CREATE TABLE IF NOT EXISTS trending_cache (
		problem_id        TEXT PRIMARY KEY,
		trending_score    REAL NOT NULL,
		vote_velocity     REAL NOT NULL,
		engagement_score  REAL NOT NULL,
		time_decay_factor REAL NOT NULL,
		category_boost    REAL NOT NULL,
		calculated_at     DATETIME NOT NULL,
		expires_at        DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trending_expires ON trending_cache(expires_at)`,
	`CREATE TABLE IF NOT EXISTS problem_similarities (
		problem_a_id     TEXT NOT NULL,
		problem_b_id     TEXT NOT NULL,
		similarity_type  TEXT NOT NULL,
		similarity_score REAL NOT NULL,
		calculated_at    DATETIME NOT NULL,
		UNIQUE (problem_a_id, problem_b_id, similarity_type)
	)`,
	`CREATE TABLE IF NOT EXISTS user_recommendation_preferences (
		user_id              TEXT PRIMARY KEY,
		category_weights     TEXT NOT NULL DEFAULT '{}',
		interaction_weights  TEXT NOT NULL DEFAULT '{}',
		diversity_preference REAL NOT NULL DEFAULT 0.3,
		trending_preference  REAL NOT NULL DEFAULT 0.5,
		exclude_categories   TEXT NOT NULL DEFAULT '[]',
		min_vote_threshold   INTEGER NOT NULL DEFAULT 0
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS problems (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT,
		category_id TEXT,
		vote_count  INTEGER NOT NULL DEFAULT 0,
		proposer_id TEXT,
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_problems_status_updated ON problems(status, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_problems_category ON problems(category_id)`,
	`CREATE TABLE IF NOT EXISTS votes (
		user_id    TEXT NOT NULL,
		problem_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, problem_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_problem ON votes(problem_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS user_interactions (
		user_id           TEXT NOT NULL,
		problem_id        TEXT NOT NULL,
		interaction_type  TEXT NOT NULL,
		weight            DOUBLE PRECISION NOT NULL DEFAULT 1,
		interaction_count INTEGER NOT NULL DEFAULT 1,
		last_interaction  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, problem_id, interaction_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_problem ON user_interactions(problem_id, last_interaction)`,
	`CREATE TABLE IF NOT EXISTS trending_cache (
		problem_id        TEXT PRIMARY KEY,
		trending_score    DOUBLE PRECISION NOT NULL,
		vote_velocity     DOUBLE PRECISION NOT NULL,
		engagement_score  DOUBLE PRECISION NOT NULL,
		time_decay_factor DOUBLE PRECISION NOT NULL,
		category_boost    DOUBLE PRECISION NOT NULL,
		calculated_at     TIMESTAMPTZ NOT NULL,
		expires_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trending_expires ON trending_cache(expires_at)`,
	`CREATE TABLE IF NOT EXISTS problem_similarities (
		problem_a_id     TEXT NOT NULL,
		problem_b_id     TEXT NOT NULL,
		similarity_type  TEXT NOT NULL,
		similarity_score DOUBLE PRECISION NOT NULL,
		calculated_at    TIMESTAMPTZ NOT NULL,
		UNIQUE (problem_a_id, problem_b_id, similarity_type)
	)`,
	`CREATE TABLE IF NOT EXISTS user_recommendation_preferences (
		user_id              TEXT PRIMARY KEY,
		category_weights     TEXT NOT NULL DEFAULT '{}',
		interaction_weights  TEXT NOT NULL DEFAULT '{}',
		diversity_preference DOUBLE PRECISION NOT NULL DEFAULT 0.3,
		trending_preference  DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		exclude_categories   TEXT NOT NULL DEFAULT '[]',
		min_vote_threshold   INTEGER NOT NULL DEFAULT 0
	)`,
}

// MySQL has no CREATE INDEX IF NOT EXISTS, so indexes are declared inline.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS problems (
		id          VARCHAR(64) PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT,
		category_id VARCHAR(64),
		vote_count  INT NOT NULL DEFAULT 0,
		proposer_id VARCHAR(64),
		status      VARCHAR(32) NOT NULL,
		created_at  DATETIME(6) NOT NULL,
		updated_at  DATETIME(6) NOT NULL,
		INDEX idx_problems_status_updated (status, updated_at),
		INDEX idx_problems_category (category_id)
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		user_id    VARCHAR(64) NOT NULL,
		problem_id VARCHAR(64) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		PRIMARY KEY (user_id, problem_id),
		INDEX idx_votes_problem (problem_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS user_interactions (
		user_id           VARCHAR(64) NOT NULL,
		problem_id        VARCHAR(64) NOT NULL,
		interaction_type  VARCHAR(32) NOT NULL,
		weight            DOUBLE NOT NULL DEFAULT 1,
		interaction_count INT NOT NULL DEFAULT 1,
		last_interaction  DATETIME(6) NOT NULL,
		PRIMARY KEY (user_id, problem_id, interaction_type),
		INDEX idx_interactions_problem (problem_id, last_interaction)
	)`,
	`CREATE TABLE IF NOT EXISTS trending_cache (
		problem_id        VARCHAR(64) PRIMARY KEY,
		trending_score    DOUBLE NOT NULL,
		vote_velocity     DOUBLE NOT NULL,
		engagement_score  DOUBLE NOT NULL,
		time_decay_factor DOUBLE NOT NULL,
		category_boost    DOUBLE NOT NULL,
		calculated_at     DATETIME(6) NOT NULL,
		expires_at        DATETIME(6) NOT NULL,
		INDEX idx_trending_expires (expires_at)
	)`,
	`CREATE TABLE IF NOT EXISTS problem_similarities (
		problem_a_id     VARCHAR(64) NOT NULL,
		problem_b_id     VARCHAR(64) NOT NULL,
		similarity_type  VARCHAR(32) NOT NULL,
		similarity_score DOUBLE NOT NULL,
		calculated_at    DATETIME(6) NOT NULL,
		UNIQUE KEY uq_problem_similarities (problem_a_id, problem_b_id, similarity_type)
	)`,
	`CREATE TABLE IF NOT EXISTS user_recommendation_preferences (
		user_id              VARCHAR(64) PRIMARY KEY,
		category_weights     TEXT NOT NULL,
		interaction_weights  TEXT NOT NULL,
		diversity_preference DOUBLE NOT NULL DEFAULT 0.3,
		trending_preference  DOUBLE NOT NULL DEFAULT 0.5,
		exclude_categories   TEXT NOT NULL,
		min_vote_threshold   INT NOT NULL DEFAULT 0
	)`,
}

// Migrate creates any missing tables. It never alters existing ones.
func (r *Repository) Migrate(ctx context.Context) error {
	var statements []string
	switch r.flavor {
	case sqlbuilder.MySQL:
		statements = mysqlSchema
	case sqlbuilder.PostgreSQL:
		statements = postgresSchema
	case sqlbuilder.SQLite:
		statements = sqliteSchema
	default:
		return fmt.Errorf("no schema for flavor %s", r.flavor)
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
