package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/yourname/skilltracker/internal"
	"github.com/yourname/skilltracker/internal/storage/migrations"
)

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(dsn string, logger internal.Logger) (*PostgresStorage, error) {
	ctx := context.Background()

	if err := runMigrations(ctx, dsn); err != nil {
		logger.Errorf("failed to run migrations: %v", err)
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// runMigrations applies the embedded goose migrations through the pgx stdlib
// driver; the pool itself never sees database/sql.
func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// wrapErr translates driver errors into the shared taxonomy.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, internal.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", op, internal.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", op, internal.ErrNotFound)
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %v: %w", op, err, internal.ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// withTx runs fn inside a transaction, committing on success and rolling back
// on error or panic.
func (p *PostgresStorage) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return wrapErr("begin tx", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(tx)
	return err
}

const skillColumns = `id, owner_id, title, category, status, confidence, tags, description, started_at, next_review_at, minutes_total, minutes_target, created_at`

func scanSkill(row pgx.Row) (*internal.Skill, error) {
	var sk internal.Skill
	err := row.Scan(&sk.ID, &sk.OwnerID, &sk.Title, &sk.Category, &sk.Status, &sk.Confidence,
		&sk.Tags, &sk.Description, &sk.StartedAt, &sk.NextReviewAt, &sk.MinutesTotal, &sk.MinutesTarget, &sk.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sk, nil
}

// --- SkillRepository ---

func (p *PostgresStorage) CreateSkill(ctx context.Context, skill *internal.Skill) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO skills (`+skillColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		skill.ID, skill.OwnerID, skill.Title, skill.Category, skill.Status, skill.Confidence,
		skill.Tags, skill.Description, skill.StartedAt, skill.NextReviewAt, skill.MinutesTotal, skill.MinutesTarget, skill.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert skill: %v", err)
		return wrapErr("insert skill", err)
	}
	return nil
}

// escapeLike neutralizes LIKE metacharacters so a search term matches as a
// literal substring, same as the file backend.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (p *PostgresStorage) ListSkills(ctx context.Context, ownerID string, filter SkillFilter) ([]internal.Skill, error) {
	query := `SELECT ` + skillColumns + ` FROM skills WHERE owner_id = $1`
	args := []any{ownerID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		query += fmt.Sprintf(" AND $%d = ANY(tags)", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		query += fmt.Sprintf(` AND title ILIKE $%d ESCAPE '\'`, len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Errorf("failed to query skills: %v", err)
		return nil, wrapErr("query skills", err)
	}
	defer rows.Close()

	skills := []internal.Skill{}
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			p.logger.Errorf("failed to scan skill: %v", err)
			return nil, wrapErr("scan skill", err)
		}
		skills = append(skills, *sk)
	}
	return skills, wrapErr("read skills", rows.Err())
}

func (p *PostgresStorage) GetSkill(ctx context.Context, ownerID, id string) (*internal.Skill, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = $1 AND owner_id = $2`, id, ownerID)
	sk, err := scanSkill(row)
	if err != nil {
		return nil, wrapErr("get skill", err)
	}
	return sk, nil
}

func (p *PostgresStorage) UpdateSkill(ctx context.Context, ownerID, id string, patch SkillPatch) (*internal.Skill, error) {
	var updated *internal.Skill
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = $1 AND owner_id = $2 FOR UPDATE`, id, ownerID)
		sk, err := scanSkill(row)
		if err != nil {
			return wrapErr("update skill", err)
		}

		if patch.Title != nil {
			sk.Title = *patch.Title
		}
		if patch.Category != nil {
			sk.Category = *patch.Category
		}
		if patch.Status != nil {
			sk.Status = *patch.Status
		}
		if patch.Confidence != nil {
			sk.Confidence = *patch.Confidence
		}
		if patch.Tags != nil {
			sk.Tags = *patch.Tags
		}
		if patch.Description != nil {
			sk.Description = *patch.Description
		}
		if patch.StartedAt != nil {
			t := *patch.StartedAt
			sk.StartedAt = &t
		}
		if patch.NextReviewAt != nil {
			t := *patch.NextReviewAt
			sk.NextReviewAt = &t
		}
		if patch.MinutesTarget != nil {
			sk.MinutesTarget = *patch.MinutesTarget
		}

		_, err = tx.Exec(ctx, `UPDATE skills SET title = $3, category = $4, status = $5, confidence = $6, tags = $7, description = $8, started_at = $9, next_review_at = $10, minutes_target = $11 WHERE id = $1 AND owner_id = $2`,
			id, ownerID, sk.Title, sk.Category, sk.Status, sk.Confidence, sk.Tags, sk.Description, sk.StartedAt, sk.NextReviewAt, sk.MinutesTarget)
		if err != nil {
			return wrapErr("update skill", err)
		}
		updated = sk
		return nil
	})
	if err != nil {
		p.logger.Errorf("failed to update skill: %v", err)
		return nil, err
	}
	return updated, nil
}

func (p *PostgresStorage) DeleteSkill(ctx context.Context, ownerID, id string) error {
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		// Lock the skill row first so a racing append or second delete
		// serializes behind this transaction.
		var lockedID string
		err := tx.QueryRow(ctx, `SELECT id FROM skills WHERE id = $1 AND owner_id = $2 FOR UPDATE`, id, ownerID).Scan(&lockedID)
		if err != nil {
			return wrapErr("delete skill", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM time_entries WHERE skill_id = $1 AND owner_id = $2`, id, ownerID); err != nil {
			return wrapErr("cascade delete time entries", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM skills WHERE id = $1 AND owner_id = $2`, id, ownerID); err != nil {
			return wrapErr("delete skill", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, internal.ErrNotFound) {
		p.logger.Errorf("failed to delete skill: %v", err)
	}
	return err
}

// --- TimeEntryRepository ---

func (p *PostgresStorage) AppendTimeEntry(ctx context.Context, entry *internal.TimeEntry) error {
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		// The increment doubles as existence/ownership check and row lock:
		// zero rows means no such skill, and a concurrent delete blocks until
		// this transaction finishes (or has already removed the row).
		tag, err := tx.Exec(ctx, `UPDATE skills SET minutes_total = minutes_total + $3 WHERE id = $1 AND owner_id = $2`,
			entry.SkillID, entry.OwnerID, entry.Minutes)
		if err != nil {
			return wrapErr("increment minutes_total", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("append time entry: skill %s: %w", entry.SkillID, internal.ErrNotFound)
		}

		_, err = tx.Exec(ctx, `INSERT INTO time_entries (id, owner_id, skill_id, minutes, note, at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.ID, entry.OwnerID, entry.SkillID, entry.Minutes, entry.Note, entry.At, entry.CreatedAt)
		if err != nil {
			// The increment is already applied inside this tx; failing here
			// must roll the whole unit back.
			return fmt.Errorf("insert time entry: %v: %w", err, internal.ErrConsistency)
		}
		return nil
	})
	if err != nil && !errors.Is(err, internal.ErrNotFound) {
		p.logger.Errorf("failed to append time entry: %v", err)
	}
	return err
}

func (p *PostgresStorage) ListTimeEntries(ctx context.Context, ownerID string, filter TimeEntryFilter) ([]internal.TimeEntryWithSkill, error) {
	query := strings.TrimSpace(`
SELECT e.id, e.owner_id, e.skill_id, e.minutes, e.note, e.at, e.created_at,
       s.title, s.category, s.status, s.confidence
FROM time_entries e
JOIN skills s ON s.id = e.skill_id
WHERE e.owner_id = $1`)
	args := []any{ownerID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND e.at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND e.at <= $%d", len(args))
	}
	if filter.SkillID != "" {
		args = append(args, filter.SkillID)
		query += fmt.Sprintf(" AND e.skill_id = $%d", len(args))
	}
	query += " ORDER BY e.at DESC"

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Errorf("failed to query time entries: %v", err)
		return nil, wrapErr("query time entries", err)
	}
	defer rows.Close()

	entries := []internal.TimeEntryWithSkill{}
	for rows.Next() {
		var e internal.TimeEntryWithSkill
		err := rows.Scan(&e.ID, &e.OwnerID, &e.SkillID, &e.Minutes, &e.Note, &e.At, &e.CreatedAt,
			&e.Skill.Title, &e.Skill.Category, &e.Skill.Status, &e.Skill.Confidence)
		if err != nil {
			p.logger.Errorf("failed to scan time entry: %v", err)
			return nil, wrapErr("scan time entry", err)
		}
		entries = append(entries, e)
	}
	return entries, wrapErr("read time entries", rows.Err())
}

// --- UserRepository ---

func (p *PostgresStorage) CreateUser(ctx context.Context, user *internal.User) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO users (id, name, email, password_hash, avatar_url, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.AvatarURL, user.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert user: %v", err)
		return wrapErr("insert user", err)
	}
	return nil
}

func (p *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*internal.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, name, email, password_hash, avatar_url, created_at FROM users WHERE email = $1`, strings.ToLower(email))
	var u internal.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.AvatarURL, &u.CreatedAt); err != nil {
		return nil, wrapErr("get user by email", err)
	}
	return &u, nil
}

func (p *PostgresStorage) GetUserByID(ctx context.Context, id string) (*internal.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, name, email, password_hash, avatar_url, created_at FROM users WHERE id = $1`, id)
	var u internal.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.AvatarURL, &u.CreatedAt); err != nil {
		return nil, wrapErr("get user by id", err)
	}
	return &u, nil
}

// --- Compile-time assertions ---
var _ SkillRepository = (*PostgresStorage)(nil)
var _ TimeEntryRepository = (*PostgresStorage)(nil)
var _ UserRepository = (*PostgresStorage)(nil)
