package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"strdep/internal/registry/models"
	"strdep/pkg/domain"
	"strdep/pkg/platform/sentinel"
)

// Schema is the registry DDL: four append-only version tables, each with a
// uniqueness constraint on (functional id, owner, created_at) and a partial
// index over current rows to make head-of-chain lookups cheap.
const Schema = `
CREATE TABLE IF NOT EXISTS competent_authority (
	id         BIGSERIAL PRIMARY KEY,
	owner_id   VARCHAR(64) NOT NULL,
	owner_name VARCHAR(64),
	created_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ,
	CONSTRAINT uq_competent_authority_version UNIQUE (owner_id, created_at)
);
CREATE INDEX IF NOT EXISTS ix_competent_authority_current
	ON competent_authority (owner_id) WHERE ended_at IS NULL;

CREATE TABLE IF NOT EXISTS platform (
	id         BIGSERIAL PRIMARY KEY,
	owner_id   VARCHAR(64) NOT NULL,
	owner_name VARCHAR(64),
	created_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ,
	CONSTRAINT uq_platform_version UNIQUE (owner_id, created_at)
);
CREATE INDEX IF NOT EXISTS ix_platform_current
	ON platform (owner_id) WHERE ended_at IS NULL;

CREATE TABLE IF NOT EXISTS area (
	id                     BIGSERIAL PRIMARY KEY,
	area_id                VARCHAR(64) NOT NULL,
	area_name              VARCHAR(64),
	competent_authority_id BIGINT NOT NULL REFERENCES competent_authority(id),
	filename               VARCHAR(64) NOT NULL,
	filedata               BYTEA NOT NULL CHECK (length(filedata) <= 1048576),
	created_at             TIMESTAMPTZ NOT NULL,
	ended_at               TIMESTAMPTZ,
	CONSTRAINT uq_area_version UNIQUE (area_id, competent_authority_id, created_at)
);
CREATE INDEX IF NOT EXISTS ix_area_current
	ON area (area_id, competent_authority_id) WHERE ended_at IS NULL;
CREATE INDEX IF NOT EXISTS ix_area_resolution
	ON area (area_id, created_at DESC) WHERE ended_at IS NULL;

CREATE TABLE IF NOT EXISTS activity (
	id                  BIGSERIAL PRIMARY KEY,
	activity_id         VARCHAR(64) NOT NULL,
	activity_name       VARCHAR(64),
	platform_id         BIGINT NOT NULL REFERENCES platform(id),
	area_id             BIGINT NOT NULL REFERENCES area(id),
	url                 VARCHAR(128),
	registration_number VARCHAR(32) NOT NULL,
	address_street      VARCHAR(64) NOT NULL,
	address_number      INTEGER NOT NULL,
	address_letter      VARCHAR(1),
	address_addition    VARCHAR(10),
	address_postal_code VARCHAR(8) NOT NULL,
	address_city        VARCHAR(64) NOT NULL,
	number_of_guests    INTEGER CHECK (number_of_guests IS NULL OR (number_of_guests BETWEEN 1 AND 1024)),
	country_of_guests   TEXT[],
	temporal_start      TIMESTAMPTZ NOT NULL,
	temporal_end        TIMESTAMPTZ NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	ended_at            TIMESTAMPTZ,
	CONSTRAINT uq_activity_version UNIQUE (activity_id, platform_id, created_at)
);
CREATE INDEX IF NOT EXISTS ix_activity_current
	ON activity (activity_id, platform_id) WHERE ended_at IS NULL;
`

// Postgres implements Store over database/sql with the pgx driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies the registry schema. Idempotent.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply registry schema: %w", err)
	}
	return nil
}

var ownerTables = map[models.OwnerKind]string{
	models.OwnerAuthority: "competent_authority",
	models.OwnerPlatform:  "platform",
}

func ownerTable(kind models.OwnerKind) (string, error) {
	table, ok := ownerTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown owner kind %q", kind)
	}
	return table, nil
}

// lockChain serializes chain operations per (table, owner, functional id)
// inside the current transaction. Released automatically at commit/rollback.
func lockChain(ctx context.Context, tx *sql.Tx, table string, ownerRef domain.RecordID, functionalID domain.FunctionalID) error {
	key := fmt.Sprintf("%s/%d/%s", table, ownerRef, functionalID)
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("lock chain %s: %w", key, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Postgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Owners
// -----------------------------------------------------------------------------

func (s *Postgres) FindCurrentOwner(ctx context.Context, kind models.OwnerKind, ownerID domain.FunctionalID) (*models.Owner, error) {
	table, err := ownerTable(kind)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, owner_id, owner_name, created_at, ended_at
		 FROM %s WHERE owner_id = $1 AND ended_at IS NULL`, table), string(ownerID))
	return scanOwner(row, kind)
}

func (s *Postgres) CreateOwner(ctx context.Context, owner *models.Owner) error {
	table, err := ownerTable(owner.Kind)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockChain(ctx, tx, table, 0, owner.OwnerID); err != nil {
			return err
		}

		var existing, ended int
		err := tx.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT COUNT(*), COUNT(ended_at) FROM %s WHERE owner_id = $1`, table),
			string(owner.OwnerID)).Scan(&existing, &ended)
		if err != nil {
			return fmt.Errorf("inspect owner chain: %w", err)
		}
		if existing > 0 {
			if existing == ended {
				return sentinel.ErrDeactivated
			}
			return sentinel.ErrConflict
		}

		err = tx.QueryRowContext(ctx, fmt.Sprintf(
			`INSERT INTO %s (owner_id, owner_name, created_at) VALUES ($1, $2, $3) RETURNING id`, table),
			string(owner.OwnerID), nullStr(owner.Name), owner.CreatedAt.UTC()).Scan(&owner.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert owner: %w", err)
		}
		return nil
	})
}

func (s *Postgres) OwnerByRecord(ctx context.Context, kind models.OwnerKind, ref domain.RecordID) (*models.Owner, error) {
	table, err := ownerTable(kind)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, owner_id, owner_name, created_at, ended_at FROM %s WHERE id = $1`, table), int64(ref))
	return scanOwner(row, kind)
}

func scanOwner(row *sql.Row, kind models.OwnerKind) (*models.Owner, error) {
	var (
		o       models.Owner
		name    sql.NullString
		endedAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OwnerID, &name, &o.CreatedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan owner: %w", err)
	}
	o.Kind = kind
	o.Name = name.String
	o.EndedAt = timePtr(endedAt)
	return &o, nil
}

// -----------------------------------------------------------------------------
// Areas
// -----------------------------------------------------------------------------

func (s *Postgres) SubmitArea(ctx context.Context, area *models.Area) (*models.Area, error) {
	inserted := *area
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockChain(ctx, tx, "area", area.AuthorityRef, area.AreaID); err != nil {
			return err
		}

		var (
			headID    domain.RecordID
			headEnded sql.NullTime
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, ended_at FROM area
			 WHERE area_id = $1 AND competent_authority_id = $2
			 ORDER BY created_at DESC, id DESC LIMIT 1`,
			string(area.AreaID), int64(area.AuthorityRef)).Scan(&headID, &headEnded)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// first version of the chain
		case err != nil:
			return fmt.Errorf("load area chain head: %w", err)
		case headEnded.Valid:
			return sentinel.ErrDeactivated
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE area SET ended_at = $1 WHERE id = $2`,
				area.CreatedAt.UTC(), int64(headID)); err != nil {
				return fmt.Errorf("close current area version: %w", err)
			}
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO area (area_id, area_name, competent_authority_id, filename, filedata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			string(area.AreaID), nullStr(area.Name), int64(area.AuthorityRef),
			area.Filename, area.FileData, area.CreatedAt.UTC()).Scan(&inserted.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert area version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inserted, nil
}

func (s *Postgres) DeactivateArea(ctx context.Context, authorityRef domain.RecordID, areaID domain.FunctionalID, now time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockChain(ctx, tx, "area", authorityRef, areaID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE area SET ended_at = $1
			 WHERE area_id = $2 AND competent_authority_id = $3 AND ended_at IS NULL`,
			now.UTC(), string(areaID), int64(authorityRef))
		if err != nil {
			return fmt.Errorf("deactivate area: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deactivate area: %w", err)
		}
		if n == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

func (s *Postgres) ResolveLatestArea(ctx context.Context, areaID domain.FunctionalID) (*models.Area, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, area_id, area_name, competent_authority_id, filename, filedata, created_at, ended_at
		 FROM area WHERE area_id = $1 AND ended_at IS NULL
		 ORDER BY created_at DESC, id DESC LIMIT 1`, string(areaID))
	return scanArea(row)
}

func (s *Postgres) AreaByRecord(ctx context.Context, ref domain.RecordID) (*models.Area, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, area_id, area_name, competent_authority_id, filename, filedata, created_at, ended_at
		 FROM area WHERE id = $1`, int64(ref))
	return scanArea(row)
}

func scanArea(row *sql.Row) (*models.Area, error) {
	var (
		a       models.Area
		name    sql.NullString
		endedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.AreaID, &name, &a.AuthorityRef, &a.Filename, &a.FileData, &a.CreatedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan area: %w", err)
	}
	a.Name = name.String
	a.EndedAt = timePtr(endedAt)
	return &a, nil
}

func areaFilterClauses(f AreaFilter) (string, []any) {
	where := []string{"a.ended_at IS NULL"}
	var args []any
	if !f.AuthorityRef.IsZero() {
		args = append(args, int64(f.AuthorityRef))
		where = append(where, fmt.Sprintf("a.competent_authority_id = $%d", len(args)))
	}
	return strings.Join(where, " AND "), args
}

func (s *Postgres) ListAreas(ctx context.Context, f AreaFilter) ([]*models.AreaListing, error) {
	where, args := areaFilterClauses(f)
	query := fmt.Sprintf(
		`SELECT a.area_id, a.area_name, a.filename, a.created_at, ca.owner_id, ca.owner_name
		 FROM area a
		 JOIN competent_authority ca ON ca.id = a.competent_authority_id
		 WHERE %s
		 ORDER BY a.created_at DESC, a.id DESC`, where)
	query, args = appendPaging(query, args, f.Offset, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	var listings []*models.AreaListing
	for rows.Next() {
		var (
			l         models.AreaListing
			name      sql.NullString
			ownerName sql.NullString
		)
		if err := rows.Scan(&l.AreaID, &name, &l.Filename, &l.CreatedAt, &l.AuthorityID, &ownerName); err != nil {
			return nil, fmt.Errorf("scan area listing: %w", err)
		}
		l.Name = name.String
		l.AuthorityName = ownerName.String
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

func (s *Postgres) CountAreas(ctx context.Context, f AreaFilter) (int, error) {
	where, args := areaFilterClauses(f)
	var count int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM area a WHERE %s`, where), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count areas: %w", err)
	}
	return count, nil
}

func (s *Postgres) AreaVersions(ctx context.Context, authorityRef domain.RecordID, areaID domain.FunctionalID) ([]*models.Area, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, area_id, area_name, competent_authority_id, filename, filedata, created_at, ended_at
		 FROM area WHERE area_id = $1 AND competent_authority_id = $2
		 ORDER BY created_at ASC, id ASC`, string(areaID), int64(authorityRef))
	if err != nil {
		return nil, fmt.Errorf("area versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.Area
	for rows.Next() {
		var (
			a       models.Area
			name    sql.NullString
			endedAt sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.AreaID, &name, &a.AuthorityRef, &a.Filename, &a.FileData, &a.CreatedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan area version: %w", err)
		}
		a.Name = name.String
		a.EndedAt = timePtr(endedAt)
		versions = append(versions, &a)
	}
	return versions, rows.Err()
}

// -----------------------------------------------------------------------------
// Activities
// -----------------------------------------------------------------------------

func (s *Postgres) SubmitActivity(ctx context.Context, activity *models.Activity) (*models.Activity, error) {
	inserted := *activity
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockChain(ctx, tx, "activity", activity.PlatformRef, activity.ActivityID); err != nil {
			return err
		}

		var (
			headID    domain.RecordID
			headEnded sql.NullTime
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, ended_at FROM activity
			 WHERE activity_id = $1 AND platform_id = $2
			 ORDER BY created_at DESC, id DESC LIMIT 1`,
			string(activity.ActivityID), int64(activity.PlatformRef)).Scan(&headID, &headEnded)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// first version of the chain
		case err != nil:
			return fmt.Errorf("load activity chain head: %w", err)
		case headEnded.Valid:
			return sentinel.ErrDeactivated
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE activity SET ended_at = $1 WHERE id = $2`,
				activity.CreatedAt.UTC(), int64(headID)); err != nil {
				return fmt.Errorf("close current activity version: %w", err)
			}
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO activity (
				activity_id, activity_name, platform_id, area_id, url, registration_number,
				address_street, address_number, address_letter, address_addition,
				address_postal_code, address_city, number_of_guests, country_of_guests,
				temporal_start, temporal_end, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			 RETURNING id`,
			string(activity.ActivityID), nullStr(activity.Name),
			int64(activity.PlatformRef), int64(activity.AreaRef),
			nullStr(activity.URL), activity.RegistrationNumber,
			activity.Address.Street, activity.Address.Number,
			nullStr(activity.Address.Letter), nullStr(activity.Address.Addition),
			activity.Address.PostalCode, activity.Address.City,
			nullInt(activity.NumberOfGuests), countryArray(activity.CountryOfGuests),
			activity.Temporal.Start.UTC(), activity.Temporal.End.UTC(),
			activity.CreatedAt.UTC()).Scan(&inserted.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert activity version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inserted, nil
}

func (s *Postgres) DeactivateActivity(ctx context.Context, platformRef domain.RecordID, activityID domain.FunctionalID, now time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockChain(ctx, tx, "activity", platformRef, activityID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE activity SET ended_at = $1
			 WHERE activity_id = $2 AND platform_id = $3 AND ended_at IS NULL`,
			now.UTC(), string(activityID), int64(platformRef))
		if err != nil {
			return fmt.Errorf("deactivate activity: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deactivate activity: %w", err)
		}
		if n == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

func activityFilterClauses(f ActivityFilter) (string, []any) {
	where := []string{"act.ended_at IS NULL"}
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !f.PlatformRef.IsZero() {
		add("act.platform_id = $%d", int64(f.PlatformRef))
	}
	if !f.AuthorityRef.IsZero() {
		add("a.competent_authority_id = $%d", int64(f.AuthorityRef))
	}
	if !f.AreaID.IsZero() {
		add("a.area_id = $%d", string(f.AreaID))
	}
	if f.URL != "" {
		add("act.url = $%d", f.URL)
	}
	if f.RegistrationNumber != "" {
		add("act.registration_number = $%d", f.RegistrationNumber)
	}
	if f.PostalCode != "" {
		add("act.address_postal_code = $%d", f.PostalCode)
	}
	return strings.Join(where, " AND "), args
}

const activityListSelect = `
SELECT act.activity_id, act.activity_name, p.owner_id, p.owner_name,
       a.area_id, ca.owner_id, ca.owner_name,
       act.url, act.registration_number,
       act.address_street, act.address_number, act.address_letter, act.address_addition,
       act.address_postal_code, act.address_city,
       act.number_of_guests, act.country_of_guests,
       act.temporal_start, act.temporal_end, act.created_at
FROM activity act
JOIN platform p ON p.id = act.platform_id
JOIN area a ON a.id = act.area_id
JOIN competent_authority ca ON ca.id = a.competent_authority_id`

func (s *Postgres) ListActivities(ctx context.Context, f ActivityFilter) ([]*models.ActivityListing, error) {
	where, args := activityFilterClauses(f)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY act.created_at DESC, act.id DESC`, activityListSelect, where)
	query, args = appendPaging(query, args, f.Offset, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var listings []*models.ActivityListing
	for rows.Next() {
		var (
			l                             models.ActivityListing
			name, platformName, ownerName sql.NullString
			url, letter, addition         sql.NullString
			guests                        sql.NullInt64
			countries                     pq.StringArray
		)
		err := rows.Scan(
			&l.ActivityID, &name, &l.PlatformID, &platformName,
			&l.AreaID, &l.AuthorityID, &ownerName,
			&url, &l.RegistrationNumber,
			&l.Address.Street, &l.Address.Number, &letter, &addition,
			&l.Address.PostalCode, &l.Address.City,
			&guests, &countries,
			&l.Temporal.Start, &l.Temporal.End, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan activity listing: %w", err)
		}
		l.Name = name.String
		l.PlatformName = platformName.String
		l.AuthorityName = ownerName.String
		l.URL = url.String
		l.Address.Letter = letter.String
		l.Address.Addition = addition.String
		if guests.Valid {
			n := int(guests.Int64)
			l.NumberOfGuests = &n
		}
		l.CountryOfGuests = []string(countries)
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

func (s *Postgres) CountActivities(ctx context.Context, f ActivityFilter) (int, error) {
	where, args := activityFilterClauses(f)
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM activity act
		 JOIN area a ON a.id = act.area_id
		 WHERE %s`, where)
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return count, nil
}

func (s *Postgres) ActivityVersions(ctx context.Context, platformRef domain.RecordID, activityID domain.FunctionalID) ([]*models.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, activity_id, activity_name, platform_id, area_id, url, registration_number,
		        address_street, address_number, address_letter, address_addition,
		        address_postal_code, address_city, number_of_guests, country_of_guests,
		        temporal_start, temporal_end, created_at, ended_at
		 FROM activity WHERE activity_id = $1 AND platform_id = $2
		 ORDER BY created_at ASC, id ASC`, string(activityID), int64(platformRef))
	if err != nil {
		return nil, fmt.Errorf("activity versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.Activity
	for rows.Next() {
		var (
			a                models.Activity
			name, url        sql.NullString
			letter, addition sql.NullString
			guests           sql.NullInt64
			countries        pq.StringArray
			endedAt          sql.NullTime
		)
		err := rows.Scan(
			&a.ID, &a.ActivityID, &name, &a.PlatformRef, &a.AreaRef, &url, &a.RegistrationNumber,
			&a.Address.Street, &a.Address.Number, &letter, &addition,
			&a.Address.PostalCode, &a.Address.City, &guests, &countries,
			&a.Temporal.Start, &a.Temporal.End, &a.CreatedAt, &endedAt)
		if err != nil {
			return nil, fmt.Errorf("scan activity version: %w", err)
		}
		a.Name = name.String
		a.URL = url.String
		a.Address.Letter = letter.String
		a.Address.Addition = addition.String
		if guests.Valid {
			n := int(guests.Int64)
			a.NumberOfGuests = &n
		}
		a.CountryOfGuests = []string(countries)
		a.EndedAt = timePtr(endedAt)
		versions = append(versions, &a)
	}
	return versions, rows.Err()
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func appendPaging(query string, args []any, offset, limit int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func countryArray(countries []string) any {
	if countries == nil {
		return nil
	}
	return pq.Array(countries)
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
