package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallbiznis/valora-identity/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository         = (*PostgresUserRepo)(nil)
	_ OrganisationRepository = (*PostgresOrganisationRepo)(nil)
	_ Pinger                 = (*PostgresUserRepo)(nil)
)

const (
	userColumns = `user_id, first_name, last_name, email, phone, password_hash, is_active, is_staff, is_superuser, created_at, updated_at`
	orgColumns  = `org_id, name, description, owner_id, created_at`
)

const insertUserSQL = `INSERT INTO users (user_id, first_name, last_name, email, phone, password_hash, is_active, is_staff, is_superuser)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at`

const insertOrgSQL = `INSERT INTO organisations (org_id, name, description, owner_id)
VALUES ($1, $2, $3, $4)
RETURNING created_at`

const insertMemberSQL = `INSERT INTO organisation_members (org_id, user_id) VALUES ($1, $2)`

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

func (r *PostgresUserRepo) CreateWithOrganisation(ctx context.Context, user domain.User, org domain.Organisation) (domain.User, domain.Organisation, error) {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertUserSQL,
			user.UserID,
			user.FirstName,
			user.LastName,
			user.Email,
			nullableString(user.Phone),
			user.PasswordHash,
			user.IsActive,
			user.IsStaff,
			user.IsSuperuser,
		).Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
			return fmt.Errorf("insert user: %w", mapPostgresError(err))
		}

		if err := tx.QueryRow(ctx, insertOrgSQL, org.OrgID, org.Name, org.Description, org.OwnerID).Scan(&org.CreatedAt); err != nil {
			return fmt.Errorf("insert default organisation: %w", mapPostgresError(err))
		}

		if _, err := tx.Exec(ctx, insertMemberSQL, org.OrgID, user.UserID); err != nil {
			return fmt.Errorf("insert owner membership: %w", mapPostgresError(err))
		}
		return nil
	})
	if err != nil {
		return domain.User{}, domain.Organisation{}, fmt.Errorf("create user: %w", err)
	}
	return user, org, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// Ping checks database connectivity.
func (r *PostgresUserRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// PostgresOrganisationRepo implements OrganisationRepository.
type PostgresOrganisationRepo struct {
	db *pgxpool.Pool
}

func NewPostgresOrganisationRepo(pool *pgxpool.Pool) *PostgresOrganisationRepo {
	return &PostgresOrganisationRepo{db: pool}
}

func (r *PostgresOrganisationRepo) Create(ctx context.Context, org domain.Organisation, addOwner bool) (domain.Organisation, error) {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		// two creates with the same name serialize on this lock until commit
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('organisation_name:' || $1))`, org.Name); err != nil {
			return fmt.Errorf("lock organisation name: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organisations WHERE name = $1)`, org.Name).Scan(&exists); err != nil {
			return fmt.Errorf("check organisation name: %w", err)
		}
		if exists {
			return ErrDuplicateOrganisationName
		}

		if err := tx.QueryRow(ctx, insertOrgSQL, org.OrgID, org.Name, org.Description, org.OwnerID).Scan(&org.CreatedAt); err != nil {
			return fmt.Errorf("insert organisation: %w", mapPostgresError(err))
		}

		if addOwner {
			if _, err := tx.Exec(ctx, insertMemberSQL, org.OrgID, org.OwnerID); err != nil {
				return fmt.Errorf("insert owner membership: %w", mapPostgresError(err))
			}
		}
		return nil
	})
	if err != nil {
		return domain.Organisation{}, fmt.Errorf("create organisation: %w", err)
	}
	return org, nil
}

func (r *PostgresOrganisationRepo) GetByID(ctx context.Context, orgID uuid.UUID) (domain.Organisation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orgColumns+` FROM organisations WHERE org_id = $1`, orgID)
	org, err := scanOrganisation(row)
	if err != nil {
		return domain.Organisation{}, fmt.Errorf("get organisation: %w", err)
	}
	return org, nil
}

// The membership primary key is (org_id, user_id), so the join yields at most
// one row per organisation and no DISTINCT is needed.
const listOrganisationsForUserSQL = `SELECT o.org_id, o.name, o.description, o.owner_id, o.created_at
FROM organisations o
LEFT JOIN organisation_members m ON m.org_id = o.org_id AND m.user_id = $1
WHERE o.owner_id = $1 OR m.user_id IS NOT NULL
ORDER BY o.created_at, o.org_id`

func (r *PostgresOrganisationRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Organisation, error) {
	rows, err := r.db.Query(ctx, listOrganisationsForUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list organisations: %w", err)
	}
	defer rows.Close()

	orgs := make([]domain.Organisation, 0)
	for rows.Next() {
		org, err := scanOrganisation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organisation: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organisations: %w", err)
	}
	return orgs, nil
}

func (r *PostgresOrganisationRepo) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, insertMemberSQL, orgID, userID); err != nil {
		return fmt.Errorf("add member: %w", mapPostgresError(err))
	}
	return nil
}

func (r *PostgresOrganisationRepo) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var member bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM organisation_members WHERE org_id = $1 AND user_id = $2)`,
		orgID, userID,
	).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return member, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user  domain.User
		phone *string
	)
	err := row.Scan(
		&user.UserID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&phone,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsStaff,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	if phone != nil {
		user.Phone = *phone
	}
	return user, nil
}

func scanOrganisation(row pgx.Row) (domain.Organisation, error) {
	var org domain.Organisation
	err := row.Scan(&org.OrgID, &org.Name, &org.Description, &org.OwnerID, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Organisation{}, ErrOrganisationNotFound
		}
		return domain.Organisation{}, err
	}
	return org, nil
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
