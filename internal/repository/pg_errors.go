package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names from migrations/1_initial_schema.sql.
const (
	constraintUserEmail     = "users_email_key"
	constraintMemberPK      = "organisation_members_pkey"
	constraintMemberOrgFK   = "organisation_members_org_id_fkey"
	constraintMemberUserFK  = "organisation_members_user_id_fkey"
	constraintOrgOwnerFK    = "organisations_owner_id_fkey"
	constraintUserPhoneRule = "users_phone_digits"
)

// mapPostgresError maps constraint violations onto repository sentinels.
// Anything unknown is returned as is.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		switch pgErr.ConstraintName {
		case constraintUserEmail:
			return ErrDuplicateEmail
		case constraintMemberPK:
			return ErrAlreadyMember
		}
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		switch pgErr.ConstraintName {
		case constraintMemberOrgFK:
			return ErrOrganisationNotFound
		case constraintMemberUserFK, constraintOrgOwnerFK:
			return ErrUserNotFound
		}
		return fmt.Errorf("foreign key violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)
	}

	return fmt.Errorf("postgres error [%s]: %s: %w", pgErr.Code, pgErr.Message, err)
}
