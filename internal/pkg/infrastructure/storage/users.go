package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/jackc/pgx/v5"
)

func (s *Storage) AddUser(ctx context.Context, user types.User) error {
	args := pgx.NamedArgs{
		"user_id":       user.ID,
		"username":      strings.ToLower(user.Username),
		"password_hash": user.PasswordHash,
		"role":          string(user.Role),
		"active":        user.Active,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, username, password_hash, role, active)
		VALUES (@user_id, @username, @password_hash, @role, @active)
	`, args)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, user types.User) error {
	args := pgx.NamedArgs{
		"user_id":       user.ID,
		"username":      strings.ToLower(user.Username),
		"password_hash": user.PasswordHash,
		"role":          string(user.Role),
		"active":        user.Active,
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET username = @username, password_hash = @password_hash, role = @role,
		    active = @active, modified_on = CURRENT_TIMESTAMP
		WHERE user_id = @user_id AND deleted = FALSE
	`, args)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET deleted = TRUE, deleted_on = CURRENT_TIMESTAMP, active = FALSE
		WHERE user_id = $1 AND deleted = FALSE
	`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) GetUser(ctx context.Context, conditions ...ConditionFunc) (types.User, error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	query := fmt.Sprintf(`
		SELECT user_id, username, password_hash, role, active, created_on
		FROM users
		WHERE %s AND deleted = FALSE
	`, condition.Where(""))

	var user types.User
	var role string

	err := s.pool.QueryRow(ctx, query, args).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.User{}, ErrNoRows
		}
		return types.User{}, err
	}

	user.Role = types.Role(role)

	return user, nil
}

func (s *Storage) QueryUsers(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.User], error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	offsetLimit, offset, limit := condition.OffsetLimit(100)
	args["_offset"] = offset
	args["_limit"] = limit

	query := fmt.Sprintf(`
		SELECT user_id, username, password_hash, role, active, created_on, count(*) OVER () AS total
		FROM users
		WHERE %s AND deleted = FALSE
		%s%s
	`, condition.Where(""), condition.OrderBy("username"), offsetLimit)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return types.Collection[types.User]{}, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	var total uint64

	for rows.Next() {
		var user types.User
		var role string

		err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.Active, &user.CreatedAt, &total)
		if err != nil {
			return types.Collection[types.User]{}, err
		}

		user.Role = types.Role(role)
		users = append(users, user)
	}

	return types.Collection[types.User]{
		Data:       users,
		Count:      uint64(len(users)),
		Offset:     uint64(offset),
		Limit:      uint64(limit),
		TotalCount: total,
	}, nil
}
