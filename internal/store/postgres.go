package store

import (
	"context"
	"database/sql"
	"strings"

	"bloodbridge.org/internal/ids"
	"bloodbridge.org/internal/rbac"
)

// parseStoredRole tolerates legacy casing in the role column; unknown values
// pass through and fail the rbac validity check downstream.
func parseStoredRole(s string) rbac.Role {
	if role, ok := rbac.ParseRole(s); ok {
		return role
	}
	return rbac.Role(s)
}

// PGStore implements Store on PostgreSQL through database/sql (pgx stdlib
// driver registered by the caller).
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

// NewPG wraps an open connection pool.
func NewPG(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users() UserStore                 { return &pgUserStore{db: s.db} }
func (s *PGStore) BloodRequests() BloodRequestStore { return &pgRequestStore{db: s.db} }

// User store ---------------------------------------------------------------

type pgUserStore struct{ db *sql.DB }

func (s *pgUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, role, blood_type) values($1,$2,$3,$4,$5)`,
		u.ID, u.Email, u.PasswordHash, string(u.Role), u.BloodType,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrAlreadyExists
	}
	return err
}

func (s *pgUserStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, role, blood_type, created_at from users where id=$1`, id)
	return scanUser(row)
}

func (s *pgUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, role, blood_type, created_at from users where email=$1`, email)
	return scanUser(row)
}

func (s *pgUserStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, email, password_hash, role, blood_type, created_at from users order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*User
	for rows.Next() {
		var (
			u    User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.BloodType, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = parseStoredRole(role)
		res = append(res, &u)
	}
	return res, rows.Err()
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.BloodType, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = parseStoredRole(role)
	return &u, nil
}

// Blood request store ------------------------------------------------------

type pgRequestStore struct{ db *sql.DB }

func (s *pgRequestStore) Create(ctx context.Context, r *BloodRequest) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	if r.Status == "" {
		r.Status = RequestStatusOpen
	}
	_, err := s.db.ExecContext(ctx,
		`insert into blood_requests(id, requester_id, blood_type, units, status) values($1,$2,$3,$4,$5)`,
		r.ID, r.RequesterID, r.BloodType, r.Units, r.Status,
	)
	return err
}

func (s *pgRequestStore) Find(ctx context.Context, id string) (*BloodRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, requester_id, blood_type, units, status, created_at from blood_requests where id=$1`, id)
	var r BloodRequest
	if err := row.Scan(&r.ID, &r.RequesterID, &r.BloodType, &r.Units, &r.Status, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *pgRequestStore) List(ctx context.Context) ([]*BloodRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, requester_id, blood_type, units, status, created_at from blood_requests order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*BloodRequest
	for rows.Next() {
		var r BloodRequest
		if err := rows.Scan(&r.ID, &r.RequesterID, &r.BloodType, &r.Units, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &r)
	}
	return res, rows.Err()
}

func (s *pgRequestStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from blood_requests where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgRequestStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`select status, count(*) from blood_requests group by status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
