package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrUserExists is returned when creating a user whose email is taken
var ErrUserExists = errors.New("user already exists")

const userColumns = `id, email, name, tone_profile, google_access_token, google_refresh_token, token_expires_at, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user. A zero ID is replaced by a fresh UUID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := user.ToneProfile.Validate(); err != nil {
		return err
	}
	profileJSON, err := json.Marshal(user.ToneProfile)
	if err != nil {
		return fmt.Errorf("failed to marshal tone profile: %w", err)
	}

	query := `
		INSERT INTO users (id, email, name, tone_profile, google_access_token, google_refresh_token, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	err = r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		profileJSON,
		user.GoogleAccessToken,
		user.GoogleRefreshToken,
		user.TokenExpiresAt,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("failed to create user %s: %w", user.Email, ErrUserExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// UpdateToneProfile replaces the user's baseline tone weights
func (r *UserRepository) UpdateToneProfile(ctx context.Context, id uuid.UUID, profile models.ToneProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal tone profile: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET tone_profile = $2, updated_at = $3 WHERE id = $1
	`, id, profileJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update tone profile: %w", err)
	}
	return expectOneRow(result, "user")
}

// UpdateMailCredential stores a (possibly refreshed) Google token pair.
// An empty refresh token keeps the stored one.
func (r *UserRepository) UpdateMailCredential(ctx context.Context, id uuid.UUID, cred models.MailCredential) error {
	var expiresAt *time.Time
	if !cred.ExpiresAt.IsZero() {
		t := cred.ExpiresAt.UTC()
		expiresAt = &t
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			google_access_token = $2,
			google_refresh_token = COALESCE(NULLIF($3, ''), google_refresh_token),
			token_expires_at = $4,
			updated_at = $5
		WHERE id = $1
	`, id, cred.AccessToken, cred.RefreshToken, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update mail credential: %w", err)
	}
	return expectOneRow(result, "user")
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var name, accessToken, refreshToken sql.NullString
	var expiresAt sql.NullTime
	var profileJSON []byte

	err := row.Scan(
		&user.ID,
		&user.Email,
		&name,
		&profileJSON,
		&accessToken,
		&refreshToken,
		&expiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.ToneProfile = models.DefaultToneProfile()
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &user.ToneProfile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tone profile: %w", err)
		}
	}
	if name.Valid {
		user.Name = &name.String
	}
	if accessToken.Valid {
		user.GoogleAccessToken = &accessToken.String
	}
	if refreshToken.Valid {
		user.GoogleRefreshToken = &refreshToken.String
	}
	if expiresAt.Valid {
		user.TokenExpiresAt = &expiresAt.Time
	}

	return user, nil
}

// expectOneRow turns a zero-row update into a wrapped sql.ErrNoRows
func expectOneRow(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", entity, sql.ErrNoRows)
	}
	return nil
}
