package commands

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/services/auth"
	"github.com/RedRangerWentWild/IITR1/internal/services/drafting"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewUserCmd creates the user management command
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long:  "Create users, issue session tokens and adjust tone profiles",
	}
	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserShowCmd())
	cmd.AddCommand(newUserTokenCmd())
	cmd.AddCommand(newUserToneProfileCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with the default tone profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			user := &models.User{Email: email, ToneProfile: models.DefaultToneProfile()}
			if name = strings.TrimSpace(name); name != "" {
				user.Name = &name
			}
			if err := database.NewUserRepository(db).Create(cmd.Context(), user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	return cmd
}

// userView is the printable form of a user; credentials are reduced to their status
type userView struct {
	ID          string             `yaml:"id"`
	Email       string             `yaml:"email"`
	Name        string             `yaml:"name,omitempty"`
	ToneProfile models.ToneProfile `yaml:"tone_profile"`
	Dominant    models.Tone        `yaml:"dominant_tone"`
	MailLinked  bool               `yaml:"mail_linked"`
	MailValid   bool               `yaml:"mail_credential_valid"`
	CreatedAt   time.Time          `yaml:"created_at"`
}

func newUserShowCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			user, err := lookupUser(cmd, database.NewUserRepository(db), email)
			if err != nil {
				return err
			}
			view := userView{
				ID:          user.ID.String(),
				Email:       user.Email,
				ToneProfile: user.ToneProfile,
				Dominant:    user.ToneProfile.Dominant(),
				MailLinked:  user.HasMailCredential(),
				MailValid:   drafting.CredentialStatus(user, time.Now()).IsValid,
				CreatedAt:   user.CreatedAt,
			}
			if user.Name != nil {
				view.Name = *user.Name
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(view); err != nil {
				return fmt.Errorf("encode user: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	return cmd
}

func newUserTokenCmd() *cobra.Command {
	var email string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			user, err := lookupUser(cmd, database.NewUserRepository(db), email)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "Token lifetime")
	return cmd
}

func newUserToneProfileCmd() *cobra.Command {
	var email string
	var casual, neutral, formal int
	cmd := &cobra.Command{
		Use:   "tone-profile",
		Short: "Set a user's baseline tone weights",
		Long:  "Set relative casual/neutral/formal weights. Only their relative size matters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			users := database.NewUserRepository(db)
			user, err := lookupUser(cmd, users, email)
			if err != nil {
				return err
			}
			profile := models.ToneProfile{Casual: casual, Neutral: neutral, Formal: formal}
			if err := users.UpdateToneProfile(cmd.Context(), user.ID, profile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tone profile for %s updated; dominant tone is %s.\n", user.Email, profile.Dominant())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().IntVar(&casual, "casual", 0, "Casual weight")
	cmd.Flags().IntVar(&neutral, "neutral", 50, "Neutral weight")
	cmd.Flags().IntVar(&formal, "formal", 50, "Formal weight")
	return cmd
}

func lookupUser(cmd *cobra.Command, users *database.UserRepository, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("--email is required")
	}
	user, err := users.GetByEmail(cmd.Context(), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no user with email %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
