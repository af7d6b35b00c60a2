package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pressroom/pressroom/internal/app"
	"github.com/pressroom/pressroom/internal/auth"
	"github.com/pressroom/pressroom/internal/platform/db"
	"github.com/pressroom/pressroom/internal/shared"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage site accounts.",
}

var (
	bootstrapAdminName           string
	bootstrapAdminEmail          string
	bootstrapAdminPassword       string
	bootstrapAdminPasswordStdin  bool
	bootstrapAdminGeneratePasswd bool
)

var bootstrapAdminCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Create an account holding the Admin role.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.ToLower(strings.TrimSpace(bootstrapAdminEmail))
		if email == "" {
			return errors.New("--email is required")
		}
		password, generated, err := resolveBootstrapPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}

		input := auth.RegisterInput{Name: bootstrapAdminName, Email: email, Password: password}
		if err := shared.Validate(shared.NewValidator(), input); err != nil {
			return err
		}

		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2})
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := auth.NewService(auth.NewRepository(pool), app.NewLogger(cfg))
		user, err := svc.BootstrapAdmin(ctx, input)
		if err != nil {
			if errors.Is(err, shared.ErrEmailTaken) {
				return fmt.Errorf("user already exists: %s", email)
			}
			return err
		}

		cmd.Printf("created admin user: %s (%s)\n", user.Email, user.ID)
		if generated {
			cmd.Printf("generated password: %s\n", password)
		}
		return nil
	},
}

func init() {
	bootstrapAdminCmd.Flags().StringVar(&bootstrapAdminName, "name", "Administrator", "display name")
	bootstrapAdminCmd.Flags().StringVar(&bootstrapAdminEmail, "email", "", "account email")
	bootstrapAdminCmd.Flags().StringVar(&bootstrapAdminPassword, "password", "", "account password")
	bootstrapAdminCmd.Flags().BoolVar(&bootstrapAdminPasswordStdin, "password-stdin", false, "read the password from stdin")
	bootstrapAdminCmd.Flags().BoolVar(&bootstrapAdminGeneratePasswd, "generate-password", false, "generate and print a random password")
	usersCmd.AddCommand(bootstrapAdminCmd)
}

func resolveBootstrapPassword(stdin io.Reader) (string, bool, error) {
	set := 0
	for _, on := range []bool{bootstrapAdminPassword != "", bootstrapAdminPasswordStdin, bootstrapAdminGeneratePasswd} {
		if on {
			set++
		}
	}
	if set > 1 {
		return "", false, errors.New("--password, --password-stdin and --generate-password are mutually exclusive")
	}

	switch {
	case bootstrapAdminPasswordStdin:
		scanner := bufio.NewScanner(stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", false, err
			}
			return "", false, errors.New("password is empty")
		}
		password := strings.TrimRight(scanner.Text(), "\r\n")
		if password == "" {
			return "", false, errors.New("password is empty")
		}
		return password, false, nil
	case bootstrapAdminGeneratePasswd:
		password, err := generatePassword(24)
		if err != nil {
			return "", false, err
		}
		return password, true, nil
	case bootstrapAdminPassword != "":
		return bootstrapAdminPassword, false, nil
	}
	return "", false, errors.New("no password provided (use --password, --password-stdin, or --generate-password)")
}

func generatePassword(length int) (string, error) {
	if length < 16 {
		return "", errors.New("password length too short")
	}
	const alphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const alphabetLen = byte(len(alphabet))
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = alphabet[b[i]%alphabetLen]
	}
	return string(b), nil
}
