package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/entrypoint"
)

type createAdminOptions struct {
	commonFlags
	email    string
	name     string
	password string
	phone    string
}

func newCreateAdminCommand() *cobra.Command {
	var opts createAdminOptions
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an administrator account directly in the database.

Registration over HTTP accepts any role, so this command is mainly useful to
bootstrap a fresh install. The password is prompted for when --password is
omitted and stdin is a terminal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.email, "email", "", "Administrator email (required)")
	cmd.Flags().StringVar(&opts.name, "name", "Administrator", "Display name")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&opts.phone, "phone", "", "Phone number")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (o *createAdminOptions) run(cmd *cobra.Command) error {
	password := o.password
	if password == "" {
		var err error
		if password, err = readPassword(cmd); err != nil {
			return err
		}
	}

	app, err := entrypoint.NewApp(o.config())
	if err != nil {
		return err
	}
	defer app.Close()

	user, err := app.Auth.Register(cmd.Context(), auth.RegisterInput{
		Email:    o.email,
		Name:     o.name,
		Password: password,
		Phone:    o.phone,
		Role:     entities.UserRoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created administrator %s <%s> with ID %s\n", user.Name, user.Email, user.UserID)
	return nil
}

// readPassword asks for a password twice without echoing it.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}

	out := cmd.ErrOrStderr()
	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimSpace(string(first))
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	if password != strings.TrimSpace(string(second)) {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}
