package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"quotewatch/internal/keyring"
)

// passwordReader abstracts hidden terminal input for testing.
type passwordReader interface {
	ReadPassword() (string, error)
	IsTerminal() bool
}

// terminalReader reads hidden input with golang.org/x/term.
type terminalReader struct {
	fd int
}

func newTerminalReader(fd int) *terminalReader {
	return &terminalReader{fd: fd}
}

func (r *terminalReader) ReadPassword() (string, error) {
	b, err := term.ReadPassword(r.fd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *terminalReader) IsTerminal() bool {
	return term.IsTerminal(r.fd)
}

type credentialsOptions struct {
	store          keyring.Store
	passwordReader passwordReader
}

var credentialLabels = map[string]string{
	keyring.KeyAppKey:      "App key",
	keyring.KeyAppSecret:   "App secret",
	keyring.KeyAccessToken: "Access token",
}

func newCredentialsCmd(opts credentialsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage Longport credentials in the system keyring",
		Long: `Store, inspect or remove the Longport OpenAPI credentials.

LONGPORT_APP_KEY, LONGPORT_APP_SECRET and LONGPORT_ACCESS_TOKEN take
precedence over the keyring when set.`,
	}
	cmd.AddCommand(
		newCredentialsSetCmd(opts),
		newCredentialsStatusCmd(opts),
		newCredentialsDeleteCmd(opts),
	)
	return cmd
}

func newCredentialsSetCmd(opts credentialsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Prompt for the credentials and store them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.passwordReader.IsTerminal() {
				return errors.New("credentials set requires an interactive terminal")
			}
			values := make(map[string]string, len(keyring.Keys))
			for _, key := range keyring.Keys {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ", credentialLabels[key])
				v, err := opts.passwordReader.ReadPassword()
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", credentialLabels[key], err)
				}
				if v == "" {
					return fmt.Errorf("%s cannot be empty", credentialLabels[key])
				}
				values[key] = v
			}
			for _, key := range keyring.Keys {
				if err := opts.store.Set(keyring.ServiceName, key, values[key]); err != nil {
					return fmt.Errorf("failed to store %s in keyring: %w", credentialLabels[key], err)
				}
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved.")
			return nil
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func newCredentialsStatusCmd(opts credentialsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which credentials are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range keyring.Keys {
				state := "set"
				_, err := opts.store.Get(keyring.ServiceName, key)
				switch {
				case errors.Is(err, keyring.ErrNotFound):
					state = "not set"
				case err != nil:
					return fmt.Errorf("failed to read %s: %w", credentialLabels[key], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-13s %s\n", credentialLabels[key]+":", state)
			}
			return nil
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func newCredentialsDeleteCmd(opts credentialsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, key := range keyring.Keys {
				if err := opts.store.Delete(keyring.ServiceName, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
					errs = append(errs, fmt.Errorf("%s: %w", credentialLabels[key], err))
				}
			}
			if err := errors.Join(errs...); err != nil {
				return fmt.Errorf("failed to delete credentials: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed.")
			return nil
		},
	}
	cmd.SilenceUsage = true
	return cmd
}
