package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/graphcal/internal/identity"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign a user in and store their token",
		Long: `Sign in with the OAuth authorization code flow (PKCE) and store the
resulting token under --user for later commands and the MCP server.

Open the printed URL, sign in with the Microsoft account and paste either the
"code" parameter or the whole URL you were redirected to.

The app registration is read from OAUTH_APP_ID, OAUTH_APP_SECRET,
OAUTH_TENANT (default: common) or OAUTH_AUTHORITY, OAUTH_REDIRECT_URI and
OAUTH_SCOPES.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	return cmd
}

func runLogin(ctx context.Context, in io.Reader, out io.Writer) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	env, err := newEnvironment(environmentOptions{})
	if err != nil {
		return err
	}
	defer env.close()

	verifier := identity.NewVerifier()
	state := identity.NewVerifier()

	fmt.Fprintf(out, "Visit this URL in your browser to sign in as %s:\n\n  %s\n\n", user, env.identity.AuthCodeURL(state, verifier))
	fmt.Fprint(out, "Paste the authorization code or the redirect URL: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	code, err := identity.ExtractCode(line, state)
	if err != nil {
		return err
	}

	if err := env.identity.ExchangeCode(ctx, user, code, verifier); err != nil {
		return fmt.Errorf("failed to sign in %s: %w", user, err)
	}

	fmt.Fprintf(out, "\nSigned in as %s.\n", user)
	return nil
}
