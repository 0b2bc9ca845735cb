package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"coursectl/internal/session"
	"coursectl/internal/shared"
)

// AuthLogin exchanges credentials for a session token and persists it to
// every credential location.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	email := cmd.String("email")
	r.logger.Info("logging in", "email", email)

	if err := r.session.Login(ctx, email, cmd.String("password")); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	current := r.session.Current()
	return r.writePlain("✓ Logged in as %s <%s>\n", current.Name, current.Email)
}

// AuthRegister creates an account. Some backends return a token right away;
// otherwise the account needs verification before login.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	if err := r.session.Register(ctx, cmd.String("name"), cmd.String("email"), cmd.String("password")); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if r.session.State() == session.StateAuthenticated {
		current := r.session.Current()
		return r.writePlain("✓ Account created, logged in as %s <%s>\n", current.Name, current.Email)
	}
	return r.writePlain("✓ Account created, run 'coursectl auth login' to sign in\n")
}

// AuthLogout notifies the backend best-effort and clears every credential
// location. Succeeds even when the backend is unreachable.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	// Restore the stored token first so the server call carries it.
	r.session.Initialize(ctx)
	r.session.Logout(ctx, session.LogoutOpts{})

	return r.writePlain("✓ Logged out\n")
}

// AuthStatus verifies the stored credential against the backend and prints
// the resulting session state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	state, err := r.restore(ctx)
	if err != nil {
		return err
	}

	if state != session.StateAuthenticated {
		return r.writePlain("✗ Not authenticated\n")
	}

	current := r.session.Current()
	r.writePlain("✓ Authenticated\n")
	r.writePlain("Name:  %s\n", current.Name)
	r.writePlain("Email: %s\n", current.Email)
	if current.Role != "" {
		r.writePlain("Role:  %s\n", current.Role)
	}
	return nil
}
