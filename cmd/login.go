package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gitstore/internal/model"
)

// NewCmdLogin creates the login command.
func NewCmdLogin(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "login [github|gitlab]",
		Short: "Sign in to a provider via the OAuth device flow",
		Long: `Starts the OAuth device flow: prints a one-time code, waits for you to
enter it in your browser, then stores the resulting token locally.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, args, opts)
		},
	}
}

func runLogin(cmd *cobra.Command, args []string, opts *Options) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	provider, err := providerArg(args, opts)
	if err != nil {
		return err
	}

	flow, err := rt.deviceFlow(provider)
	if err != nil {
		return err
	}

	start, err := flow.Start(ctx)
	if err != nil {
		return fmt.Errorf("could not start device flow: %w", err)
	}

	fmt.Printf("Open %s and enter the code:\n\n", start.VerificationURI)
	fmt.Printf("    %s\n\n", color.New(color.Bold).Sprint(start.UserCode))
	fmt.Println("Waiting for authorization...")

	tok, err := flow.Authorize(ctx, start)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	if err := rt.session(provider).Save(tok); err != nil {
		return fmt.Errorf("could not store token: %w", err)
	}

	fmt.Printf("Signed in to %s.\n", provider.DisplayName())
	return nil
}

// NewCmdLogout creates the logout command.
func NewCmdLogout(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout [github|gitlab]",
		Short: "Sign out and discard the stored token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, args, opts)
		},
	}
}

func runLogout(cmd *cobra.Command, args []string, opts *Options) error {
	rt, err := newRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.close()

	provider, err := providerArg(args, opts)
	if err != nil {
		return err
	}

	session := rt.session(provider)
	if !session.Authenticated() {
		fmt.Printf("Not signed in to %s.\n", provider.DisplayName())
		return nil
	}
	if err := session.Clear(); err != nil {
		return err
	}

	fmt.Printf("Signed out of %s.\n", provider.DisplayName())
	return nil
}

// providerArg resolves the optional positional provider, falling back
// to the --provider flag.
func providerArg(args []string, opts *Options) (model.Provider, error) {
	if len(args) == 1 {
		return model.ParseProvider(args[0])
	}
	return model.ParseProvider(opts.Provider)
}
