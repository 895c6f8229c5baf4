package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"focus-thumbnailer/internal/client"
	"focus-thumbnailer/internal/startup"

	"github.com/spf13/cobra"
)

// TokenEnv supplies --token when the flag is not given
const TokenEnv = "THUMBCTL_TOKEN"

// options holds the persistent flags shared by every subcommand
type options struct {
	Server string
	Token  string
}

func (o *options) client() *client.Client {
	token := o.Token
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	return client.New(client.Config{BaseURL: o.Server, Token: token})
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "thumbctl",
		Short:         "Submit and inspect focus thumbnailer jobs",
		Version:       startup.GetBuildInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.PersistentFlags().StringVar(&opts.Server, "server", client.DefaultBaseURL, "Thumbnailer base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "Bearer token for /enqueue (default: $"+TokenEnv+")")

	cmd.AddCommand(newEnqueueCmd(opts))
	cmd.AddCommand(newHealthCmd(opts))
	cmd.AddCommand(newHashTokenCmd())

	return cmd
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
