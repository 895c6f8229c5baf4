package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minTokenLength = 16

// readSecret reads one secret from in, without echo when in is a terminal
func readSecret(in io.Reader, r *bufio.Reader) ([]byte, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return term.ReadPassword(int(f.Fd()))
	}
	line, err := r.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func newHashTokenCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-token",
		Short: "Hash an intake token for ENQUEUE_TOKEN_HASH",
		Long: `Reads a token twice from standard input and prints its bcrypt hash.
Set the hash as ENQUEUE_TOKEN_HASH on the server and pass the token to
clients with --token or $` + TokenEnv + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
				return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
			}

			in := cmd.InOrStdin()
			r := bufio.NewReader(in)
			errOut := cmd.ErrOrStderr()

			fmt.Fprint(errOut, "Token: ")
			token, err := readSecret(in, r)
			fmt.Fprintln(errOut)
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}

			fmt.Fprint(errOut, "Confirm Token: ")
			confirm, err := readSecret(in, r)
			fmt.Fprintln(errOut)
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}

			if !bytes.Equal(token, confirm) {
				return errors.New("tokens do not match")
			}
			if len(token) < minTokenLength {
				return fmt.Errorf("token must be at least %d characters", minTokenLength)
			}

			hash, err := bcrypt.GenerateFromPassword(token, cost)
			if err != nil {
				return fmt.Errorf("failed to hash token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
