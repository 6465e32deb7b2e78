package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/turtacn/credence/internal/infrastructure/crypto"
)

func newDigestCmd() *cobra.Command {
	params := crypto.DefaultDigestParams()
	var verify string

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Compute or verify a password digest",
		Long: `digest reads a password from the terminal, or from stdin when it is not a
terminal, and prints its argon2id digest. With --verify it checks the password
against an existing digest instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if verify != "" {
				d, err := crypto.ParseDigest(verify)
				if err != nil {
					return err
				}
				if !d.Correct(password) {
					return errors.New("password does not match digest")
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return err
			}

			if err := params.Validate(); err != nil {
				return err
			}
			d, err := crypto.NewDigestWithParams(password, params)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), d.String())
			return err
		},
	}

	f := cmd.Flags()
	f.Uint32Var(&params.Memory, "memory", params.Memory, "argon2id memory in KiB")
	f.Uint32Var(&params.Iterations, "iterations", params.Iterations, "argon2id iterations")
	f.Uint8Var(&params.Parallelism, "parallelism", params.Parallelism, "argon2id parallelism")
	f.StringVar(&verify, "verify", "", "check the password against this digest")
	return cmd
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		if len(b) == 0 {
			return "", errors.New("empty password")
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
