package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"clinic-booking/internal/auth"

	"github.com/spf13/cobra"
)

// readPassword takes the password from the flag, or from the first line of stdin when the flag is
// not set, so it does not have to show up in the shell history.
func readPassword(pass string) (string, error) {
	if pass != "" {
		return pass, nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("no password was given")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("no password was given")
	}
	return line, nil
}

func main() {
	var pass string
	rootCmd := &cobra.Command{
		Use:          "passgen",
		Short:        "Print the bcrypt hash of a user password",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, err := readPassword(pass)
			if err != nil {
				return err
			}
			passHash, err := auth.EncryptPassword(plain)
			if err != nil {
				return err
			}
			fmt.Println(passHash)
			return nil
		},
	}
	rootCmd.Flags().StringVar(&pass, "pass", "", "Password to encrypt")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
