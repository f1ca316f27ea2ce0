package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/fhecity/internal/fhe"
)

func newDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt [ciphertext-json]",
		Short: "Decrypt a ciphertext you are allowed to read",
		Long: `Decrypt a ciphertext through the gateway.

The ciphertext is given as JSON, either as the argument or on stdin when the
argument is omitted or "-". Output of other commands with --output json can
be piped in directly when it carries a "ciphertext" field.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			if len(args) == 0 || args[0] == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				raw = data
			} else {
				raw = []byte(args[0])
			}

			ct, err := parseCiphertext(raw)
			if err != nil {
				return err
			}

			value, err := decryptValue(ct)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(Decrypted{Kind: ct.Kind.String(), Value: value})
			return nil
		},
	}
}

// parseCiphertext accepts a bare ciphertext or an object wrapping one
func parseCiphertext(raw []byte) (fhe.Ciphertext, error) {
	var wrapped struct {
		Ciphertext *fhe.Ciphertext `json:"ciphertext"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("invalid ciphertext JSON: %w", err)
	}
	if wrapped.Ciphertext != nil {
		return *wrapped.Ciphertext, nil
	}

	var ct fhe.Ciphertext
	if err := json.Unmarshal(raw, &ct); err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("invalid ciphertext JSON: %w", err)
	}
	if ct.IsZero() {
		return fhe.Ciphertext{}, fmt.Errorf("ciphertext has no payload")
	}
	return ct, nil
}
