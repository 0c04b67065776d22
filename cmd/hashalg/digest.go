package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/hashalg/algebra"
	"github.com/chazu/hashalg/algebra/notation"
)

func newDigestCmd() *cobra.Command {
	var (
		showFingerprint bool
		canonical       bool
	)
	cmd := &cobra.Command{
		Use:   "digest EXPR...",
		Short: "Print the digest of each expression",
		Long: `Print the 64-bit digest of each expression, one per line.

Expressions use the tree notation:
  empty, "label", 42, [ordered ...], {unordered ...}, Name[children ...]`,
		Example: `  hashalg digest 'Point[1 2]'
  hashalg digest --fingerprint '{"a" "b"}' '{"b" "a"}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, src := range args {
				h, err := notation.Parse(src)
				if err != nil {
					return err
				}
				d, err := algebra.DigestChecked(h)
				if err != nil {
					return err
				}
				if !showFingerprint {
					fmt.Fprintf(out, "%d\t%s\n", d, algebra.Format(h))
					continue
				}
				fp := algebra.Fingerprint(h)
				if canonical {
					fp = algebra.CanonicalFingerprint(h)
				}
				fmt.Fprintf(out, "%d\t%s\t%s\n", d, hex.EncodeToString(fp[:]), algebra.Format(h))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showFingerprint, "fingerprint", false, "also print the structural fingerprint")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "with --fingerprint, ignore the order of unordered children")
	return cmd
}

func newEqualCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "equal A B",
		Short: "Compare two expressions structurally and by digest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := notation.Parse(args[0])
			if err != nil {
				return err
			}
			b, err := notation.Parse(args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "equal:      %v\n", algebra.Equal(a, b))
			fmt.Fprintf(out, "equivalent: %v\n", algebra.Equivalent(a, b))
			fmt.Fprintf(out, "digests:    %d %d\n", algebra.Digest(a), algebra.Digest(b))
			return nil
		},
	}
}
