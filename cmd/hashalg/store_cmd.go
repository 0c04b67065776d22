package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chazu/hashalg/algebra/notation"
	"github.com/chazu/hashalg/store"
)

func newStoreCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the persistent digest store",
	}

	// withStore opens the store for the duration of fn.
	withStore := func(cmd *cobra.Command, fn func(*store.Store) error) error {
		s, err := store.Open(cmd.Context(), opts.resolveStorePath())
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(s)
	}

	put := &cobra.Command{
		Use:   "put NAME EXPR",
		Short: "Store an expression under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := notation.Parse(args[1])
			if err != nil {
				return err
			}
			return withStore(cmd, func(s *store.Store) error {
				rec, err := s.Put(cmd.Context(), args[0], h)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", rec.Name, rec.Digest)
				return nil
			})
		},
	}

	get := &cobra.Command{
		Use:   "get NAME",
		Short: "Show a stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *store.Store) error {
				rec, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "name:        %s\n", rec.Name)
				fmt.Fprintf(out, "id:          %s\n", rec.ID)
				fmt.Fprintf(out, "expr:        %s\n", rec.Expr)
				fmt.Fprintf(out, "digest:      %d\n", rec.Digest)
				fmt.Fprintf(out, "fingerprint: %s\n", hex.EncodeToString(rec.Fingerprint[:]))
				fmt.Fprintf(out, "created:     %s\n", time.Unix(0, rec.CreatedAt).UTC().Format(time.RFC3339))
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *store.Store) error {
				recs, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, rec := range recs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", rec.Name, rec.Digest, rec.Expr)
				}
				return nil
			})
		},
	}

	verify := &cobra.Command{
		Use:   "verify [NAME...]",
		Short: "Recompute stored digests and report drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *store.Store) error {
				names := args
				if len(names) == 0 {
					recs, err := s.List(cmd.Context())
					if err != nil {
						return err
					}
					for _, rec := range recs {
						names = append(names, rec.Name)
					}
				}
				ok := color.New(color.FgGreen).SprintFunc()
				bad := color.New(color.FgRed, color.Bold).SprintFunc()
				drifted := 0
				for _, name := range names {
					err := s.Verify(cmd.Context(), name)
					switch {
					case err == nil:
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ok("OK"), name)
					case errors.Is(err, store.ErrDigestMismatch):
						drifted++
						fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", bad("DRIFT"), err)
					default:
						return err
					}
				}
				if drifted > 0 {
					return fmt.Errorf("%d records drifted", drifted)
				}
				return nil
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *store.Store) error {
				return s.Delete(cmd.Context(), args[0])
			})
		},
	}

	export := &cobra.Command{
		Use:   "export FILE",
		Short: "Write every record to a CBOR snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *store.Store) error {
				data, err := s.Export(cmd.Context())
				if err != nil {
					return err
				}
				if err := os.WriteFile(args[0], data, 0o644); err != nil {
					return fmt.Errorf("writing snapshot: %w", err)
				}
				log.Infof("exported %d bytes to %s", len(data), args[0])
				return nil
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Load records from a CBOR snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading snapshot: %w", err)
			}
			return withStore(cmd, func(s *store.Store) error {
				n, err := s.Import(cmd.Context(), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(put, get, list, verify, rm, export, imp)
	return cmd
}
