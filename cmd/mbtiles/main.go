// Command mbtiles is the operator CLI for the MBTiles engine (C2): diff
// two archives into a patch, apply a patch, run the §4.2 validation
// checks, and get/set/list metadata rows — the command-line counterpart
// to core/mbtiles that a real operator needs beyond what the HTTP server
// itself exposes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/terramesh/martin/core/mbtiles"
)

func main() {
	root := &cobra.Command{
		Use:   "mbtiles",
		Short: "Inspect, diff, patch and validate MBTiles archives",
	}

	root.AddCommand(diffCmd(), patchCmd(), validateCmd(), metaCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func diffCmd() *cobra.Command {
	var binDiff bool
	var layout string

	cmd := &cobra.Command{
		Use:   "diff <a.mbtiles> <b.mbtiles> <patch.mbtiles>",
		Short: "Write a patch archive containing every tile that differs between a and b",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := mbtiles.Open(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := mbtiles.Open(args[1])
			if err != nil {
				return err
			}
			defer b.Close()

			l, err := mbtiles.ParseLayout(layout)
			if err != nil {
				return err
			}
			patch, err := mbtiles.Create(args[2], l)
			if err != nil {
				return err
			}
			defer patch.Close()

			return mbtiles.Diff(a, b, patch, mbtiles.DiffOptions{BinDiff: binDiff})
		},
	}

	cmd.Flags().BoolVar(&binDiff, "bin-diff", false, "also compute bsdiff binary patches for gzip-MVT tile pairs")
	cmd.Flags().StringVar(&layout, "layout", "flat-with-hash", "on-disk layout for the patch archive: flat, flat-with-hash, normalized")
	return cmd
}

func patchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch <target.mbtiles> <patch.mbtiles>",
		Short: "Apply a patch archive to target in place, verifying aggregate hashes before and after",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := mbtiles.Open(args[0])
			if err != nil {
				return err
			}
			defer target.Close()

			patch, err := mbtiles.Open(args[1])
			if err != nil {
				return err
			}
			defer patch.Close()

			return mbtiles.ApplyPatch(target, patch)
		},
	}
	return cmd
}

func validateCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "validate <file.mbtiles>",
		Short: "Run a validation check: quick, hash-tiles, agg-hash-check or agg-hash-update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := mbtiles.Open(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			m, err := mbtiles.ParseValidateMode(mode)
			if err != nil {
				return err
			}

			result, err := db.Validate(m)
			if err != nil {
				return err
			}

			fmt.Println(result.Message)
			if !result.OK {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "quick", "quick, hash-tiles, agg-hash-check or agg-hash-update")
	return cmd
}

func metaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "meta", Short: "Get, set or list metadata rows"}

	getCmd := &cobra.Command{
		Use:   "get <file.mbtiles> <name>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := mbtiles.Open(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			md, err := db.GetMetadata()
			if err != nil {
				return err
			}
			fmt.Println(md[args[1]])
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <file.mbtiles> <name> <value>",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := mbtiles.Open(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			return db.PutMetadata(args[1], args[2])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <file.mbtiles>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := mbtiles.Open(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			md, err := db.GetMetadata()
			if err != nil {
				return err
			}
			for k, v := range md {
				fmt.Printf("%s\t%s\n", k, v)
			}
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd, listCmd)
	return cmd
}
