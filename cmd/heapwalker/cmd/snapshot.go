package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heapwalker/internal/repository"
	"github.com/heapwalker/internal/snapshot"
	"github.com/heapwalker/pkg/compression"
	"github.com/heapwalker/pkg/parallel"
)

var (
	// Snapshot command flags
	snapshotName      string
	registerFlag      bool
	registerWorkers   int
	registerTimeout   time.Duration
	importCompression string
)

// snapshotCmd groups the snapshot catalog commands
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage stored snapshots and the snapshot catalog",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotList,
}

var snapshotRegisterCmd = &cobra.Command{
	Use:   "register <key>...",
	Short: "Add stored snapshots to the catalog",
	Long: `Validate stored snapshots and add them to the catalog. Several keys are
decoded concurrently; --name applies only when a single key is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSnapshotRegister,
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <file> [key]",
	Short: "Upload a snapshot file to storage",
	Long: `Decode a local snapshot file, re-encode it and upload it to the configured
storage. The key defaults to the file name; a .gz or .zst suffix on the key
selects the compression unless --compression is given, in which case the key
suffix is rewritten to match. Use --register to add it to the catalog as well.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSnapshotImport,
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <key> <file>",
	Short: "Download a stored snapshot to a local file",
	Args:  cobra.ExactArgs(2),
	RunE:  runSnapshotExport,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotListCmd, snapshotRegisterCmd, snapshotImportCmd, snapshotExportCmd)

	snapshotRegisterCmd.Flags().StringVarP(&snapshotName, "name", "n", "", "Display name (defaults to the snapshot's name)")
	snapshotRegisterCmd.Flags().IntVarP(&registerWorkers, "workers", "w", 0, "Concurrent decoders (defaults to the CPU count, at most 8)")
	snapshotRegisterCmd.Flags().DurationVar(&registerTimeout, "timeout", 0, "Give up on keys not registered within this duration (0 means no limit)")
	snapshotImportCmd.Flags().StringVar(&importCompression, "compression", "", "Compression for the stored copy: none, gzip or zstd")
	snapshotImportCmd.Flags().StringVarP(&snapshotName, "name", "n", "", "Display name when registering")
	snapshotImportCmd.Flags().BoolVar(&registerFlag, "register", false, "Register the uploaded snapshot in the catalog")
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	w, err := openWalker(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer w.Close()

	list, err := w.svc.ListSnapshots(cmd.Context())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tKEY\tVIEW\tOBJECTS\tCLASSES")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", s.UUID, s.Name, s.Key, s.ViewID,
			humanize.Comma(int64(s.ObjectCount)), humanize.Comma(int64(s.ClassCount)))
	}
	return tw.Flush()
}

func runSnapshotRegister(cmd *cobra.Command, args []string) error {
	if snapshotName != "" && len(args) > 1 {
		return fmt.Errorf("--name requires a single key")
	}
	w, err := openWalker(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer w.Close()

	poolCfg := parallel.DefaultPoolConfig()
	if registerWorkers > 0 {
		poolCfg = poolCfg.WithWorkers(registerWorkers)
	}
	if registerTimeout > 0 {
		poolCfg = poolCfg.WithTimeout(registerTimeout)
	}
	results := parallel.Map(cmd.Context(), args, poolCfg, func(ctx context.Context, key string) (*repository.SnapshotRecord, error) {
		return w.svc.RegisterSnapshot(ctx, key, snapshotName)
	})

	var failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "Failed to register %s: %v\n", r.Input, r.Error)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", r.Result.StorageKey, r.Result.UUID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots failed to register", failed, len(args))
	}
	return nil
}

func runSnapshotImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	file := args[0]
	key := filepath.Base(file)
	if len(args) == 2 {
		key = args[1]
	}
	if cmd.Flags().Changed("compression") {
		t, err := compression.ParseType(importCompression)
		if err != nil {
			return err
		}
		key = compression.WithExtension(key, t)
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	h, meta, err := snapshot.Decode(f)
	if err != nil {
		return err
	}

	w, err := openWalker(ctx, registerFlag)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := snapshot.Save(ctx, w.store, key, &snapshot.Snapshot{Key: key, Meta: meta, Heap: h}); err != nil {
		return err
	}
	w.svc.InvalidateSnapshot(key)
	stats := h.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s objects, %s classes)\n", key,
		humanize.Comma(int64(stats.Instances)), humanize.Comma(int64(stats.Classes)))

	if registerFlag {
		rec, err := w.svc.RegisterSnapshot(ctx, key, snapshotName)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", key, rec.UUID)
	}
	return nil
}

func runSnapshotExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w, err := openWalker(ctx, false)
	if err != nil {
		return err
	}
	defer w.Close()

	snap, err := snapshot.Load(ctx, w.store, args[0])
	if err != nil {
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[1], err)
	}
	if err := snapshot.Encode(f, snap.Heap, snap.Meta, compression.TypeFromKey(args[1])); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], args[1])
	return nil
}
