package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/coleifer/scout/internal/blobstore"
	"github.com/coleifer/scout/internal/config"
)

var (
	sweepApply bool
	sweepQuiet bool
)

// sweepCmd implements the offline garbage-collection pass the design
// notes call out: BlobData rows are never deleted when their last
// referring Attachment goes away, by design (dedup across full
// history), so an operator who wants the space back runs this by hand.
var sweepCmd = &cobra.Command{
	Use:   "sweep [database]",
	Short: "Report (and optionally remove) orphaned attachment blobs",
	Long: `sweep scans blobdata for rows no attachment references and reports
them. Pass --apply to actually delete the orphaned rows; without it,
sweep only reports what it found.

Examples:
  scoutd sweep ./scout.db
  scoutd sweep --apply ./scout.db
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().BoolVar(&sweepApply, "apply", false, "delete orphaned blobs instead of only reporting them")
	sweepCmd.Flags().BoolVarP(&sweepQuiet, "quiet", "q", false, "suppress the progress bar")
}

func runSweep(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(resolveConfigFile(), sweepCmd.Flags())
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Database = args[0]
	}
	if cfg.Database == "" {
		return fmt.Errorf("no database path given (positional argument, SCOUT_DATABASE, or config DATABASE key)")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := blobstore.New(db)
	if err != nil {
		return fmt.Errorf("failed to build blob store: %w", err)
	}

	orphans, err := store.ListOrphans()
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		if !sweepQuiet {
			fmt.Println("scoutd: no orphaned blobs found")
		}
		return nil
	}

	var bar *progressbar.ProgressBar
	if !sweepQuiet {
		verb := "Scanning"
		if sweepApply {
			verb = "Deleting"
		}
		bar = progressbar.NewOptions(len(orphans),
			progressbar.OptionSetDescription(verb+" orphaned blobs"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() { fmt.Println() }),
		)
	}

	var totalBytes int64
	for _, o := range orphans {
		totalBytes += o.Length
		if sweepApply {
			if err := store.DeleteOrphan(o.Hash); err != nil {
				return err
			}
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	if !sweepQuiet {
		if sweepApply {
			fmt.Printf("scoutd: deleted %d orphaned blobs (%d bytes reclaimed)\n", len(orphans), totalBytes)
		} else {
			fmt.Printf("scoutd: found %d orphaned blobs (%d bytes); re-run with --apply to delete\n", len(orphans), totalBytes)
		}
	}

	return nil
}
