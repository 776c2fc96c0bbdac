package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/heapwalker/internal/service"
	"github.com/heapwalker/internal/webui"
)

var (
	// Fields command flags
	moreCount       int
	sortKey         string
	sortOrder       string
	includeInstance bool
	includeStatic   bool
	pageSize        int
	viewID          string
	outputFormat    string
)

// fieldsCmd represents the fields command
var fieldsCmd = &cobra.Command{
	Use:   "fields <snapshot> <object-id>",
	Short: "List the fields of a dynamic object",
	Long: `List the fields of one Ruby dynamic object in a snapshot.

<snapshot> is a path to a snapshot file, a catalog UUID or a storage key.
<object-id> is decimal or 0x-prefixed hexadecimal.

At most one page of fields is printed, followed by a trailer counting the
fields not yet shown. Use --more to load additional pages.`,
	Args: cobra.ExactArgs(2),
	RunE: runFields,
}

func init() {
	rootCmd.AddCommand(fieldsCmd)

	binName := BinName()
	fieldsCmd.Example = `  # Instance and static fields, sorted by name
  ` + binName + ` fields ./worker.json 0x1000

  # Only static fields, largest type name first
  ` + binName + ` fields ./worker.json 4096 --static --sort type --order desc

  # Load two more pages of a wide object
  ` + binName + ` fields ./worker.json.zst 0x7000 --more 2`

	fieldsCmd.Flags().IntVar(&moreCount, "more", 0, "Number of additional pages to load")
	fieldsCmd.Flags().StringVar(&sortKey, "sort", "", "Sort key: name, kind, type, value or id")
	fieldsCmd.Flags().StringVar(&sortOrder, "order", "", "Sort order: asc, desc or none")
	fieldsCmd.Flags().BoolVar(&includeInstance, "instance", false, "Include instance fields; alone, list only instance fields")
	fieldsCmd.Flags().BoolVar(&includeStatic, "static", false, "Include static fields; alone, list only static fields")
	fieldsCmd.Flags().IntVar(&pageSize, "page-size", 0, "Entries per page (defaults to the configured page size)")
	fieldsCmd.Flags().StringVar(&viewID, "view", "", "View ID (defaults to the snapshot's view)")
	fieldsCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text or json")
}

func runFields(cmd *cobra.Command, args []string) error {
	if outputFormat != "text" && outputFormat != "json" {
		return fmt.Errorf("invalid output format: %q (valid: text, json)", outputFormat)
	}
	objectID, err := webui.ParseObjectID(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	w, ref, err := openForRef(ctx, args[0])
	if err != nil {
		return err
	}
	defer w.Close()

	req := service.OpenRequest{
		Snapshot:  ref,
		ObjectID:  objectID,
		ViewID:    viewID,
		SortKey:   sortKey,
		SortOrder: sortOrder,
		PageSize:  pageSize,
	}
	req.IncludeInstance, req.IncludeStatic = filterFlags(cmd)
	page, err := w.svc.OpenFields(ctx, req)
	if err != nil {
		return err
	}
	for i := 0; i < moreCount && page.Remaining > 0; i++ {
		if page, err = w.svc.LoadMore(ctx, page.SessionID); err != nil {
			return err
		}
	}

	if outputFormat == "json" {
		return writePageJSON(cmd.OutOrStdout(), page)
	}
	return writePageText(cmd.OutOrStdout(), page)
}

func writePageJSON(out io.Writer, page *service.Page) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}

func writePageText(out io.Writer, page *service.Page) error {
	fmt.Fprintf(out, "%s in %s (%s fields, %s)\n", page.Object, page.Snapshot, humanize.Comma(int64(page.Total)), page.State)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tTYPE\tVALUE")
	var trailer string
	for _, e := range page.Entries {
		if e.Trailer {
			trailer = e.Text
			continue
		}
		name := e.Name
		if e.Expandable {
			name += " +"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, e.Kind, e.Type, e.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if trailer != "" {
		fmt.Fprintln(out, trailer)
	}
	return nil
}

// filterFlags turns --instance and --static into filter overrides. Only flags
// given on the command line override the configured filter, and a lone
// positive flag selects that kind exclusively.
func filterFlags(cmd *cobra.Command) (instance, static *bool) {
	instanceSet := cmd.Flags().Changed("instance")
	staticSet := cmd.Flags().Changed("static")

	if instanceSet {
		v := includeInstance
		instance = &v
	}
	if staticSet {
		v := includeStatic
		static = &v
	}
	switch {
	case instanceSet && !staticSet && includeInstance:
		static = new(bool)
	case staticSet && !instanceSet && includeStatic:
		instance = new(bool)
	}
	return instance, static
}
