package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sparklens/internal/store"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List ingested log files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		files, err := st.ListFiles(ctx)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No files ingested yet. Run 'sparklens parse <file>' first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFILE\tENTRIES\tERRORS\tMODE\tLANGUAGE\tINGESTED")
		for _, f := range files {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\t%s\n",
				f.ID, f.Filename, f.EntryCount, f.ErrorCount, f.Mode, f.DominantLanguage,
				f.IngestedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}
