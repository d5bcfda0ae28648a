// inspect: стандартизует колонки локальной книги и печатает переименования.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sheet-agent/internal/agent"
	"sheet-agent/internal/fileio"
	"sheet-agent/internal/standardize"
)

func main() {
	var (
		registryFile string
		threshold    int
		scorer       string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <workbook.xlsx|.xls|.csv>",
		Short: "Standardize column names of every sheet and print the renames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := standardize.DefaultRegistry()
			if registryFile != "" {
				var err error
				if reg, err = standardize.LoadRegistry(registryFile); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("threshold") {
				reg.Threshold = threshold
			}
			if cmd.Flags().Changed("scorer") {
				s, ok := standardize.ScorerByName(scorer)
				if !ok {
					return fmt.Errorf("unknown scorer %q", scorer)
				}
				reg.Scorer = s
			}
			if err := reg.Validate(); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			tables, err := fileio.ReadWorkbook(f, args[0])
			if err != nil {
				return err
			}

			std := standardize.New(reg)
			out := cmd.OutOrStdout()
			type sheetOut struct {
				Sheet   string              `json:"sheet"`
				Columns []string            `json:"columns"`
				Renames standardize.Mapping `json:"renames"`
			}
			var all []sheetOut
			names := make([]string, 0, len(tables))
			for _, t := range tables {
				st, m := std.Standardize(t)
				names = append(names, t.Name)
				all = append(all, sheetOut{Sheet: t.Name, Columns: st.Columns, Renames: m})
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}
			for i, s := range all {
				fmt.Fprintf(out, "df%d %s: %s\n", i, s.Sheet, strings.Join(s.Columns, " | "))
				for _, r := range s.Renames {
					fmt.Fprintf(out, "  %q -> %s (%d)\n", r.From, r.To, r.Score)
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, agent.Prefix(names))
			return nil
		},
	}
	cmd.Flags().StringVarP(&registryFile, "registry", "r", "", "YAML registry file (default: built-in synonyms)")
	cmd.Flags().IntVarP(&threshold, "threshold", "t", standardize.DefaultThreshold, "match only when score is above this value")
	cmd.Flags().StringVar(&scorer, "scorer", "ratio", "similarity: ratio | damerau")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
