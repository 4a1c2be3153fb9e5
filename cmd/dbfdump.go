package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/places-of-worship/places-cli/internal/dbf"
)

var dbfdumpCmd = &cobra.Command{
	Use:   "dbfdump <file.dbf>",
	Short: "Dump a dBASE attribute table as JSON",
	Long: `Reads a dBASE III/IV attribute table (the .dbf sidecar of a shapefile)
and prints its records as a JSON array. Deleted records are excluded.

Use --fields to print the field descriptors instead of the records.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encodingName, _ := cmd.Flags().GetString("encoding")
		fieldsOnly, _ := cmd.Flags().GetBool("fields")

		var opts []dbf.Option
		dec, err := charsetDecoder(encodingName)
		if err != nil {
			return err
		}
		if dec != nil {
			opts = append(opts, dbf.WithDecoder(dec))
		}

		table, err := dbf.ReadFile(args[0], opts...)
		if err != nil {
			return eris.Wrapf(err, "dbfdump: %s", args[0])
		}

		if fieldsOnly {
			fmt.Printf("%-12s %-4s %s\n", "NAME", "TYPE", "LENGTH")
			for _, f := range table.Header.Fields {
				fmt.Printf("%-12s %-4c %d\n", f.Name, f.Type, f.Length)
			}
			fmt.Printf("\n%d records, record length %d\n",
				table.Header.RecordCount, table.Header.RecordLength)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(table.Records), "dbfdump: encode records")
	},
}

func init() {
	dbfdumpCmd.Flags().String("encoding", "", "source character encoding, e.g. windows-1252 (default: UTF-8)")
	dbfdumpCmd.Flags().Bool("fields", false, "print field descriptors instead of records")
	rootCmd.AddCommand(dbfdumpCmd)
}

// charsetDecoder resolves an IANA charset name to a text decoder. Empty and
// UTF-8 names yield nil, meaning no translation.
func charsetDecoder(name string) (*encoding.Decoder, error) {
	if name == "" || name == "utf-8" || name == "UTF-8" {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, eris.Errorf("unknown character encoding %q", name)
	}
	return enc.NewDecoder(), nil
}
