package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/local/pagedeck/internal/codec"
	"github.com/local/pagedeck/internal/export"
	"github.com/local/pagedeck/internal/filetype"
	"github.com/local/pagedeck/internal/workspace"
)

var (
	exportMode   string
	exportDelete string
	exportOrder  []string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export [flags] file.pdf...",
	Short: "Delete and reorder pages, then export in one shot",
	Long: `Load the given PDFs, apply edits and export the result.

--delete takes a page range applied to every document, e.g. "1,3-5".
--order puts pages first in the given order; unlisted pages follow.
It takes "document=3,1,2" for one document or "3,1,2" for all of them.

Examples:
  pagedeck export --delete 1 a.pdf b.pdf
  pagedeck export --mode individual --order a.pdf=3,1,2 --out out/ a.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if exportMode == "" {
			exportMode = cfg.Export.Mode
		}
		mode, err := export.ParseMode(exportMode)
		if err != nil {
			return err
		}
		if exportOut != "" {
			cfg.Export.Delivery = "local"
			cfg.Export.OutputDir = exportOut
		}
		deliverer, err := newDeliverer(ctx, cfg)
		if err != nil {
			return err
		}

		uploads, err := readUploads(args)
		if err != nil {
			return err
		}
		orders, err := parseOrders(exportOrder)
		if err != nil {
			return err
		}

		ws := workspace.New(workspace.Dependencies{Codec: codec.NewPDF(), Deliverer: deliverer}, workspaceOptions(cfg))
		defer ws.Close()

		loaded, err := ws.Load(uploads)
		for _, r := range loaded.Rejected {
			printSkipped(cmd.ErrOrStderr(), r.Name, r.Reason)
		}
		if err != nil {
			return err
		}
		if err := ws.Wait(ctx); err != nil {
			return err
		}

		// an order for all documents applies first so per-document orders win
		if order, ok := orders[""]; ok {
			for _, name := range loaded.Accepted {
				if err := ws.Arrange(name, order); err != nil {
					return fmt.Errorf("--order %s: %w", name, err)
				}
			}
		}
		for doc, order := range orders {
			if doc == "" {
				continue
			}
			if err := ws.Arrange(doc, order); err != nil {
				return fmt.Errorf("--order %s: %w", doc, err)
			}
		}
		if exportDelete != "" {
			ws.ApplyRange(exportDelete)
		}

		report, err := ws.Export(ctx, mode, nil)
		if report != nil {
			printReport(cmd.OutOrStdout(), report, ws.Progress())
		}
		if err != nil {
			return err
		}
		return report.Err()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportMode, "mode", "", "archive or individual (default: $EXPORT_MODE)")
	exportCmd.Flags().StringVar(&exportDelete, "delete", "", "pages to delete from every document, e.g. 1,3-5")
	exportCmd.Flags().StringArrayVar(&exportOrder, "order", nil, "page order, [document=]3,1,2 (repeatable)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "write outputs to this directory")
}

func readUploads(paths []string) ([]filetype.Upload, error) {
	uploads := make([]filetype.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		if mediaType == "" {
			mediaType = filetype.Detect(data)
		}
		uploads = append(uploads, filetype.Upload{Name: filepath.Base(p), MediaType: mediaType, Data: data})
	}
	return uploads, nil
}

// parseOrders maps a document name ("" for all documents) to a page order.
func parseOrders(values []string) (map[string][]int, error) {
	out := make(map[string][]int, len(values))
	for _, v := range values {
		doc, list := "", v
		if i := strings.LastIndex(v, "="); i >= 0 {
			doc, list = v[:i], v[i+1:]
		}
		var order []int
		for _, term := range strings.Split(list, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(term))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("--order %q: invalid page %q", v, term)
			}
			order = append(order, n)
		}
		if _, dup := out[doc]; dup {
			return nil, errors.New("--order given twice for " + orAll(doc))
		}
		out[doc] = order
	}
	return out, nil
}

func orAll(doc string) string {
	if doc == "" {
		return "all documents"
	}
	return doc
}
