package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/parser"
)

const maxInputBytes = 64 << 20

func newPDFTreeCmd() *cobra.Command {
	var docID, name string

	cmd := &cobra.Command{
		Use:   "pdf-tree FILE",
		Short: "Build a page-level section tree from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Clean(args[0])
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open pdf: %w", err)
			}
			defer f.Close()

			base := filepath.Base(path)
			if name == "" {
				name = base
			}
			if docID == "" {
				docID = strings.TrimSuffix(base, filepath.Ext(base))
			}

			tree, err := parser.PDF{}.Parse(io.LimitReader(f, maxInputBytes), docID, name)
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			logger(cmd).Info("Parsed PDF",
				zap.String("doc_id", docID),
				zap.Int("pages", tree.PageCount),
				zap.Int("sections", len(tree.Nodes)),
			)
			return writeJSON(cmd.OutOrStdout(), tree)
		},
	}

	cmd.Flags().StringVar(&docID, "doc-id", "", "document id (default: file name without extension)")
	cmd.Flags().StringVar(&name, "name", "", "document name used in citations (default: file name)")
	return cmd
}

func readAllLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
