package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/domain/highlight"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	"github.com/kailas-cloud/citeflow/internal/usecase/document"
	"github.com/kailas-cloud/citeflow/internal/usecase/resolve"
)

func newResolveCmd() *cobra.Command {
	var (
		treeFiles     []string
		answerFile    string
		query         string
		maxHighlights int
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Number the citations of an answer and resolve them to sections",
		Example: `  citectl resolve --tree report.json --answer answer.txt --query "how did revenue grow"
  echo "Revenue grew <doc=report.pdf;page=3>." | citectl resolve --tree report.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			answer, err := readAnswer(cmd, answerFile)
			if err != nil {
				return err
			}

			trees := make([]*section.Tree, 0, len(treeFiles))
			for _, f := range treeFiles {
				t, err := readTree(f)
				if err != nil {
					return err
				}
				trees = append(trees, t)
			}

			extractor := highlight.NewExtractor(highlight.NewKeywordScorer(),
				highlight.WithMaxHighlights(maxHighlights))
			res, err := resolve.New(extractor, "keyword").Resolve(cmd.Context(), answer, query, section.CatalogOf(trees))
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}

			logger(cmd).Info("Resolved", zap.Int("trees", len(trees)), zap.Int("sources", len(res.Sources)))
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringArrayVarP(&treeFiles, "tree", "t", nil, "section tree JSON file (repeatable)")
	cmd.Flags().StringVarP(&answerFile, "answer", "a", "-", "answer text file, - for stdin")
	cmd.Flags().StringVarP(&query, "query", "q", "", "question the answer responds to, used for highlights")
	cmd.Flags().IntVar(&maxHighlights, "max-highlights", highlight.DefaultMaxHighlights, "highlights per source")
	return cmd
}

func readAnswer(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := readAllLimited(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read answer from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return string(data), nil
}

// readTree loads and validates a tree file. DocID and Name default to the file's base name.
func readTree(path string) (*section.Tree, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	var t section.Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode tree %s: %w", path, err)
	}
	if t.DocID == "" {
		t.DocID = filepath.Base(path)
	}
	if t.Name == "" {
		t.Name = t.DocID
	}
	if err := document.Validate(&t); err != nil {
		return nil, fmt.Errorf("tree %s: %w", path, err)
	}
	return &t, nil
}
