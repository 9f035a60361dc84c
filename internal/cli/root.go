// Package cli implements the rag command line interface.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragpipe/internal/config"
	"ragpipe/internal/logger"
)

// DefaultQueries are asked after ingesting a file or URL without -q.
var DefaultQueries = []string{
	"Summarize the key points from this document",
	"What are the main topics covered in this document?",
	"What are the most important concepts in this document?",
}

type rootOptions struct {
	configPath string
	verbose    bool
	progress   bool
	cfg        *config.AppConfig
}

// NewRootCmd builds the rag command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "rag",
		Short: "Retrieval pipeline over text and PDF documents",
		Long: `rag ingests text files, PDF files and PDF URLs into a vector index and
answers questions by retrieving the most similar chunks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("reading .env: %v", err)
			}
			logger.SetVerbose(opts.verbose)
			logger.SetOutput(cmd.ErrOrStderr())

			var (
				cfg  *config.AppConfig
				path = opts.configPath
				err  error
			)
			if path == "" {
				cfg, path, err = config.LoadDefault()
			} else {
				cfg, err = config.Load(path)
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger.Debug("using config %s", path)
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/rag/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&opts.progress, "progress", progressEnabled(), "show an embedding progress bar")

	root.AddCommand(
		newFileCmd(opts),
		newURLCmd(opts),
		newIngestCmd(opts),
		newQueryCmd(opts),
		newResetCmd(opts),
		newTUICmd(opts),
	)
	return root
}
