package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/server"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/infrastructure/config"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/serialization"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/validation"
)

// errInvalidFlow is returned by validate after the verdict was printed
var errInvalidFlow = errors.New("flow is invalid")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatflow",
		Short:         "Build, validate and serve chatbot conversation flows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newVersionCmd(),
		newNodeTypesCmd(),
		newValidateCmd(),
		newFlowsCmd(),
		newServeCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatflow %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		},
	}
}

func newNodeTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "node-types",
		Short: "List the node types available in the palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tLABEL\tSOURCE\tTARGET\tREQUIRED")
			for _, spec := range flow.NodeTypes() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					spec.Type,
					spec.Label,
					strings.Join(spec.SourceHandles, ","),
					strings.Join(spec.TargetHandles, ","),
					strings.Join(spec.RequiredFields(), ","),
				)
			}
			return tw.Flush()
		},
	}
}

func newValidateCmd() *cobra.Command {
	var (
		strict bool
		format string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a flow document can be saved",
		Long: "Reads a JSON or YAML flow document, checks its structure and runs the save-time\n" +
			"validation. Exits non-zero when the flow would be rejected.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readFlowFile(args[0], format)
			if err != nil {
				return err
			}

			verdict := validation.ValidateFlow(snap, validation.FlowValidationOptions{Strict: strict})
			if err := printVerdict(cmd.OutOrStdout(), verdict, asJSON); err != nil {
				return err
			}
			if !verdict.IsValid {
				return errInvalidFlow
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Also reject nodes that cannot be reached from the starting node")
	cmd.Flags().StringVar(&format, "format", "", "Document format: json or yaml (default: from file extension)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the verdict as JSON")
	return cmd
}

func printVerdict(out io.Writer, verdict validation.Verdict, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	}

	fmt.Fprintln(out, verdict.Message)
	if len(verdict.Unreached) > 1 {
		fmt.Fprintf(out, "Nodes without incoming connections: %s\n", strings.Join(verdict.Unreached, ", "))
	}
	return nil
}

// readFlowFile decodes a flow document and checks its structure
func readFlowFile(path, format string) (*flow.Snapshot, error) {
	if format == "" {
		format = "json"
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		}
	}
	codec, err := documentCodec(format)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow document: %w", err)
	}

	var doc validation.FlowDocument
	if err := codec.Decode(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	snap, err := validation.ParseDocument(&doc)
	if err != nil {
		return nil, fmt.Errorf("malformed flow %s: %w", path, err)
	}
	return snap, nil
}

func documentCodec(format string) (serialization.Codec, error) {
	codec, err := serialization.CodecByName(format)
	if err != nil {
		return nil, err
	}
	if codec.Name() == "msgpack" {
		return nil, fmt.Errorf("%w: documents are json or yaml", serialization.ErrUnknownCodec)
	}
	if codec.Name() == "json" {
		return &serialization.JSONCodec{Indent: true}, nil
	}
	return codec, nil
}

func newFlowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Inspect flows in the configured storage",
	}
	cmd.AddCommand(newFlowsListCmd(), newFlowsExportCmd())
	return cmd
}

// withRepository opens the configured store for the duration of fn
func withRepository(ctx context.Context, fn func(flow.Repository) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	repo, closeRepo, err := server.OpenRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeRepo() }()
	return fn(repo)
}

func newFlowsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved flows, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRepository(cmd.Context(), func(repo flow.Repository) error {
				records, err := repo.List(cmd.Context(), flow.ListFilter{Limit: limit, Offset: offset})
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tVERSION\tNODES\tEDGES\tSAVED")
				for _, rec := range records {
					var nodes, edges int
					if rec.Snapshot != nil {
						nodes, edges = len(rec.Snapshot.Nodes), len(rec.Snapshot.Edges)
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
						rec.ID, rec.Name, rec.Version, nodes, edges, rec.SavedAt.UTC().Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of flows to list (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of flows to skip")
	return cmd
}

func newFlowsExportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <flow-id>",
		Short: "Write a saved flow as a JSON or YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := documentCodec(format)
			if err != nil {
				return err
			}
			return withRepository(cmd.Context(), func(repo flow.Repository) error {
				rec, err := repo.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				data, err := codec.Encode(validation.DocumentFromSnapshot(rec.Snapshot))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if _, err := out.Write(data); err != nil {
					return err
				}
				if len(data) > 0 && data[len(data)-1] != '\n' {
					_, err = fmt.Fprintln(out)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: json or yaml")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the flow editor HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides CHATFLOW_ADDR)")
	return cmd
}
