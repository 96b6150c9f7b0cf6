package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jcolombo/paymo/internal/config"
	"github.com/jcolombo/paymo/internal/export"
	"github.com/jcolombo/paymo/internal/resource"
	"github.com/jcolombo/paymo/internal/ui"
)

// stdoutDestination writes the payload to a writer, for piping.
type stdoutDestination struct{ w io.Writer }

func (d stdoutDestination) Write(_ context.Context, data []byte) error {
	_, err := d.w.Write(data)
	return err
}

func (d stdoutDestination) String() string { return "stdout" }

var exportCmd = &cobra.Command{
	Use:     "export <entity>",
	Short:   "Export a filtered collection as JSONL or delimited protobuf",
	GroupID: "resources",
	Example: `  paymo export projects --include client > projects.jsonl
  paymo export timeentries --where "date range 2024-01-01,2024-02-01" --s3 --git
  paymo export tasks --format protodelim --out tasks.pb --every 10m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wheres, _ := cmd.Flags().GetStringArray("where")
		has, _ := cmd.Flags().GetStringArray("has")
		includes, _ := cmd.Flags().GetStringSlice("include")
		formatName, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		toS3, _ := cmd.Flags().GetBool("s3")
		toGit, _ := cmd.Flags().GetBool("git")
		every, _ := cmd.Flags().GetDuration("every")

		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		entity, err := resolveEntity(a.session.Registry, args[0])
		if err != nil {
			return err
		}
		conds, err := parseConditions(wheres, has)
		if err != nil {
			return err
		}

		dests, err := exportDestinations(ctx, cfg.Export, format, out, toS3, toGit)
		if err != nil {
			return err
		}

		x := &export.Exporter{
			Entity:       entity,
			Format:       format,
			Destinations: dests,
			Logger:       a.logger,
			Source: func(ctx context.Context) ([]map[string]any, error) {
				c, err := a.session.List(ctx, entity, resource.FetchOptions{Include: includes, Where: conds})
				if err != nil {
					return nil, err
				}
				return c.Flatten(), nil
			},
		}

		if every <= 0 {
			res, err := x.Run(ctx)
			if err != nil {
				return err
			}
			if out != "" || toS3 || toGit {
				fmt.Fprintf(os.Stderr, "%s %d %s (%d bytes, %s)\n",
					ui.RenderSuccess("Exported"), res.Header.Count, plural(res.Header.Count, entity), res.Bytes, res.Header.ID)
			}
			return nil
		}

		fmt.Fprintf(os.Stderr, "Exporting %s every %s (Ctrl+C to stop)\n", entity, every)
		sched := export.NewScheduler(x, every)
		sched.Start(ctx)
		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func exportDestinations(ctx context.Context, c config.ExportConfig, format export.Format, out string, toS3, toGit bool) ([]export.Destination, error) {
	var dests []export.Destination
	if out != "" {
		dests = append(dests, export.NewFileDestination(out))
	}
	if toS3 {
		d, err := export.NewS3Destination(ctx, c.S3.Bucket, c.S3.Key, c.S3.Region, c.S3.Endpoint, format)
		if err != nil {
			return nil, err
		}
		dests = append(dests, d)
	}
	if toGit {
		if c.Git.Repo == "" {
			return nil, fmt.Errorf("export.git.repo is not configured")
		}
		dests = append(dests, export.NewGitDestination(c.Git.Repo, c.Git.File, c.Git.Branch))
	}
	if len(dests) == 0 {
		dests = append(dests, stdoutDestination{w: os.Stdout})
	}
	return dests, nil
}

func init() {
	exportCmd.Flags().StringArrayP("where", "w", nil, "filter condition (repeatable)")
	exportCmd.Flags().StringArray("has", nil, "relation count filter (repeatable)")
	exportCmd.Flags().StringSliceP("include", "i", nil, "related resources to include")
	exportCmd.Flags().String("format", "jsonl", "output format: jsonl or protodelim")
	exportCmd.Flags().StringP("out", "o", "", "write to this file")
	exportCmd.Flags().Bool("s3", false, "upload to the configured S3 bucket")
	exportCmd.Flags().Bool("git", false, "commit to the configured git clone")
	exportCmd.Flags().Duration("every", 0, "repeat the export on this interval")
}

