package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"simcheck/internal/app"
	"simcheck/internal/documents"
	"simcheck/internal/results"
	"simcheck/internal/store"
)

type commands struct {
	build depsBuilder
}

func (c *commands) withDeps(ctx context.Context, cmd *cli.Command, fn func(deps app.Deps) error) error {
	deps, err := c.build(ctx, cmd)
	if err != nil {
		return err
	}
	defer deps.Close()
	return fn(deps)
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func (c *commands) upload(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one file is required")
	}
	return c.withDeps(ctx, cmd, func(deps app.Deps) error {
		docs, err := registerFiles(ctx, deps, cmd.String("owner"), cmd.String("title"), paths)
		if err != nil {
			return err
		}
		tw := table(output(cmd))
		fmt.Fprintln(tw, "ID\tTITLE\tSIZE")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", d.ID, d.Title, d.Size)
		}
		return tw.Flush()
	})
}

// registerFiles uploads local files concurrently and fails on the first rejected one.
func registerFiles(ctx context.Context, deps app.Deps, owner, title string, paths []string) ([]store.Document, error) {
	if title != "" && len(paths) > 1 {
		return nil, errors.New("--title needs exactly one file")
	}
	inputs := make([]documents.FileInput, len(paths))
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		inputs[i] = documents.FileInput{
			Filename: filepath.Base(p),
			Title:    title,
			OwnerID:  owner,
			Size:     info.Size(),
			Body:     f,
		}
	}
	outcomes := deps.Uploader.RegisterBatch(ctx, inputs)
	docs := make([]store.Document, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			return nil, fmt.Errorf("%s: %w", paths[i], o.Err)
		}
		docs[i] = o.Document
	}
	return docs, nil
}

// documentIDs returns the arguments as ids with --ids, otherwise uploads them.
func documentIDs(ctx context.Context, deps app.Deps, cmd *cli.Command) ([]string, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return nil, errors.New("at least one document is required")
	}
	if cmd.Bool("ids") {
		return args, nil
	}
	docs, err := registerFiles(ctx, deps, cmd.String("owner"), "", args)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

func (c *commands) compare(ctx context.Context, cmd *cli.Command) error {
	return c.withDeps(ctx, cmd, func(deps app.Deps) error {
		ids, err := documentIDs(ctx, deps, cmd)
		if err != nil {
			return err
		}
		job, err := deps.Comparer.Compare(ctx, cmd.String("owner"), ids)
		if err != nil && job.ID == "" {
			return err
		}
		set := results.Filter(results.Merge([]store.ComparisonJob{job}, nil), cmd.Float("threshold"))
		if perr := printResults(output(cmd), set); perr != nil {
			return perr
		}
		return err
	})
}

func (c *commands) web(ctx context.Context, cmd *cli.Command) error {
	return c.withDeps(ctx, cmd, func(deps app.Deps) error {
		ids, err := documentIDs(ctx, deps, cmd)
		if err != nil {
			return err
		}
		jobs, err := deps.WebChecker.CheckWeb(ctx, cmd.String("owner"), ids)
		if err != nil && len(jobs) == 0 {
			return err
		}
		set := results.Filter(results.Merge(nil, jobs), cmd.Float("threshold"))
		if perr := printResults(output(cmd), set); perr != nil {
			return perr
		}
		return err
	})
}

func printResults(w io.Writer, set results.ResultSet) error {
	tw := table(w)
	fmt.Fprintln(tw, "KIND\tDOCUMENTS\tSCORE\tSTATUS\tDETAIL\tREPORT")
	for _, r := range set {
		detail := r.Summary
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
			r.Kind, strings.Join(r.Titles, " vs "), r.Score, r.Status, detail, r.ReportRef)
	}
	return tw.Flush()
}

func (c *commands) listDocuments(ctx context.Context, cmd *cli.Command) error {
	return c.withDeps(ctx, cmd, func(deps app.Deps) error {
		owner := cmd.String("owner")
		docs, err := deps.Documents.List(ctx, documents.ListFilter{OwnerID: &owner})
		if err != nil {
			return err
		}
		tw := table(output(cmd))
		fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tSIZE\tUPLOADED")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Title, d.Status, d.Size, d.UploadedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	})
}

func (c *commands) deleteDocument(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("document id is required")
	}
	return c.withDeps(ctx, cmd, func(deps app.Deps) error {
		if err := deps.Documents.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(output(cmd), "deleted document %s\n", id)
		return nil
	})
}

func (c *commands) listReports(ctx context.Context, cmd *cli.Command) error {
	return c.withDeps(ctx, cmd, func(deps app.Deps) error {
		list, err := deps.Reports.List(ctx, cmd.String("owner"))
		if err != nil {
			return err
		}
		tw := table(output(cmd))
		fmt.Fprintln(tw, "FILENAME\tKIND\tSIZE\tCREATED")
		for _, r := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.Kind, r.Size, r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	})
}

func (c *commands) showReport(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errors.New("report filename is required")
	}
	return c.withDeps(ctx, cmd, func(deps app.Deps) error {
		h, err := deps.Reports.ResolveView(ctx, cmd.String("owner"), name)
		if err != nil {
			return err
		}
		rc, err := h.Open(ctx)
		if err != nil {
			return err
		}
		defer rc.Close()
		_, err = io.Copy(output(cmd), rc)
		return err
	})
}

func (c *commands) deleteReport(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errors.New("report filename is required")
	}
	return c.withDeps(ctx, cmd, func(deps app.Deps) error {
		if err := deps.Reports.Delete(ctx, cmd.String("owner"), name, cmd.Bool("yes")); err != nil {
			return err
		}
		fmt.Fprintf(output(cmd), "deleted report %s\n", name)
		return nil
	})
}
