package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"focus-thumbnailer/internal/client"
	"focus-thumbnailer/internal/mediatypes"

	"github.com/spf13/cobra"
)

const waitPollInterval = 200 * time.Millisecond

type enqueueOptions struct {
	Src     string
	DstDir  string
	Width   int
	Height  int
	Ext     string
	Name    string
	LinkDir string
	Wait    time.Duration
}

func newEnqueueCmd(root *options) *cobra.Command {
	opts := &enqueueOptions{}

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a thumbnail unless it already exists",
		Long: `Derives the thumbnail id from the source path, its modification time and
the target size, then prints the thumbnail path.

If the thumbnail already exists nothing is sent. Otherwise the server is
probed on /health and the job is posted to /enqueue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueue(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Src, "src", "", "Source image")
	cmd.Flags().StringVar(&opts.DstDir, "dst-dir", "thumbs_cache", "Thumbnail directory")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "Thumbnail width")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "Thumbnail height")
	cmd.Flags().StringVar(&opts.Ext, "ext", ".jpg", "Thumbnail format ("+strings.Join(mediatypes.OutputExtensions(), ", ")+")")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Display name for a readable link to the thumbnail")
	cmd.Flags().StringVar(&opts.LinkDir, "link-dir", "", "Directory for readable links (requires --name)")
	cmd.Flags().DurationVar(&opts.Wait, "wait", 0, "Wait up to this long for the thumbnail to be written")
	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")

	return cmd
}

func runEnqueue(cmd *cobra.Command, root *options, opts *enqueueOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("width and height must be positive, got %dx%d", opts.Width, opts.Height)
	}
	ext := opts.Ext
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !mediatypes.IsOutput(ext) {
		return fmt.Errorf("unsupported thumbnail format %q", opts.Ext)
	}
	if opts.LinkDir != "" && opts.Name == "" {
		return errors.New("--link-dir requires --name")
	}

	src, mtime, err := client.ResolveSource(opts.Src)
	if err != nil {
		return err
	}
	dstDir, err := filepath.Abs(opts.DstDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", opts.DstDir, err)
	}

	id := client.JobID(src, mtime, opts.Width, opts.Height)
	dst := client.ThumbnailPath(dstDir, id, ext)
	out := cmd.OutOrStdout()

	if exists(dst) {
		fmt.Fprintf(out, "exists %s\n", dst)
		return link(cmd, opts, id, dst)
	}

	c := root.client()
	ctx := cmd.Context()

	if !c.Reachable(ctx) {
		return fmt.Errorf("thumbnailer at %s is not reachable", root.Server)
	}

	status, err := c.Enqueue(ctx, client.Job{
		JobID:  id,
		Src:    src,
		Dst:    dst,
		Width:  opts.Width,
		Height: opts.Height,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", status, dst)

	if opts.Wait <= 0 {
		return nil
	}
	if err := waitFor(ctx, dst, opts.Wait); err != nil {
		return err
	}
	fmt.Fprintf(out, "written %s\n", dst)
	return link(cmd, opts, id, dst)
}

// link creates the readable link once the thumbnail exists
func link(cmd *cobra.Command, opts *enqueueOptions, id, dst string) error {
	if opts.LinkDir == "" {
		return nil
	}
	slug := client.Slug(opts.Name, id)
	if slug == "" {
		return fmt.Errorf("name %q has no usable characters", opts.Name)
	}
	path, err := client.Link(dst, opts.LinkDir, slug)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "linked %s\n", path)
	return nil
}

func waitFor(ctx context.Context, path string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		if exists(path) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("thumbnail %s not written within %s", path, timeout)
		case <-ticker.C:
		}
	}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
