package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fpang/post-image/internal/content"
	"github.com/fpang/post-image/internal/imagesize"
	"github.com/fpang/post-image/internal/resize"
	"github.com/fpang/post-image/internal/resolve"
)

// requestFlags are the resolution flags shared by resolve and tag.
type requestFlags struct {
	request     string
	item        int64
	attachment  int64
	size        string
	metaKeys    []string
	priority    string
	includeMeta bool
	pbPart      string
	pbKey       string
	pbItem      int64
	pbArea      string
}

func (f *requestFlags) register(cmd *cobra.Command, withMeta bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.request, "request", "", "read a JSON request from this file (- for stdin)")
	flags.Int64Var(&f.item, "item", 0, "content item id")
	flags.Int64Var(&f.attachment, "attachment", 0, "attachment id")
	flags.StringVar(&f.size, "size", "", "size: thumbnail, medium, large, full or WIDTHxHEIGHT")
	flags.StringSliceVar(&f.metaKeys, "meta-key", nil, "meta keys holding image URLs, in priority order")
	flags.StringVar(&f.priority, "priority", "", "consult only one source: featured, metaKey or pageBuilderData")
	flags.StringVar(&f.pbPart, "pb-part", "", "page builder part")
	flags.StringVar(&f.pbKey, "pb-key", "", "page builder meta key")
	flags.Int64Var(&f.pbItem, "pb-item", 0, "page builder item id")
	flags.StringVar(&f.pbArea, "pb-area", "", "page builder area")
	if withMeta {
		flags.BoolVar(&f.includeMeta, "include-meta", false, "include the sized attachment record")
	}
}

func (f *requestFlags) build(cmd *cobra.Command) (resolve.Request, error) {
	if f.request != "" {
		var (
			data []byte
			err  error
		)
		if f.request == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = afero.ReadFile(AppFs, f.request)
		}
		if err != nil {
			return resolve.Request{}, fmt.Errorf("read request: %w", err)
		}
		return resolve.DecodeRequest(data)
	}

	size, err := parseSize(f.size)
	if err != nil {
		return resolve.Request{}, err
	}
	req := resolve.Request{
		Size:         size,
		ItemID:       f.item,
		AttachmentID: content.AttachmentID(f.attachment),
		IncludeMeta:  f.includeMeta,
		MetaKeys:     f.metaKeys,
		Priority:     resolve.Priority(f.priority),
	}
	if f.pbPart != "" || f.pbKey != "" || f.pbItem != 0 || f.pbArea != "" {
		req.PageBuilder = &resolve.PageBuilderRef{Part: f.pbPart, MetaKey: f.pbKey, ItemID: f.pbItem, Area: f.pbArea}
	}
	return req, nil
}

// parseSize parses an optional size flag. An empty value is the zero Size.
func parseSize(value string) (imagesize.Size, error) {
	if value == "" {
		return imagesize.Size{}, nil
	}
	size := imagesize.Parse(value)
	if !imagesize.IsAcceptable(size) {
		return imagesize.Size{}, fmt.Errorf("invalid size %q: use thumbnail, medium, large, full or WIDTHxHEIGHT", value)
	}
	return size, nil
}

func newResolveCmd(c *cli) *cobra.Command {
	var f requestFlags
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved image as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.build(cmd)
			if err != nil {
				return err
			}
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			img, err := env.resolver.ResolveImage(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(img)
		},
	}
	f.register(cmd, true)
	return cmd
}

func newTagCmd(c *cli) *cobra.Command {
	var f requestFlags
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Print an <img> tag for the resolved image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.build(cmd)
			if err != nil {
				return err
			}
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			tag, err := env.resolver.RenderImageTag(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tag)
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func newPlaceholderCmd(c *cli) *cobra.Command {
	var size string
	cmd := &cobra.Command{
		Use:   "placeholder",
		Short: "Print the placeholder URL, resizing the bundled default if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseSize(size)
			if err != nil {
				return err
			}
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			url, err := env.resolver.ResolvePlaceholder(cmd.Context(), s)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "size (default: the configured placeholder size)")
	return cmd
}

func newResizeCmd(c *cli) *cobra.Command {
	var (
		size     string
		filename string
		srcURL   string
	)
	cmd := &cobra.Command{
		Use:   "resize <source>",
		Short: "Print the URL of a cached resized variant of a local image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseSize(size)
			if err != nil {
				return err
			}
			if s.IsZero() {
				return fmt.Errorf("--size is required")
			}
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			src := resize.Source{Path: args[0], URL: srcURL}
			if src.URL == "" {
				src.URL = "file://" + filepath.ToSlash(args[0])
			}
			url, err := env.resolver.ResolveResized(cmd.Context(), src, s, filename)
			if err != nil {
				return err
			}
			if url == "" {
				return fmt.Errorf("cannot resize %s to %s", args[0], s)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "size: thumbnail, medium, large, full or WIDTHxHEIGHT")
	cmd.Flags().StringVar(&filename, "filename", "", "variant file name (default: source base name)")
	cmd.Flags().StringVar(&srcURL, "url", "", "public URL of the source, returned when no resize is possible")
	return cmd
}
