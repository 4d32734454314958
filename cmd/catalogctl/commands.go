package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/client"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/catalog"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/draft"
	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/transport"
)

type rootOptions struct {
	server string
	token  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Validate and publish catalog products",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("CATALOG_API_URL", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("CATALOG_TOKEN"), "admin bearer token")

	root.AddCommand(
		newValidateCmd(),
		newCreateCmd(opts),
		newUpdateCmd(opts),
	)
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a product draft (JSON) without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := loadController(args[0])
			if err != nil {
				return err
			}

			data, err := ctl.Validate()
			if err != nil {
				printFieldErrors(cmd.ErrOrStderr(), err)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%s, %s)\n", data.Name, data.Type, data.Group())
			return nil
		},
	}
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "create FILE",
		Short: "Validate a product draft and create it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, args[0], imagePath, func(ctx context.Context, c *client.ProductClient, data catalog.ProductData, img *transport.File) (client.MutationResponse, error) {
				return c.Create(ctx, data, img)
			}, opts)
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "image file to upload")
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "update ID FILE",
		Short: "Validate a product draft and replace the product with it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return submit(cmd, args[1], imagePath, func(ctx context.Context, c *client.ProductClient, data catalog.ProductData, img *transport.File) (client.MutationResponse, error) {
				return c.Update(ctx, id, data, img)
			}, opts)
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "new image file (keeps the current image when omitted)")
	return cmd
}

type sendFunc func(ctx context.Context, c *client.ProductClient, data catalog.ProductData, img *transport.File) (client.MutationResponse, error)

// 検証 → 送信。検証エラーなら送らない。
func submit(cmd *cobra.Command, draftPath, imagePath string, send sendFunc, opts *rootOptions) error {
	ctl, err := loadController(draftPath)
	if err != nil {
		return err
	}

	var img *transport.File
	if imagePath != "" {
		img, err = loadImage(imagePath)
		if err != nil {
			return err
		}
	}

	c := client.NewProductClient(opts.server, opts.token)
	var res client.MutationResponse

	err = ctl.Submit(cmd.Context(), func(ctx context.Context, data catalog.ProductData) error {
		var err error
		res, err = send(ctx, c, data, img)
		return err
	})
	if err != nil {
		printFieldErrors(cmd.ErrOrStderr(), err)
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w.String())
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, res.Product, "", "  ") == nil {
		fmt.Fprintln(out, pretty.String())
	} else {
		fmt.Fprintln(out, string(res.Product))
	}
	return nil
}

// JSONの下書きを読み込み、フォームと同じ手順（category → type → 各項目）で入れ直す
func loadController(path string) (*draft.Controller, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read draft")
	}

	d := draft.NewDraft()
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, errors.Wrap(err, "parse draft")
	}

	ctl := draft.NewController(catalog.DefaultTable(), draft.NewDraft())
	steps := []struct{ field, value string }{
		{catalog.FieldCategory, d.Category},
		{catalog.FieldType, d.Type},
		{catalog.FieldName, d.Name},
		{catalog.FieldDescription, d.Description},
		{catalog.FieldPrice, d.Price},
		{catalog.FieldStock, d.Stock},
		{catalog.FieldStockInKg, d.StockInKg},
	}
	for _, s := range steps {
		if err := ctl.SetField(s.field, s.value); err != nil {
			return nil, err
		}
	}
	if !d.IsActive {
		if err := ctl.SetField(catalog.FieldIsActive, "false"); err != nil {
			return nil, err
		}
	}

	// 量り売りはtypeを入れた時点で1行できている
	for i, ps := range d.PackageSizes {
		if i >= len(ctl.Draft().PackageSizes) {
			ctl.AddPackageSize()
		}
		if err := ctl.SetPackageSizeField(i, catalog.SubFieldSizeInKg, ps.SizeInKg); err != nil {
			return nil, err
		}
		if err := ctl.SetPackageSizeField(i, catalog.SubFieldPrice, ps.Price); err != nil {
			return nil, err
		}
	}
	return ctl, nil
}

func loadImage(path string) (*transport.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	return &transport.File{
		Filename:    filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}

func printFieldErrors(w io.Writer, err error) {
	fe, ok := catalog.AsFieldErrors(err)
	if !ok {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			for k, v := range apiErr.Fields {
				fmt.Fprintf(w, "  %s: %s\n", k, v)
			}
		}
		return
	}
	for _, p := range fe.Paths() {
		fmt.Fprintf(w, "  %s: %s\n", p, fe[p].Message)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
