package main

import (
	"TryOnGolang/internal/tryon/asset"
	"TryOnGolang/pkg/log"
	"TryOnGolang/pkg/s3"
	"context"
	"fmt"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

var uploadPrefix string

var uploadCmd = &cobra.Command{
	Use:   "upload <dir>",
	Short: "Upload a directory of glTF models to the asset bucket",
	Long: "Walk <dir> and upload every file under --prefix, keeping relative paths. " +
		".gltf and .glb files are measured first and the upload is refused if any cannot be. " +
		"When an upload fails, the objects already written by the run are deleted again.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := s3.New()
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		return runUpload(cmd.Context(), client, args[0], uploadPrefix)
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadPrefix, "prefix", "3d/Models/glasses", "object key prefix")
	rootCmd.AddCommand(uploadCmd)
}

type uploadFile struct {
	local string
	key   string
	width float64
	model bool
}

func runUpload(ctx context.Context, client s3.ItfS3, dir, prefix string) error {
	files, err := collectUploads(dir, prefix)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files under %s", dir)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Uploading models"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	for i, f := range files {
		if err := uploadOne(ctx, client, f); err != nil {
			fmt.Fprintln(os.Stderr)
			rollbackUploads(ctx, client, files[:i])
			return fmt.Errorf("upload %s: %w", f.local, err)
		}
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KEY\tWIDTH")
	fmt.Fprintln(w, "---\t-----")
	for _, f := range files {
		if f.model {
			fmt.Fprintf(w, "/%s\t%.4f\n", f.key, f.width)
		}
	}
	return w.Flush()
}

// collectUploads lists the files to upload and measures every model, so a
// broken model fails the run before anything is written.
func collectUploads(dir, prefix string) ([]uploadFile, error) {
	var files []uploadFile
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			log.Debug(log.Fields{"path": p}, "Skipping hidden file")
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		f := uploadFile{
			local: p,
			key:   path.Join(strings.Trim(prefix, "/"), filepath.ToSlash(rel)),
		}

		switch strings.ToLower(filepath.Ext(p)) {
		case ".gltf", ".glb":
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			width, err := asset.ModelWidth(data)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			f.width, f.model = width, true
		}

		files = append(files, f)
		return nil
	})
	return files, err
}

func uploadOne(ctx context.Context, client s3.ItfS3, f uploadFile) error {
	file, err := os.Open(f.local)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = client.UploadObject(ctx, f.key, contentType(f.local), file)
	return err
}

// rollbackUploads deletes the objects a failed run already wrote.
func rollbackUploads(ctx context.Context, client s3.ItfS3, done []uploadFile) {
	ctx = context.WithoutCancel(ctx)
	for _, f := range done {
		if err := client.DeleteObject(ctx, f.key); err != nil {
			log.Error(log.Fields{"key": f.key, "error": err.Error()}, "Failed to roll back uploaded object")
			continue
		}
		log.Info(log.Fields{"key": f.key}, "Rolled back uploaded object")
	}
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gltf":
		return "model/gltf+json"
	case ".glb":
		return "model/gltf-binary"
	case ".bin":
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
