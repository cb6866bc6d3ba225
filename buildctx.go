package soma

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/docker/docker/pkg/archive"
	"github.com/otiai10/copy"

	"github.com/PLUS-POSTECH/soma/manifest"
	"github.com/PLUS-POSTECH/soma/repository"
)

// ServicePort is the port a problem listens on inside its container.
const ServicePort = 1337

const imageRootDir = "image-root"

// followLinks copies what a symlinked entry points at instead of the link.
var followLinks = copy.Options{
	OnSymlink: func(string) copy.SymlinkAction { return copy.Deep },
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var buildTemplates = template.Must(
	template.New("build").
		Funcs(template.FuncMap{"quote": shellQuote}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// renderedFiles maps templates to their location in the build context.
var renderedFiles = []struct {
	template string
	path     string
	mode     os.FileMode
}{
	{"Dockerfile.tmpl", "Dockerfile", 0o644},
	{"start.sh.tmpl", filepath.Join(".soma", "start.sh"), 0o755},
}

// buildData is the input of the build templates.
type buildData struct {
	Owner      string
	Version    string
	Repository string
	Problem    string
	User       string
	Port       int
	Manifest   *manifest.SolidManifest
}

// materializeContext lays out the build context of prob in dir: every file
// entry copied under image-root/ at its target path, plus the rendered
// Dockerfile and start script.
func materializeContext(dir string, prob repository.Problem, solid *manifest.SolidManifest, data buildData) error {
	imageRoot := filepath.Join(dir, imageRootDir)
	if err := os.MkdirAll(imageRoot, 0o755); err != nil {
		return err
	}

	for _, entry := range solid.Binary.FileEntries {
		src := filepath.Join(prob.Path, filepath.FromSlash(entry.Path))
		info, err := os.Stat(src)
		if err != nil || !(info.Mode().IsRegular() || info.IsDir()) {
			return fmt.Errorf("%s: %w", entry.Path, ErrFileUnreachable)
		}

		// Later entries overwrite earlier ones at the same target.
		dst := filepath.Join(imageRoot, filepath.FromSlash(strings.TrimPrefix(entry.TargetPath, "/")))
		if err := copy.Copy(src, dst, followLinks); err != nil {
			return fmt.Errorf("copy %s to %s: %w", entry.Path, entry.TargetPath, err)
		}
	}

	for _, f := range renderedFiles {
		if err := renderFile(filepath.Join(dir, f.path), f.template, f.mode, data); err != nil {
			return err
		}
	}
	return nil
}

func renderFile(path, name string, mode os.FileMode, data buildData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if err := buildTemplates.ExecuteTemplate(f, name, data); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", name, err)
	}
	return f.Close()
}

// archiveContext streams dir as a gzip compressed tar.
func archiveContext(dir string) (io.ReadCloser, error) {
	return archive.TarWithOptions(dir, &archive.TarOptions{Compression: archive.Gzip})
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
