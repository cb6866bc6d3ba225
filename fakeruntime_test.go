package soma

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/docker/docker/pkg/archive"

	"github.com/PLUS-POSTECH/soma/container"
)

// fakeRuntime is an in-memory container.Runtime.
type fakeRuntime struct {
	images     map[string]container.Image
	containers map[string]*container.Container
	created    []container.CreateOptions
	stopped    []string
	nextID     int

	// contexts records the files of every build context by tag.
	contexts map[string]map[string]string

	buildErr string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		images:     make(map[string]container.Image),
		containers: make(map[string]*container.Container),
		contexts:   make(map[string]map[string]string),
	}
}

func (f *fakeRuntime) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeRuntime) ListImages(_ context.Context, sel container.Selector) ([]container.Image, error) {
	var images []container.Image
	for _, img := range f.images {
		if sel.Matches(img.Labels) {
			images = append(images, img)
		}
	}
	sort.Slice(images, func(i, j int) bool { return images[i].ID < images[j].ID })
	return images, nil
}

func (f *fakeRuntime) ListContainers(_ context.Context, sel container.Selector) ([]container.Container, error) {
	var containers []container.Container
	for _, c := range f.containers {
		if sel.Matches(c.Labels) {
			containers = append(containers, *c)
		}
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].ID < containers[j].ID })
	return containers, nil
}

func (f *fakeRuntime) BuildImage(_ context.Context, opts container.BuildOptions, out io.Writer) error {
	files, err := readContext(opts.Context)
	if err != nil {
		return err
	}
	if f.buildErr != "" {
		return &container.BuildError{Message: f.buildErr}
	}
	if _, ok := files["Dockerfile"]; !ok {
		return &container.BuildError{Message: "Cannot locate specified Dockerfile: Dockerfile"}
	}

	fmt.Fprintf(out, "Successfully tagged %s\n", opts.Tag)
	f.contexts[opts.Tag] = files
	for id, img := range f.images {
		if len(img.Tags) == 1 && img.Tags[0] == opts.Tag {
			delete(f.images, id)
		}
	}
	id := f.id("sha256:")
	f.images[id] = container.Image{ID: id, Tags: []string{opts.Tag}, Labels: opts.Labels}
	return nil
}

func readContext(r io.Reader) (map[string]string, error) {
	stream, err := archive.DecompressStream(r)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	files := make(map[string]string)
	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		files[hdr.Name] = string(data)
	}
}

func (f *fakeRuntime) RemoveImage(_ context.Context, ref string) error {
	for id, img := range f.images {
		var tag string
		if len(img.Tags) > 0 {
			tag = img.Tags[0]
		}
		if id != ref && tag != ref {
			continue
		}
		for _, c := range f.containers {
			if c.Image == tag {
				return fmt.Errorf("conflict: image %s is used by container %s", ref, c.ID)
			}
		}
		delete(f.images, id)
		return nil
	}
	return fmt.Errorf("No such image: %s", ref)
}

func (f *fakeRuntime) CreateContainer(_ context.Context, opts container.CreateOptions) (string, error) {
	found := false
	for _, img := range f.images {
		if len(img.Tags) > 0 && img.Tags[0] == opts.Image {
			found = true
		}
	}
	if !found {
		return "", fmt.Errorf("No such image: %s", opts.Image)
	}

	id := f.id("container")
	f.containers[id] = &container.Container{
		ID:     id,
		Name:   opts.Name,
		Image:  opts.Image,
		State:  container.StateCreated,
		Labels: opts.Labels,
	}
	f.created = append(f.created, opts)
	return id, nil
}

func (f *fakeRuntime) StartContainer(_ context.Context, id string) error {
	c, ok := f.containers[id]
	if !ok {
		return errors.New("No such container: " + id)
	}
	c.State = container.StateRunning
	return nil
}

func (f *fakeRuntime) StopContainer(_ context.Context, id string) error {
	c, ok := f.containers[id]
	if !ok {
		return errors.New("No such container: " + id)
	}
	c.State = container.StateExited
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeRuntime) RemoveContainer(_ context.Context, id string) error {
	if _, ok := f.containers[id]; !ok {
		return errors.New("No such container: " + id)
	}
	delete(f.containers, id)
	return nil
}

func (f *fakeRuntime) Close() error {
	return nil
}
