// Copyright 2026 Tesserae Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package fs retrieves documents from datasources that are mounted into the
// worker's filesystem (local disks, NFS or parallel-filesystem mounts).
// Documents are staged as temporary copies so downstream consumers can read
// them without holding the mount open.
package fs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tesserae/deepinspect/core"
	"github.com/tesserae/deepinspect/retrieval"
)

// Factory builds retrievers for filesystem-mounted datasources.
type Factory struct {
	mounts     map[core.SourceID]string
	stagingDir string
	logger     *slog.Logger
}

var _ retrieval.Factory = (*Factory)(nil)

// Option configures a Factory.
type Option func(*Factory)

// WithStagingDir sets the directory staged copies are written to.
// Default is the system temp directory.
func WithStagingDir(dir string) Option {
	return func(f *Factory) {
		f.stagingDir = dir
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFactory creates a factory serving the given source-to-mount-root map.
func NewFactory(mounts map[core.SourceID]string, opts ...Option) *Factory {
	f := &Factory{
		mounts:     mounts,
		stagingDir: os.TempDir(),
		logger:     slog.Default().With("component", "fs-retrieval"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a retriever rooted at the source's mount point.
// Sources without a configured mount are unavailable.
func (f *Factory) Create(ctx context.Context, source core.SourceID) (retrieval.Retriever, error) {
	root, ok := f.mounts[source]
	if !ok {
		return nil, fmt.Errorf("%s: %w", source, retrieval.ErrSourceUnavailable)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", source, retrieval.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w: %s is not a directory", source, retrieval.ErrSourceUnavailable, root)
	}

	return &mountRetriever{
		source:     source,
		root:       root,
		stagingDir: f.stagingDir,
		logger:     f.logger,
	}, nil
}

// mountRetriever stages documents from one mounted datasource.
type mountRetriever struct {
	source     core.SourceID
	root       string
	stagingDir string
	logger     *slog.Logger
}

func (r *mountRetriever) Retrieve(ctx context.Context, item core.WorkItem) (string, error) {
	src, err := os.Open(filepath.Join(r.root, filepath.FromSlash(item.Path)))
	if err != nil {
		return "", classify(item, err)
	}
	defer src.Close()

	staged, err := os.CreateTemp(r.stagingDir, "deepinspect-"+item.ID().String()+"-*"+filepath.Ext(item.Path))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(staged, src); err != nil {
		staged.Close()
		os.Remove(staged.Name())
		return "", err
	}
	if err := staged.Close(); err != nil {
		os.Remove(staged.Name())
		return "", err
	}

	r.logger.Debug("staged document", "source", r.source, "path", item.Path, "staged", staged.Name())
	return staged.Name(), nil
}

func (r *mountRetriever) Discard(localPath string) error {
	err := os.Remove(localPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (r *mountRetriever) Close() error {
	return nil
}

func classify(item core.WorkItem, err error) error {
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%s: %w", item, retrieval.ErrNotFound)
	case os.IsPermission(err):
		return fmt.Errorf("%s: %w", item, retrieval.ErrPermissionDenied)
	default:
		return err
	}
}
