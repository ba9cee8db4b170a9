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


// Package sftp retrieves documents from datasources reachable over SSH.
// One SFTP session is held per datasource for the life of its handle.
package sftp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/pkg/sftp"
	"github.com/tesserae/deepinspect/core"
	"github.com/tesserae/deepinspect/retrieval"
	"golang.org/x/crypto/ssh"
)

// Endpoint describes how to reach one SSH-served datasource.
type Endpoint struct {
	Addr     string // host:port
	User     string
	Password string
	BaseDir  string // remote directory item paths are resolved against
}

// Factory builds retrievers for SSH-reachable datasources.
type Factory struct {
	endpoints   map[core.SourceID]Endpoint
	stagingDir  string
	hostKeyFunc ssh.HostKeyCallback
	logger      *slog.Logger
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

// WithHostKeyCallback sets the SSH host key verification policy.
// Default accepts any host key, matching deployments where the worker and
// datasources share a private network. Production clusters should pass
// ssh.FixedHostKey or a known_hosts callback.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(f *Factory) {
		if cb != nil {
			f.hostKeyFunc = cb
		}
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

// NewFactory creates a factory serving the given source-to-endpoint map.
func NewFactory(endpoints map[core.SourceID]Endpoint, opts ...Option) *Factory {
	f := &Factory{
		endpoints:   endpoints,
		stagingDir:  os.TempDir(),
		hostKeyFunc: ssh.InsecureIgnoreHostKey(),
		logger:      slog.Default().With("component", "sftp-retrieval"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create dials the source's SSH endpoint and opens an SFTP session.
// Sources without a configured endpoint, and endpoints that cannot be
// dialed, are unavailable.
func (f *Factory) Create(ctx context.Context, source core.SourceID) (retrieval.Retriever, error) {
	endpoint, ok := f.endpoints[source]
	if !ok {
		return nil, fmt.Errorf("%s: %w", source, retrieval.ErrSourceUnavailable)
	}

	sshConfig := &ssh.ClientConfig{
		User:            endpoint.User,
		Auth:            []ssh.AuthMethod{ssh.Password(endpoint.Password)},
		HostKeyCallback: f.hostKeyFunc,
	}

	conn, err := ssh.Dial("tcp", endpoint.Addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", source, retrieval.ErrSourceUnavailable, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w: %w", source, retrieval.ErrSourceUnavailable, err)
	}

	f.logger.Debug("opened sftp session", "source", source, "addr", endpoint.Addr)
	return &sessionRetriever{
		source:     source,
		baseDir:    endpoint.BaseDir,
		conn:       conn,
		client:     client,
		stagingDir: f.stagingDir,
		logger:     f.logger,
	}, nil
}

// sessionRetriever stages documents over one SFTP session.
type sessionRetriever struct {
	source     core.SourceID
	baseDir    string
	conn       *ssh.Client
	client     *sftp.Client
	stagingDir string
	logger     *slog.Logger
}

func (r *sessionRetriever) Retrieve(ctx context.Context, item core.WorkItem) (string, error) {
	remotePath := item.Path
	if r.baseDir != "" {
		remotePath = path.Join(r.baseDir, item.Path)
	}

	src, err := r.client.Open(remotePath)
	if err != nil {
		return "", classify(item, err)
	}
	defer src.Close()

	staged, err := os.CreateTemp(r.stagingDir, "deepinspect-"+item.ID().String()+"-*"+path.Ext(item.Path))
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

	r.logger.Debug("staged document", "source", r.source, "path", remotePath, "staged", staged.Name())
	return staged.Name(), nil
}

func (r *sessionRetriever) Discard(localPath string) error {
	err := os.Remove(localPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (r *sessionRetriever) Close() error {
	clientErr := r.client.Close()
	connErr := r.conn.Close()
	if clientErr != nil {
		return clientErr
	}
	return connErr
}

// classify maps SFTP status errors onto the retrieval taxonomy.
// The sftp package wires SSH_FX_NO_SUCH_FILE and SSH_FX_PERMISSION_DENIED
// into os.IsNotExist / os.IsPermission.
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
