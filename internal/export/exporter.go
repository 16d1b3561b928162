package export

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/addrcluster/internal/model"
)

// Default artifact file names.
const (
	DefaultUserMapName  = "usermap.txt"
	DefaultKeyMapName   = "keymap.txt"
	DefaultGraphName    = "graph.txt"
	DefaultReceiptsName = "receipts.txt"
	DefaultReceivedName = "received.txt"
)

// Exporter writes the artifacts of one run into a directory.
type Exporter struct {
	dir          string
	userMapName  string
	keyMapName   string
	graphName    string
	receiptsName string
	receivedName string
	logger       *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithUserMapName overrides the UserMap file name.
func WithUserMapName(name string) Option {
	return func(e *Exporter) {
		if name != "" {
			e.userMapName = name
		}
	}
}

// WithKeyMapName overrides the KeyMap file name.
func WithKeyMapName(name string) Option {
	return func(e *Exporter) {
		if name != "" {
			e.keyMapName = name
		}
	}
}

// WithGraphName overrides the graph file name.
func WithGraphName(name string) Option {
	return func(e *Exporter) {
		if name != "" {
			e.graphName = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// NewExporter creates an Exporter writing into dir.
// The directory is created on the first write.
func NewExporter(dir string, opts ...Option) *Exporter {
	e := &Exporter{
		dir:          dir,
		userMapName:  DefaultUserMapName,
		keyMapName:   DefaultKeyMapName,
		graphName:    DefaultGraphName,
		receiptsName: DefaultReceiptsName,
		receivedName: DefaultReceivedName,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportMaps writes the UserMap and KeyMap files and returns their paths.
func (e *Exporter) ExportMaps(view *model.ClusterView) (userMap, keyMap string, err error) {
	userMap = filepath.Join(e.dir, e.userMapName)
	if err := WriteFile(userMap, func(w io.Writer) error {
		return WriteUserMap(w, view)
	}); err != nil {
		return "", "", err
	}

	keyMap = filepath.Join(e.dir, e.keyMapName)
	if err := WriteFile(keyMap, func(w io.Writer) error {
		return WriteKeyMap(w, view)
	}); err != nil {
		return userMap, "", err
	}

	e.logger.Debug("cluster maps written", "user_map", userMap, "key_map", keyMap, "clusters", view.NumClusters())
	return userMap, keyMap, nil
}

// ExportGraph writes the graph file and returns its path.
func (e *Exporter) ExportGraph(edges []model.Edge) (string, error) {
	path := filepath.Join(e.dir, e.graphName)
	if err := WriteFile(path, func(w io.Writer) error {
		return WriteGraph(w, edges)
	}); err != nil {
		return "", err
	}

	e.logger.Debug("graph written", "path", path, "edges", len(edges))
	return path, nil
}

// ExportTotals writes the per-cluster receipt counts and received amounts
// and returns their paths.
func (e *Exporter) ExportTotals(receipts, received []uint64) (receiptsPath, receivedPath string, err error) {
	receiptsPath = filepath.Join(e.dir, e.receiptsName)
	if err := WriteFile(receiptsPath, func(w io.Writer) error {
		return WriteClusterValues(w, receipts)
	}); err != nil {
		return "", "", err
	}

	receivedPath = filepath.Join(e.dir, e.receivedName)
	if err := WriteFile(receivedPath, func(w io.Writer) error {
		return WriteClusterValues(w, received)
	}); err != nil {
		return receiptsPath, "", err
	}
	return receiptsPath, receivedPath, nil
}

// WriteFile creates path (and its parent directories), hands it to write
// and closes it. Every failure is returned as a *model.IOError.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return &model.IOError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return &model.IOError{Op: "create", Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &model.IOError{Op: "close", Path: path, Err: cerr}
		}
	}()

	if err := write(f); err != nil {
		var ioErr *model.IOError
		if errors.As(err, &ioErr) {
			return err
		}
		return &model.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
