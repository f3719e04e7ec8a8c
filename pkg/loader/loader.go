// Package loader decodes the two pipeline artifacts (cluster_data.json and
// the optional cluster_data_rich.json) into a Dataset.
package loader

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/taxview/internal/datasource"
	"github.com/vanderheijden86/taxview/pkg/debug"
	"github.com/vanderheijden86/taxview/pkg/metrics"
	"github.com/vanderheijden86/taxview/pkg/model"
)

// DataDirEnvVar overrides the directory searched for artifacts.
const DataDirEnvVar = "TAXVIEW_DATA_DIR"

// DefaultDataDir is where the pipeline writes its artifacts.
const DefaultDataDir = "outputs"

// Artifact base names, in lookup order per extension.
const (
	ClusterDataName = "cluster_data"
	RichDataName    = "cluster_data_rich"
)

var artifactExtensions = []string{".json", ".json.zst", ".json.gz", ".jsonc"}

// GetDataDir returns the artifact directory, respecting TAXVIEW_DATA_DIR.
// Otherwise it falls back to outputs/ under baseDir (or cwd if empty).
func GetDataDir(baseDir string) (string, error) {
	if envDir := os.Getenv(DataDirEnvVar); envDir != "" {
		return envDir, nil
	}
	if baseDir == "" {
		var err error
		baseDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}
	return filepath.Join(baseDir, DefaultDataDir), nil
}

// FindArtifact returns the first existing <dir>/<base><ext>. It returns
// the plain .json path when none exists so the caller's error names the
// file the user most likely expected.
func FindArtifact(dir, base string) string {
	for _, ext := range artifactExtensions {
		p := filepath.Join(dir, base+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return filepath.Join(dir, base+".json")
}

// FatalLoadError reports that the primary artifact could not be fetched
// or parsed. Nothing can be shown without it.
type FatalLoadError struct {
	Location string
	Err      error
}

func (e *FatalLoadError) Error() string {
	return fmt.Sprintf("loading cluster data from %s: %v", e.Location, e.Err)
}

func (e *FatalLoadError) Unwrap() error { return e.Err }

// DegradedLoadWarning records that the optional breakdown artifact failed.
// Loading continues with an empty RichIndex.
type DegradedLoadWarning struct {
	Location string
	Err      error
}

func (w DegradedLoadWarning) String() string {
	return fmt.Sprintf("breakdown data unavailable (%s): %v", w.Location, w.Err)
}

// Options configures Load.
type Options struct {
	DataLocation string
	// RichLocation may be empty, meaning no breakdown data.
	RichLocation string
	Fetcher      datasource.Fetcher
	// Logger receives warnings. Nil discards them.
	Logger *slog.Logger
}

// Dataset is everything read from the artifacts.
type Dataset struct {
	Clusters []model.ClusterRecord
	Rich     *model.RichIndex
	Warnings []DegradedLoadWarning
	// DataHash is a short BLAKE3 digest of both raw payloads.
	DataHash string
	LoadedAt time.Time
}

// Load fetches both artifacts concurrently. A primary failure returns a
// *FatalLoadError; an optional failure is recorded on Dataset.Warnings.
func Load(ctx context.Context, opts Options) (*Dataset, error) {
	defer metrics.Timer(metrics.DataLoad)()
	defer debug.LogEnterExit("loader.Load")()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var (
		primary *datasource.Payload
		rich    *datasource.Payload
		richErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := opts.Fetcher.Fetch(gctx, datasource.ParseLocation(opts.DataLocation))
		if err != nil {
			return err
		}
		primary = p
		return nil
	})
	if opts.RichLocation != "" {
		// Never fails the group; the outcome is inspected after Wait.
		g.Go(func() error {
			rich, richErr = opts.Fetcher.Fetch(ctx, datasource.ParseLocation(opts.RichLocation))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &FatalLoadError{Location: opts.DataLocation, Err: err}
	}

	clusters, err := DecodeClusters(primary.JSON)
	if err != nil {
		return nil, &FatalLoadError{Location: opts.DataLocation, Err: err}
	}

	ds := &Dataset{
		Clusters: clusters,
		Rich:     model.NewRichIndex(),
		LoadedAt: time.Now(),
	}

	if opts.RichLocation != "" {
		if richErr == nil {
			ds.Rich, richErr = DecodeRich(rich.JSON)
		}
		if richErr != nil {
			w := DegradedLoadWarning{Location: opts.RichLocation, Err: richErr}
			ds.Warnings = append(ds.Warnings, w)
			ds.Rich = model.NewRichIndex()
			logger.Warn("breakdown data unavailable",
				slog.String("location", opts.RichLocation),
				slog.Any("error", richErr))
		}
	}

	var richRaw []byte
	if rich != nil {
		richRaw = rich.Raw
	}
	ds.DataHash = hashPayloads(primary.Raw, richRaw)

	debug.Log("loaded %d clusters, %d breakdowns, hash %s", len(ds.Clusters), ds.Rich.Len(), ds.DataHash)
	return ds, nil
}

// DecodeClusters parses the cluster_data.json array.
func DecodeClusters(data []byte) ([]model.ClusterRecord, error) {
	defer metrics.Timer(metrics.JSONParsing)()
	var clusters []model.ClusterRecord
	if err := json.Unmarshal(data, &clusters); err != nil {
		return nil, fmt.Errorf("decoding cluster records: %w", err)
	}
	if clusters == nil {
		return nil, errors.New("decoding cluster records: expected a JSON array")
	}
	return clusters, nil
}

// DecodeRich parses the cluster_data_rich.json object keyed by cluster id.
func DecodeRich(data []byte) (*model.RichIndex, error) {
	defer metrics.Timer(metrics.JSONParsing)()
	var raw map[string]model.RichCluster
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding breakdown data: %w", err)
	}
	idx := model.NewRichIndex()
	for key, rc := range raw {
		idx.Add(key, rc.Breakdown)
	}
	return idx, nil
}

func hashPayloads(primary, rich []byte) string {
	h := blake3.New()
	h.Write(primary)
	h.Write([]byte{0})
	h.Write(rich)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
