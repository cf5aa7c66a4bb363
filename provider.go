package osm2pgr

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// ErrProviderUnavailable is returned (wrapped) when graph provider can't give edges at all
var ErrProviderUnavailable = errors.New("Road graph provider is not available")

// EdgeProvider gives raw edges of road graph
type EdgeProvider interface {
	Edges(ctx context.Context) ([]RawEdge, error)
}

// EdgesSlice is in-memory provider
type EdgesSlice []RawEdge

// Edges returns copy of the slice, so node ID assignment does not touch caller's data
func (s EdgesSlice) Edges(ctx context.Context) ([]RawEdge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	edges := make([]RawEdge, len(s))
	copy(edges, s)
	return edges, nil
}

// NewFileProvider guesses provider by file extension: GeoJSON edge table or OSM XML/PBF
func NewFileProvider(fileName string, logger *slog.Logger) (EdgeProvider, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".geojson", ".json":
		return NewGeoJSONProvider(fileName, logger), nil
	case ".osm", ".xml", ".pbf":
		return NewOSMFileProvider(fileName, logger), nil
	default:
		return nil, fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, fileName)
	}
}
