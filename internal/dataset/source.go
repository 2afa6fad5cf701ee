// Package dataset loads the dashboard tables from a directory, an HTTP base
// URL or the built-in demo data.
package dataset

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/htm-dashboard/internal/fetcher"
)

// Source opens a named table file such as "countries.csv".
type Source interface {
	Open(ctx context.Context, name string) ([]byte, error)
	String() string
}

// DirSource reads tables from a local directory.
type DirSource struct {
	Dir string
}

// Open reads Dir/name.
func (s DirSource) Open(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, filepath.Base(name)))
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", name)
	}
	return data, nil
}

func (s DirSource) String() string { return s.Dir }

// HTTPSource downloads tables relative to a base URL.
type HTTPSource struct {
	BaseURL string
	Fetcher fetcher.Fetcher
}

// Open fetches BaseURL/name.
func (s HTTPSource) Open(ctx context.Context, name string) ([]byte, error) {
	u, err := url.JoinPath(s.BaseURL, name)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: build url for %s", name)
	}
	data, err := s.Fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: fetch %s", name)
	}
	return data, nil
}

func (s HTTPSource) String() string { return s.BaseURL }

// NewSource picks a Source for the configured location. An empty location
// returns nil, which callers treat as "use the demo dataset".
func NewSource(location string, timeout time.Duration) Source {
	switch {
	case location == "":
		return nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return HTTPSource{
			BaseURL: location,
			Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: timeout}),
		}
	default:
		return DirSource{Dir: location}
	}
}
