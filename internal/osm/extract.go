package osm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/places-of-worship/places-cli/internal/places"
)

const userAgent = "places-cli/1.0 (academic research)"

// Options configure an Extractor.
type Options struct {
	Servers     []string      // Overpass endpoints, used round-robin
	OutputDir   string        // per-country raw and normalized JSON land here
	Concurrency int           // concurrent country extractions, default 2
	Pace        time.Duration // minimum spacing between Overpass requests
	Timeout     time.Duration // per-request timeout, default 30m
	Client      *http.Client  // optional, defaults to a client with Timeout
}

// Extractor pulls places of worship per country from the Overpass API.
// Raw element responses are cached on disk so a re-run does not re-query
// countries that already completed. There is deliberately no retry logic:
// a failed country yields an empty result and a logged error, and the
// calling pipeline owns any retry policy.
type Extractor struct {
	client    *http.Client
	servers   []string
	outputDir string
	conc      int
	timeout   time.Duration
	limiter   *rate.Limiter

	mu   sync.Mutex
	next int
}

// NewExtractor builds an Extractor and creates the output directory.
func NewExtractor(opts Options) (*Extractor, error) {
	if len(opts.Servers) == 0 {
		return nil, eris.New("osm: at least one Overpass server is required")
	}
	if opts.OutputDir == "" {
		return nil, eris.New("osm: output directory is required")
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "osm: create output dir %s", opts.OutputDir)
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Minute
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.Pace > 0 {
		limit = rate.Every(opts.Pace)
	}

	return &Extractor{
		client:    opts.Client,
		servers:   opts.Servers,
		outputDir: opts.OutputDir,
		conc:      opts.Concurrency,
		timeout:   opts.Timeout,
		limiter:   rate.NewLimiter(limit, 1),
	}, nil
}

// nextServer rotates through the configured Overpass endpoints to spread
// load.
func (e *Extractor) nextServer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	server := e.servers[e.next]
	e.next = (e.next + 1) % len(e.servers)
	return server
}

// Countries extracts every listed country with bounded concurrency and
// politeness pacing, writing a normalized per-country JSON file alongside
// the raw cache. Countries that fail are logged and reported as empty.
func (e *Extractor) Countries(ctx context.Context, codes []string) (map[string][]places.Place, error) {
	log := zap.L().With(zap.String("component", "osm.extractor"))

	results := make(map[string][]places.Place, len(codes))
	var resultsMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.conc)

	for _, code := range codes {
		code := code
		g.Go(func() error {
			extracted, err := e.Country(ctx, code)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				log.Error("country extraction failed",
					zap.String("country", code),
					zap.Error(err),
				)
				extracted = nil
			}

			resultsMu.Lock()
			results[code] = extracted
			resultsMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "osm: extract countries")
	}
	return results, nil
}

// Country extracts one country: from the raw disk cache when present,
// otherwise from the next Overpass server. The normalized places are also
// written to <code>_places.json in the output directory.
func (e *Extractor) Country(ctx context.Context, code string) ([]places.Place, error) {
	log := zap.L().With(
		zap.String("component", "osm.extractor"),
		zap.String("country", code),
	)

	elements, cached, err := e.loadCached(code)
	if err != nil {
		log.Warn("raw cache read failed, re-querying", zap.Error(err))
	}
	if !cached {
		elements, err = e.query(ctx, code)
		if err != nil {
			return nil, err
		}
		if err := e.writeCache(code, elements); err != nil {
			log.Warn("raw cache write failed", zap.Error(err))
		}
	}
	log.Info("raw elements loaded", zap.Int("elements", len(elements)), zap.Bool("cached", cached))

	extracted := make([]places.Place, 0, len(elements))
	for _, el := range elements {
		if p := FromElement(el, code); p != nil {
			extracted = append(extracted, *p)
		}
	}
	log.Info("places normalized", zap.Int("places", len(extracted)))

	if err := writeJSON(e.placesPath(code), extracted); err != nil {
		return nil, err
	}
	return extracted, nil
}

func (e *Extractor) query(ctx context.Context, code string) ([]Element, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "osm: wait for request slot")
	}

	server := e.nextServer()
	query := BuildQuery(code, int(e.timeout.Seconds()))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server, strings.NewReader(query))
	if err != nil {
		return nil, eris.Wrap(err, "osm: build request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "osm: query %s for %s", server, code)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("osm: %s returned status %d for %s", server, resp.StatusCode, code)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "osm: read response for %s", code)
	}

	var parsed overpassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrapf(err, "osm: decode response for %s", code)
	}
	return parsed.Elements, nil
}

func (e *Extractor) loadCached(code string) ([]Element, bool, error) {
	raw, err := os.ReadFile(e.rawPath(code))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, eris.Wrapf(err, "osm: read cache for %s", code)
	}

	var elements []Element
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, false, eris.Wrapf(err, "osm: decode cache for %s", code)
	}
	return elements, true, nil
}

func (e *Extractor) writeCache(code string, elements []Element) error {
	return writeJSON(e.rawPath(code), elements)
}

func (e *Extractor) rawPath(code string) string {
	return filepath.Join(e.outputDir, strings.ToLower(code)+"_places_raw.json")
}

func (e *Extractor) placesPath(code string) string {
	return filepath.Join(e.outputDir, strings.ToLower(code)+"_places.json")
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "osm: marshal %s", path)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "osm: write %s", path)
	}
	return nil
}
