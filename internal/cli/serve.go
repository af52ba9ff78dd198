package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spreadline/pkg/cache"
	"github.com/matzehuels/spreadline/pkg/contextual"
	"github.com/matzehuels/spreadline/pkg/observability"
	"github.com/matzehuels/spreadline/pkg/pipeline"
	"github.com/matzehuels/spreadline/pkg/render"
	"github.com/matzehuels/spreadline/pkg/render/sink"
	"github.com/matzehuels/spreadline/pkg/store"
)

// contentTypes maps output formats to HTTP content types.
var contentTypes = map[string]string{
	pipeline.FormatJSON: "application/json",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatDOT:  "text/vnd.graphviz",
}

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr       string
	categories string
	contexts   string
	profiles   string
	groups     string
	configFile string
	redisURL   string
	mongoURI   string
	mongoDB    string
	watch      bool
	noCache    bool
}

// serveCommand creates the serve command that exposes fits over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve storyline fits over an HTTP API",
		Long: `Serve loads interaction data once and answers GET /layout requests with
fitted storyline geometry. With --watch the data file is reloaded on change;
with --redis results are cached in Redis; with --mongo fitted geometry is
persisted across restarts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.categories, "categories", "", "entity category CSV file")
	cmd.Flags().StringVar(&opts.contexts, "contexts", "", "contextual intensity CSV file")
	cmd.Flags().StringVar(&opts.profiles, "profiles", "", "2D profile CSV file")
	cmd.Flags().StringVar(&opts.groups, "groups", "", "tier assignment YAML file")
	cmd.Flags().StringVar(&opts.configFile, "config", defaultConfigFile, "TOML config file")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Redis URL for result caching (e.g. redis://localhost:6379/0)")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo", "", "MongoDB URI for fit persistence")
	cmd.Flags().StringVar(&opts.mongoDB, "mongo-db", appName, "MongoDB database name")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the data file on change")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable result caching")

	return cmd
}

// server holds the state shared by all layout requests. The data snapshot is
// guarded by mu so --watch reloads never race in-flight requests.
type server struct {
	cli    *CLI
	runner *pipeline.Runner
	store  *store.Mongo

	mu      sync.RWMutex
	data    pipeline.Data
	cfg     pipeline.Config
	version int
}

// runServe wires the dependencies and blocks until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, input string, opts *serveOpts) error {
	explicit := opts.configFile != defaultConfigFile
	fc, err := loadFileConfig(opts.configFile, explicit)
	if err != nil {
		return err
	}
	mapping := fc.Mapping
	if mapping == (pipeline.Mapping{}) {
		mapping = pipeline.DefaultMapping()
	}

	sources := &fitOpts{
		categories: opts.categories,
		contexts:   opts.contexts,
		profiles:   opts.profiles,
		groups:     opts.groups,
	}
	data, err := loadData(ctx, input, sources, mapping)
	if err != nil {
		return err
	}
	c.Logger.Infof("Loaded %d interactions from %s", len(data.Topology), input)

	var resultCache cache.Cache
	if opts.redisURL != "" {
		resultCache, err = cache.NewRedisCache(ctx, opts.redisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	} else {
		resultCache, err = newCache(opts.noCache)
		if err != nil {
			return err
		}
	}
	runner := pipeline.NewRunner(resultCache, nil, c.Logger)
	defer runner.Close()

	srv := &server{cli: c, runner: runner, data: data, cfg: fc.Config}

	if opts.mongoURI != "" {
		srv.store, err = store.NewMongo(ctx, opts.mongoURI, opts.mongoDB)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer srv.store.Close(context.Background())
	}

	if opts.watch {
		stop, werr := srv.watchFile(ctx, input, sources, mapping)
		if werr != nil {
			return werr
		}
		defer stop()
	}

	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Infof("Listening on %s", opts.addr)
		if serr := httpServer.ListenAndServe(); !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case serr := <-errCh:
		return serr
	}
}

// routes builds the chi router with request-id and telemetry middleware.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.telemetry)
	r.Get("/healthz", s.handleHealth)
	r.Get("/layout", s.handleLayout)
	return r
}

// requestID tags every request with a UUID, echoed in the response header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, req)
	})
}

// telemetry reports request lifecycle events through the serve hooks and
// attaches a request-scoped logger to the context.
func (s *server) telemetry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		logger := s.cli.Logger.With("request_id", w.Header().Get("X-Request-ID"))
		req = req.WithContext(withLogger(req.Context(), logger))
		observability.Serve().OnRequest(req.Context(), req.Method, req.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		observability.Serve().OnResponse(req.Context(), req.Method, req.URL.Path, rec.status, time.Since(start))
	})
}

// statusRecorder captures the response status for telemetry.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}

// handleLayout computes (or serves persisted) fit geometry for one ego.
func (s *server) handleLayout(w http.ResponseWriter, req *http.Request) {
	opts, format, err := layoutOptions(req)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.RLock()
	data, cfg, version := s.data, s.cfg, s.version
	s.mu.RUnlock()

	// Persisted geometry short-circuits the pipeline. DOT needs the network,
	// so it always recomputes.
	logger := loggerFromContext(req.Context())
	key := s.layoutKey(version, opts)
	if s.store != nil && format != pipeline.FormatDOT {
		geometry, ok, lerr := s.store.Load(req.Context(), key)
		if lerr != nil {
			logger.Warnf("store load failed: %v", lerr)
		} else if ok {
			body, serr := serializeGeometry(geometry, format, opts, data.Colors)
			if serr == nil {
				w.Header().Set("Content-Type", contentTypes[format])
				w.Header().Set("X-Store", "hit")
				w.Write(body)
				return
			}
			logger.Warnf("persisted geometry unusable: %v", serr)
		}
	}

	res, err := s.runner.Execute(req.Context(), data, opts, cfg)
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if s.store != nil {
		if serr := s.store.Save(req.Context(), key, res.Geometry); serr != nil {
			logger.Warnf("store save failed: %v", serr)
		}
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Write(res.Artifacts[format])
}

// layoutOptions parses the query string into pipeline options. The format
// parameter selects exactly one artifact.
func layoutOptions(req *http.Request) (pipeline.Options, string, error) {
	q := req.URL.Query()

	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatJSON
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return pipeline.Options{}, "", err
	}

	opts := pipeline.Options{
		Ego:       q.Get("ego"),
		Layout:    q.Get("layout"),
		RawLayout: q.Get("rawLayout"),
		TimeRange: [2]string{q.Get("from"), q.Get("to")},
		Formats:   []string{format},
	}
	for name, dst := range map[string]*float64{
		"width": &opts.Width, "height": &opts.Height, "blockWidth": &opts.BlockWidth,
	} {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, "", fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = f
		}
	}
	if v := q.Get("maxHops"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, "", fmt.Errorf("invalid maxHops: %q", v)
		}
		opts.MaxHops = n
	}
	if v := q.Get("profileMatch"); v != "" {
		opts.ProfileMatch = contextual.MatchPolicy(v)
	}
	for name, dst := range map[string]*bool{
		"normalizeProfile": &opts.NormalizeProfile, "centerProfile": &opts.CenterProfile,
	} {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, "", fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = b
		}
	}
	return opts, format, nil
}

// layoutKey identifies one (data version, options) fit in the store.
func (s *server) layoutKey(version int, opts pipeline.Options) string {
	payload, _ := json.Marshal(opts)
	return fmt.Sprintf("%s:v%d:%s", appName, version, cache.Hash(payload)[:16])
}

// serializeGeometry renders persisted geometry without rerunning the
// pipeline.
func serializeGeometry(geometry *render.Result, format string, opts pipeline.Options, colors map[string]string) ([]byte, error) {
	switch format {
	case pipeline.FormatJSON:
		return sink.RenderJSON(geometry, sink.WithJSONLayout(opts.Layout))
	case pipeline.FormatSVG:
		svgOpts := []sink.SVGOption{sink.WithBands(), sink.WithLabels()}
		if opts.Width > 0 && opts.Height > 0 {
			svgOpts = append(svgOpts, sink.WithFrame(opts.Width, opts.Height))
		}
		if len(colors) > 0 {
			svgOpts = append(svgOpts, sink.WithColors(colors))
		}
		return sink.RenderSVG(geometry, svgOpts...), nil
	default:
		return nil, fmt.Errorf("format %s cannot be served from persisted geometry", format)
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// watchFile reloads the data snapshot whenever the file changes on disk.
func (s *server) watchFile(ctx context.Context, input string, sources *fitOpts, m pipeline.Mapping) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(input); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				data, lerr := loadData(ctx, input, sources, m)
				if lerr != nil {
					s.cli.Logger.Warnf("reload %s: %v", input, lerr)
					continue
				}
				s.mu.Lock()
				s.data = data
				s.version++
				s.mu.Unlock()
				s.cli.Logger.Infof("Reloaded %s: %d interactions", input, len(data.Topology))
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.cli.Logger.Warnf("watch error: %v", werr)
			}
		}
	}()

	return watcher.Close, nil
}
