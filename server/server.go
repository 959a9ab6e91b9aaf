package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/api"
	"github.com/dekarrin/potluck/auth"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
	"github.com/dekarrin/potluck/logging"
	"github.com/dekarrin/potluck/middle"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// restServer is an HTTP REST server that provides resources. The zero-value of
// a restServer should not be used directly; call NewServer() to get one ready
// for use.
type restServer struct {
	mtx      *sync.Mutex
	rtr      chi.Router
	closing  bool
	closed   bool
	serving  bool
	http     *http.Server
	apis     map[string]potluck.API
	apiOrder []string
	pool     *db.Pool
	cfg      potluck.Config // config that it was started with.

	log potluck.Logger // used for logging. if logging disabled, this will be set to a no-op logger

	mid      *middle.Provider
	metrics  *middle.Metrics
	registry *prometheus.Registry
}

// NewServer creates a new RESTServer. The configured database is connected to
// and migrated before this function returns, and the built-in data and auth
// APIs are added. The config is retained for future operations.
func (env *Environment) NewServer(ctx context.Context, cfg *potluck.Config) (potluck.RESTServer, error) {
	env.initDefaults()

	// check config
	if cfg == nil {
		cfg = &potluck.Config{}
	} else {
		copy := new(potluck.Config)
		*copy = *cfg
		cfg = copy
	}
	*cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var logger potluck.Logger = logging.NoOpLogger{}
	// config is loaded, make the first thing we start be our logger
	if cfg.Log.Enabled {
		var err error

		logger, err = logging.New(cfg.Log.Provider, cfg.Log.File, logging.RotationFromConfig(cfg.Log))
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}

	pool, err := env.connectors.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect DB: %w", err)
	}
	logger.Debugf("Connected to %s DB", cfg.DB.Type)

	rs := &restServer{
		apis: map[string]potluck.API{},
		mtx:  &sync.Mutex{},
		pool: pool,
		cfg:  *cfg,
		log:  logger,
		mid:  &middle.Provider{},
	}

	if err := rs.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return rs, nil
}

// init sets up everything the server owns beyond its DB connection.
func (rs *restServer) init(ctx context.Context) error {
	store := dao.New(rs.pool.Dialect(), rs.log)

	if rs.cfg.Auth.SetAdmin != "" {
		if err := rs.ensureAdmin(ctx, store); err != nil {
			return fmt.Errorf("set admin: %w", err)
		}
	}

	if rs.cfg.Metrics.Enabled {
		rs.registry = prometheus.NewRegistry()
		rs.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rs.metrics = middle.NewMetrics(rs.registry)
	}

	if err := rs.Add("/", &api.DataAPI{Pool: rs.pool, Store: store}); err != nil {
		return fmt.Errorf("add data API: %w", err)
	}
	if err := rs.Add("/auth", api.NewAuthAPI(rs.cfg.Auth, rs.pool, store)); err != nil {
		return fmt.Errorf("add auth API: %w", err)
	}

	// requests without a specific authenticator are checked for an API key
	if err := rs.mid.RegisterMainAuthenticator(auth.KeyAuthName); err != nil {
		return err
	}

	return nil
}

func (rs *restServer) ensureAdmin(ctx context.Context, store *dao.Store) error {
	username, password, err := potluck.ParseSetAdmin(rs.cfg.Auth.SetAdmin)
	if err != nil {
		return err
	}

	lease, err := rs.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	user, err := auth.UserService{Store: store}.EnsureAdmin(ctx, lease, username, password)
	if err != nil {
		return err
	}

	rs.log.Infof("Ensured admin user %q exists (ID %d)", user.Username, user.ID)
	return nil
}

// Config returns the configuration that the server used during creation.
// Modifying the returned config will have no effect on the server.
func (rs restServer) Config() potluck.Config {
	return rs.cfg.FillDefaults()
}

// Handler returns the handler that serves every route of the server.
func (rs *restServer) Handler() http.Handler {
	rs.checkCreatedViaNew()
	return rs.routeAllAPIs()
}

// RoutesIndex returns a human-readable formatted string that lists all routes
// and methods currently available in the server.
func (rs *restServer) RoutesIndex() string {
	rs.checkCreatedViaNew()
	routeMethods := map[string][]string{}

	r := rs.routeAllAPIs()
	chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = cleanRoute(route)

		meths, ok := routeMethods[route]
		if !ok {
			meths = []string{}
		}

		meths = append(meths, method)
		routeMethods[route] = meths

		return nil
	})

	// alphabetize the routes
	allRoutes := []string{}
	for name := range routeMethods {
		allRoutes = append(allRoutes, name)
	}
	sort.Strings(allRoutes)

	// write the sorted routes
	var sb strings.Builder
	for _, r := range allRoutes {
		sb.WriteString("* ")
		sb.WriteString(r)
		sb.WriteString(" - ")

		meths := routeMethods[r]
		sort.Strings(meths)
		for i, m := range meths {
			sb.WriteString(m)
			if i+1 < len(meths) {
				sb.WriteString(", ")
			}
		}
		sb.WriteRune('\n')
	}

	return potluck.UnPathParam(strings.TrimSpace(sb.String()))
}

// cleanRoute removes the mount wildcards that chi leaves in walked routes, as
// well as any trailing slash.
func cleanRoute(route string) string {
	for strings.Contains(route, "/*/") {
		route = strings.ReplaceAll(route, "/*/", "/")
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return route
}

// routeAllAPIs is called just before serving. it gets all added APIs and
// mounts them in the base router.
func (rs *restServer) routeAllAPIs() chi.Router {
	rs.mtx.Lock()
	defer rs.mtx.Unlock()

	if rs.rtr != nil {
		return rs.rtr
	}

	sp := endpointCreator{mid: rs.mid, log: rs.log}

	// Create root router
	root := chi.NewRouter()
	root.Use(rs.mid.RequestID(), rs.mid.DontPanic(sp))
	if rs.metrics != nil {
		root.Use(rs.metrics.Middleware())
	}

	notFound := sp.Endpoint(func(req *http.Request) potluck.Result {
		return sp.Error(potluck.ErrNotFound, "no route for %s", req.URL.Path)
	})
	notAllowed := sp.Endpoint(func(req *http.Request) potluck.Result {
		return sp.TextErr(http.StatusMethodNotAllowed, "method not allowed", "%s not allowed on %s", req.Method, req.URL.Path)
	})

	// subrouters are given these when mounted, so they must be set first
	root.NotFound(notFound)
	root.MethodNotAllowed(notAllowed)

	if rs.registry != nil {
		root.Get(rs.cfg.Metrics.Path, promhttp.HandlerFor(rs.registry, promhttp.HandlerOpts{}).ServeHTTP)
	}

	// make server base router
	r := root
	if rs.cfg.Globals.URIBase != "/" {
		r = chi.NewRouter()
		r.NotFound(notFound)
		r.MethodNotAllowed(notAllowed)
	}

	for _, base := range rs.apiOrder {
		apiRouter := rs.apis[base].Routes(sp)
		if apiRouter != nil {
			r.Mount(base, apiRouter)
		}
	}

	if r != root {
		root.Mount(rs.cfg.Globals.URIBase, r)
	}

	rs.rtr = root

	return root
}

// Add mounts the given API at base, which is relative to the server's URI
// base, and registers every authenticator it provides. Bases are
// case-insensitive; it is an error to use the same one in two calls to Add on
// the same RESTServer.
func (rs *restServer) Add(base string, a potluck.API) error {
	rs.checkCreatedViaNew()

	base = strings.ToLower(base)
	if !strings.HasPrefix(base, "/") {
		return fmt.Errorf("API base %q must start with '/'", base)
	}
	if len(base) > 1 {
		base = strings.TrimRight(base, "/")
	}

	// aquire mtx to modify the stored router
	rs.mtx.Lock()
	defer rs.mtx.Unlock()

	if _, ok := rs.apis[base]; ok {
		return fmt.Errorf("an API is already mounted at %q", base)
	}

	for name, a := range a.Authenticators() {
		if err := rs.mid.RegisterAuthenticator(name, a); err != nil {
			return fmt.Errorf("register authenticator: %w", err)
		}
	}

	// make sure to reset the router so we don't re-use it
	rs.rtr = nil

	rs.apis[base] = a
	rs.apiOrder = append(rs.apiOrder, base)
	rs.log.Debugf("Added API at %q", base)

	return nil
}

func (rs *restServer) checkCreatedViaNew() {
	if rs.mtx == nil {
		panic("server mutex is in invalid state; was this RESTServer created with NewServer()?")
	}
}

// ServeForever begins listening on the server's configured address and port for
// HTTP REST client requests.
//
// This function will block until the server is stopped. If it returns as a
// result of rs.Shutdown() being called elsewhere, it will return
// http.ErrServerClosed.
func (rs *restServer) ServeForever() (err error) {
	rs.checkCreatedViaNew()
	rs.mtx.Lock()
	if rs.closed {
		rs.mtx.Unlock()
		return fmt.Errorf("server has been shut down")
	}
	if rs.serving {
		rs.mtx.Unlock()
		return fmt.Errorf("server is already running")
	}
	rs.serving = true
	rs.mtx.Unlock()

	addr := fmt.Sprintf("%s:%d", rs.cfg.Globals.Address, rs.cfg.Globals.Port)

	// calling into API code, do a panic check
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while running server: %v", r)
		}
	}()
	rtr := rs.routeAllAPIs()

	rs.mtx.Lock()
	rs.http = &http.Server{Addr: addr, Handler: rtr, ReadHeaderTimeout: 10 * time.Second}
	srv := rs.http
	rs.mtx.Unlock()

	defer func() {
		rs.mtx.Lock()
		rs.serving = false
		rs.mtx.Unlock()
	}()

	rs.log.Infof("Listening on %s", addr)
	return srv.ListenAndServe()
}

// Shutdown shuts down the server gracefully, first closing the HTTP server to
// new connections, then shutting down each API the server has, and finally
// closing the DB pool. This will cause ServeForever to return in any Go thread
// that is blocking on it. If the passed-in context is canceled while shutting
// down, graceful shutdown of the HTTP server and the APIs is halted, but the
// pool is still closed.
//
// Shutdown may be called on a server that is not serving, which releases its
// resources. Once Shutdown returns, the RESTServer should not be used again.
func (rs *restServer) Shutdown(ctx context.Context) error {
	rs.checkCreatedViaNew()
	rs.mtx.Lock()
	defer rs.mtx.Unlock()
	if rs.closing {
		return fmt.Errorf("close already in-progress in another goroutine")
	}
	if rs.closed {
		return fmt.Errorf("server has already been shut down")
	}
	rs.closing = true
	defer func() {
		rs.closing = false
		rs.closed = true
	}()

	fullError := rs.shutdownHTTPAndAPIs(ctx)

	if err := rs.pool.Close(); err != nil {
		fullError = addError(fullError, fmt.Errorf("close DB: %w", err))
	}

	return fullError
}

func (rs *restServer) shutdownHTTPAndAPIs(ctx context.Context) error {
	var fullError error

	if rs.http != nil {
		err := rs.http.Shutdown(ctx)
		if err != nil {
			fullError = fmt.Errorf("stop HTTP server: %w", err)
		}
		rs.http = nil
		if err != nil && err == ctx.Err() {
			// if its due to the context expiring or timing out, we should
			// immediately exit without waiting for clean shutdown of the APIs.
			return fullError
		}
	}

	// call life-cycle shutdown on each API
	for _, base := range rs.apiOrder {
		select {
		case <-ctx.Done():
			// for context end, immediately close
			return addError(fullError, ctx.Err())
		default:
			if err := rs.apis[base].Shutdown(ctx); err != nil {
				fullError = addError(fullError, fmt.Errorf("shutdown API at %q: %w", base, err))
			}
		}
	}

	return fullError
}

func addError(full, err error) error {
	if full == nil {
		return err
	}
	return fmt.Errorf("%s\nadditionally: %w", full, err)
}
