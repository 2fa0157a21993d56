package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/launchr/internal/metrics"
	"github.com/loykin/launchr/internal/process"
	"github.com/loykin/launchr/internal/supervisor"
)

// Router exposes a read-only view of one supervised run.
// Endpoints:
//   GET {basePath}/status   run view with every child; ?name=... narrows to one
//   GET {basePath}/report   final report; 409 while the run is still going
//   GET /healthz            launcher liveness + coordinator phase
//   GET /metrics            prometheus exposition
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	sup      *supervisor.Supervisor
	sampler  *metrics.Sampler
	basePath string
}

// NewRouter constructs a Router with configurable basePath. The sampler is
// optional; without it child views carry no resource usage.
func NewRouter(sup *supervisor.Supervisor, sampler *metrics.Sampler, basePath string) *Router {
	return &Router{sup: sup, sampler: sampler, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/healthz", r.handleHealthz)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/report", r.handleReport)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router. The
// caller shuts it down via http.Server's Shutdown or Close.
func NewServer(addr, basePath string, sup *supervisor.Supervisor, sampler *metrics.Sampler) *http.Server {
	r := NewRouter(sup, sampler, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

// ChildView pairs a child's lifecycle status with its latest resource sample.
type ChildView struct {
	process.Status
	Usage *metrics.Sample `json:"usage,omitempty"`
}

type runView struct {
	RunID    string      `json:"run_id"`
	Phase    string      `json:"phase"`
	Children []ChildView `json:"children"`
}

type healthResp struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
	Phase  string `json:"phase"`
}

func (r *Router) handleStatus(c *gin.Context) {
	name := c.Query("name")
	if name != "" && !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-]"})
		return
	}
	children := r.children()
	if name == "" {
		writeJSON(c, http.StatusOK, runView{
			RunID:    r.sup.RunID(),
			Phase:    r.sup.Phase().String(),
			Children: children,
		})
		return
	}
	for _, cv := range children {
		if cv.Name == name {
			writeJSON(c, http.StatusOK, cv)
			return
		}
	}
	writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown process: " + name})
}

func (r *Router) handleReport(c *gin.Context) {
	if r.sup.Phase() != supervisor.PhaseDone {
		writeJSON(c, http.StatusConflict, errorResp{Error: "run still in progress"})
		return
	}
	// Wait returns immediately once the run is done.
	writeJSON(c, http.StatusOK, r.sup.Wait())
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, healthResp{
		Status: "ok",
		RunID:  r.sup.RunID(),
		Phase:  r.sup.Phase().String(),
	})
}

func (r *Router) children() []ChildView {
	statuses := r.sup.Statuses()
	var samples map[string]metrics.Sample
	if r.sampler != nil {
		samples = r.sampler.All()
	}
	out := make([]ChildView, 0, len(statuses))
	for _, st := range statuses {
		cv := ChildView{Status: st}
		if sm, ok := samples[st.Name]; ok {
			cv.Usage = &sm
		}
		out = append(out, cv)
	}
	return out
}
