// Package server serves the habitat-occupancy dashboard: a single page
// showing the current per-cell active-lineage occupancy, pushed to the
// browser over a websocket as the simulation progresses.
package server

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"

	"github.com/nsamarasinghe/coalescence/server/cell_views"
	"github.com/nsamarasinghe/coalescence/server/fastview"
	"github.com/nsamarasinghe/coalescence/server/root_view"

	"github.com/gorilla/mux"
)

// Server serves a single page, to a single client, over a single
// websocket. Intentionally minimal: this is a run-observability tool, not
// a multi-tenant production webserver.
type Server struct {
	addr       string
	router     *mux.Router
	lastUpdate [][]cell_views.Cell
	rootView   *root_view.RootView
}

// NewServer initializes the dashboard's views and returns a Server.
// snapshots delivers a new occupancy Snapshot each time the simulation
// wants the dashboard refreshed (typically driven off reporter.ProgressSample).
func NewServer(
	ctx context.Context,
	addr string,
	initial cell_views.Snapshot,
	snapshots <-chan cell_views.Snapshot,
) (*Server, error) {
	rootView := root_view.NewRootView(ctx, initial, snapshots)

	s := &Server{
		addr:       addr,
		lastUpdate: cell_views.Convert(initial),
		rootView:   rootView,
	}

	router := mux.NewRouter()
	router.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.serveWebsocket)
	s.router = router

	return s, nil
}

func (s *Server) Serve() (err error) {
	if err = http.ListenAndServe(s.addr, s.router); err != nil {
		err = fmt.Errorf("serve: %w", err)
	}
	return
}

// serveWebsocket upgrades the connection and streams ele-updates to the
// client for as long as it stays connected.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(s.rootView.Updates(), w, r)
	if err != nil {
		log.Println("dashboard: websocket upgrade failed:", err)
		return
	}
	if err := cli.Sync(); err != nil {
		log.Println("dashboard: client disconnected:", err)
	}
}

// serveIndex serves the dashboard's single page, rendered with the
// occupancy snapshot the Server was constructed with (lastUpdate is not
// refreshed afterwards), so the first paint isn't blank before the
// websocket delivers its first push.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := renderTemplate(w, s.rootView, s.lastUpdate); err != nil {
		_, _ = w.Write([]byte(err.Error()))
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}
	err = t.Execute(w, data)
	return
}
