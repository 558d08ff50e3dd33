// Package root_view assembles the dashboard's single page: the occupancy
// view plus the websocket bootstrap script that drives it.
package root_view

import (
	"context"
	"html/template"
	"log"
	"time"

	"github.com/nsamarasinghe/coalescence/server/cell_views"
	"github.com/nsamarasinghe/coalescence/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// RootView is the main page's index.html, the container for all view
// components and the wiring for their channels.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the main page and the views it contains, from a stream
// of habitat-occupancy snapshots.
func NewRootView(
	ctx context.Context,
	initial cell_views.Snapshot,
	snapshots <-chan cell_views.Snapshot,
) *RootView {
	views, err := fastview.NewViewBuilder[cell_views.Snapshot, [][]cell_views.Cell]().
		WithContext(ctx).
		WithModel(snapshots, cell_views.Convert).
		WithView(func(
			done <-chan struct{},
			cellUpdates <-chan [][]cell_views.Cell) fastview.ViewComponent {
			return cell_views.NewOccupancyView(done, cellUpdates)
		}).
		Build()

	if err != nil {
		log.Fatal(err)
	}

	updates := fanIn(ctx.Done(), views)

	return &RootView{
		views:   views,
		updates: updates,
	}
}

// Updates returns the main ele-update channel for all the views.
func (rt *RootView) Updates() <-chan []fastview.EleUpdate {
	return rt.updates
}

// Parse builds the main page's template, with websocket bootstrap code, and
// returns its name. It also sets up the func-map child view components
// depend on.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(
		template.FuncMap{
			"add":  func(i, j int) int { return i + j },
			"sub":  func(i, j int) int { return i - j },
			"mult": func(i, j int) int { return i * j },
			"div":  func(i, j int) int { return i / j },
			"max": func(i, j int) int {
				if i > j {
					return i
				}
				return j
			},
		})

	viewTemplates := []string{}
	for _, vc := range rv.views {
		if tname, parseErr := vc.Parse(rt); parseErr != nil {
			err = parseErr
			return
		} else {
			viewTemplates = append(viewTemplates, tname)
		}
	}

	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += (`{{ template "` + tname + `" . }}`)
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<script>
				const ws = new WebSocket("ws://" + location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened")
				};

				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				ws.onmessage = function (event) {
					items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}
			</script>
		</head>
		<body>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}

// fanIn aggregates the views' ele-update channels into a single channel,
// throttling its output.
func fanIn(
	done <-chan struct{},
	views []fastview.ViewComponent,
) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		time.Millisecond*20)
}

// batchify batches within the passed time frame before sending, overwriting
// previously received values for the same ele-id so only the latest value
// per id is sent.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		data := map[string]fastview.EleUpdate{}
		last := time.Now()
		for updates := range channerics.OrDone(done, source) {
			for _, update := range updates {
				data[update.EleId] = update
			}

			if time.Since(last) > rate && len(updates) > 0 {
				select {
				case output <- slicedVals(data):
					data = map[string]fastview.EleUpdate{}
					last = time.Now()
				case <-done:
					return
				}
			}
		}
	}()

	return output
}

func slicedVals[T1 comparable, T2 any](mp map[T1]T2) (sliced []T2) {
	for _, v := range mp {
		sliced = append(sliced, v)
	}
	return
}
