package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Route is one entry of the route index.
type Route struct {
	Method string `json:"method"`
	Route  string `json:"route"`
}

// IndexResponse lists every route the API serves.
type IndexResponse struct {
	Routes []Route `json:"routes"`
	Total  int     `json:"total"`
}

// HandleIndex lists the routes mounted on root, sorted by path then method.
// The walk happens per request so routes added after wiring still show up.
//
// HTTP: GET / and GET /api/v1
func HandleIndex(root chi.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routes := []Route{}
		err := chi.Walk(root, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			route = strings.ReplaceAll(route, "/*/", "/")
			if len(route) > 1 {
				route = strings.TrimSuffix(route, "/")
			}
			routes = append(routes, Route{Method: method, Route: route})
			return nil
		})
		if err != nil {
			writeError(w, err)
			return
		}

		sort.Slice(routes, func(i, j int) bool {
			if routes[i].Route != routes[j].Route {
				return routes[i].Route < routes[j].Route
			}
			return routes[i].Method < routes[j].Method
		})
		writeJSON(w, http.StatusOK, IndexResponse{Routes: routes, Total: len(routes)})
	}
}
