package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/catalogo"
	catprom "github.com/hupe1980/catalogo/metrics/prometheus"
	"github.com/hupe1980/catalogo/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve searches over HTTP",
		Long: `Serves the catalog over HTTP:

  POST /search   JSON query in the body, JSON hits in the response
  GET  /indexes  index names and object counts
  GET  /metrics  Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			mc, err := catprom.New(reg)
			if err != nil {
				return err
			}
			s, err := o.open(ctx, catalogo.WithMetricsCollector(mc))
			if err != nil {
				return err
			}
			defer s.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           newHandler(s.catalog, reg),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			s.catalog.Logger().Info("listening", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return s.savePlans(context.WithoutCancel(ctx))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

type handler struct {
	catalog *catalogo.Catalog
}

func newHandler(c *catalogo.Catalog, reg *prometheus.Registry) http.Handler {
	h := &handler{catalog: c}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", h.search)
	mux.HandleFunc("GET /indexes", h.indexes)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

type searchResponse struct {
	Total int   `json:"total"`
	Hits  []hit `json:"hits"`
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := gojson.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid query: %v", err))
		return
	}
	res, err := h.catalog.Search(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalogo.ErrConfiguration) {
			status = http.StatusBadRequest
		}
		writeErrorResponse(w, status, err.Error())
		return
	}
	resp := searchResponse{Total: res.ActualResultCount(), Hits: make([]hit, 0, res.Len())}
	for _, b := range res.All() {
		resp.Hits = append(resp.Hits, newHit(b))
	}
	writeResponse(w, http.StatusOK, resp)
}

type indexInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Objects  int    `json:"objects"`
	Distinct int    `json:"distinct"`
}

func (h *handler) indexes(w http.ResponseWriter, _ *http.Request) {
	var infos []indexInfo
	for _, name := range h.catalog.IndexNames() {
		idx, ok := h.catalog.Index(name)
		if !ok {
			continue
		}
		infos = append(infos, indexInfo{
			Name:     name,
			Type:     idx.MetaType(),
			Objects:  idx.NumObjects(),
			Distinct: idx.IndexSize(),
		})
	}
	writeResponse(w, http.StatusOK, infos)
}

func writeResponse(w http.ResponseWriter, status int, response any) {
	body, err := gojson.Marshal(response)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "JSON serialization error")
		return
	}
	body = append(body, '\n')
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeResponse(w, status, map[string]string{"message": message})
}
