// Command dealscoutd serves the negotiation engine over HTTP, streaming
// batch progress as Server-Sent Events.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/dealscout/dealscout"
	"github.com/dealscout/dealscout/catalog"
	"github.com/dealscout/dealscout/catalog/sqlite"
	"github.com/dealscout/dealscout/config"
	"github.com/dealscout/dealscout/core"
	"github.com/dealscout/dealscout/logging"
	"github.com/dealscout/dealscout/provider"
	anthropicprovider "github.com/dealscout/dealscout/provider/anthropic"
	openaiprovider "github.com/dealscout/dealscout/provider/openai"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("DEALSCOUT_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.NewSlogLogger(parseLevel(cfg.LogLevel), "json", false).WithComponent("dealscoutd")

	shutdown, err := initTracer("dealscoutd")
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed: %v", err)
		}
	}()

	store, err := buildCatalog(cfg)
	if err != nil {
		log.Fatalf("failed to initialize catalog: %v", err)
	}

	buyer, seller := buildProviders(cfg)
	logger.Info("decision providers ready buyer=%s seller=%s", buyer.Info().Vendor, seller.Info().Vendor)

	ds := dealscout.New(buyer, seller, func(o *dealscout.Options) {
		o.Catalog = store
		o.SessionConfig = core.SessionConfig{
			MaxTurns:             cfg.Negotiation.MaxTurns,
			ConvergenceThreshold: cfg.Negotiation.ConvergenceThreshold,
			ClosePolicy:          core.ClosePolicy(cfg.Negotiation.ClosePolicy),
		}
		o.ProviderTimeout = cfg.Provider.Timeout()
		o.LaunchDelay = cfg.Scheduler.LaunchDelay()
		o.BuyerBudgetMultiplier = cfg.Negotiation.BuyerBudgetMultiplier
		o.SellerMinimumMultiplier = cfg.Negotiation.SellerMinimumMultiplier
		o.Logger = logger
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "dealscoutd")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/listings", listListings(store))
	r.Post("/negotiation/parallel", negotiateSSE(ds, logger))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("starting server addr=%s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func initTracer(serviceName string) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func buildCatalog(cfg *config.Config) (catalog.Store, error) {
	if cfg.Catalog.SQLitePath != "" {
		return sqlite.New(cfg.Catalog.SQLitePath)
	}
	store := catalog.NewInMemoryStore()
	if err := catalog.SeedDemo(context.Background(), store); err != nil {
		return nil, err
	}
	return store, nil
}

func buildProviders(cfg *config.Config) (provider.Provider, provider.Provider) {
	switch cfg.Provider.Vendor {
	case "openai":
		mk := func() provider.Provider {
			return openaiprovider.New(func(o *openaiprovider.Options) {
				if cfg.Provider.Model != "" {
					o.Model = cfg.Provider.Model
				}
				o.Temperature = cfg.Provider.Temperature
			})
		}
		return mk(), mk()
	case "anthropic":
		mk := func() provider.Provider {
			return anthropicprovider.New(func(o *anthropicprovider.Options) {
				if cfg.Provider.Model != "" {
					o.Model = anthropic.Model(cfg.Provider.Model)
				}
				o.Temperature = cfg.Provider.Temperature
			})
		}
		return mk(), mk()
	default:
		return provider.NewRuleBasedBuyer(), provider.NewRuleBasedSeller()
	}
}

func listListings(store catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := catalog.Query{Text: r.URL.Query().Get("q")}
		if v := r.URL.Query().Get("max_price"); v != "" {
			if maxPrice, err := strconv.ParseFloat(v, 64); err == nil {
				q.MaxPrice = maxPrice
			}
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if limit, err := strconv.Atoi(v); err == nil {
				q.Limit = limit
			}
		}

		listings, err := store.Search(r.Context(), q)
		if err != nil {
			http.Error(w, "catalog search failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(listings)
	}
}

func negotiateSSE(ds *dealscout.DealScout, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dealscout.NegotiateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		batchID, events, errs, err := ds.Negotiate(r.Context(), req)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, core.ErrNoCandidates) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		for ev := range events {
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
		if err := <-errs; err != nil {
			logger.Warn("batch ended with error batch_id=%s err=%v", batchID, err)
		}
	}
}

func parseLevel(level string) logging.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logging.LogLevelDebug
	case "WARN":
		return logging.LogLevelWarn
	case "ERROR":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
