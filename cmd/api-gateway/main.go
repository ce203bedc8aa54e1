package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sgolovin/ecommerce-events/internal/config"
	"github.com/sgolovin/ecommerce-events/internal/discovery"
)

// fallbacks are used when Consul has no healthy instance, matching the
// default service addresses.
var fallbacks = map[string]string{
	"order-service":       "http://localhost:8081",
	"inventory-service":   "http://localhost:8082",
	"transaction-service": "http://localhost:8083",
	"fraud-service":       "http://localhost:8084",
}

type Gateway struct {
	consul   *discovery.ConsulClient
	logger   *zap.Logger
	mutex    sync.RWMutex
	proxies  map[string]*httputil.ReverseProxy
	services map[string]string
}

func NewGateway(consul *discovery.ConsulClient, logger *zap.Logger) *Gateway {
	g := &Gateway{
		consul:   consul,
		logger:   logger,
		proxies:  make(map[string]*httputil.ReverseProxy),
		services: make(map[string]string),
	}

	g.discoverServices()
	return g
}

func (g *Gateway) discoverServices() {
	for svc, fallback := range fallbacks {
		serviceURL := fallback
		if g.consul != nil {
			if discovered, err := g.consul.GetServiceURL(svc); err == nil {
				serviceURL = discovered
			} else {
				g.logger.Warn("service not in Consul, using fallback", zap.String("service", svc), zap.Error(err))
			}
		}
		g.updateProxy(svc, serviceURL)
	}
}

func (g *Gateway) updateProxy(serviceName, serviceURL string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	target, err := url.Parse(serviceURL)
	if err != nil {
		g.logger.Error("invalid service URL", zap.String("service", serviceName), zap.Error(err))
		return
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.logger.Error("proxy error", zap.String("service", serviceName), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error": "service unavailable"}`)
	}

	g.proxies[serviceName] = proxy
	g.services[serviceName] = serviceURL
}

// watchServices refreshes routes as instances come and go.
func (g *Gateway) watchServices(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.discoverServices()
		}
	}
}

func (g *Gateway) proxyTo(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		g.mutex.RLock()
		proxy := g.proxies[serviceName]
		g.mutex.RUnlock()

		if proxy == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": serviceName + " unavailable"})
			return
		}
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// HealthCheck aggregates the health of every routed service.
func (g *Gateway) HealthCheck(c *gin.Context) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	statuses := make(map[string]string)
	allHealthy := true

	client := &http.Client{Timeout: 2 * time.Second}

	for name, serviceURL := range g.services {
		resp, err := client.Get(serviceURL + "/health")
		if err != nil || resp.StatusCode != http.StatusOK {
			statuses[name] = "unhealthy"
			allHealthy = false
		} else {
			statuses[name] = "healthy"
		}
		if resp != nil {
			resp.Body.Close()
		}
	}

	status := "healthy"
	if !allHealthy {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"service":  "api-gateway",
		"services": statuses,
	})
}

func (g *Gateway) ListServices(c *gin.Context) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	c.JSON(http.StatusOK, gin.H{"services": g.services})
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Parse()
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	consul, err := discovery.NewConsulClient(cfg.ConsulAddr, logger)
	if err != nil {
		logger.Warn("Consul unavailable, using static fallbacks", zap.Error(err))
		consul = nil
	}

	gateway := NewGateway(consul, logger)

	router := gin.Default()
	router.GET("/health", gateway.HealthCheck)
	router.GET("/services", gateway.ListServices)

	routes := map[string]string{
		"/orders":       "order-service",
		"/inventory":    "inventory-service",
		"/transactions": "transaction-service",
		"/fraud":        "fraud-service",
	}
	for prefix, svc := range routes {
		router.Any(prefix, gateway.proxyTo(svc))
		router.Any(prefix+"/*path", gateway.proxyTo(svc))
	}

	server := &http.Server{Addr: cfg.GatewayAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		gateway.watchServices(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting API gateway", zap.String("addr", cfg.GatewayAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("gateway terminated with error", zap.Error(err))
	}
	logger.Info("API gateway stopped gracefully")
}
