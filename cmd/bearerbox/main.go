package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oonrumail/bearerbox/internal/adminapi"
	"github.com/oonrumail/bearerbox/internal/config"
	"github.com/oonrumail/bearerbox/internal/dlrstore"
	"github.com/oonrumail/bearerbox/internal/dlrstore/pgstore"
	"github.com/oonrumail/bearerbox/internal/dlrstore/redisstore"
	"github.com/oonrumail/bearerbox/internal/metrics"
	"github.com/oonrumail/bearerbox/internal/msg"
	"github.com/oonrumail/bearerbox/internal/smpp"
	"github.com/oonrumail/bearerbox/internal/smsbox"
	"github.com/oonrumail/bearerbox/internal/smscconn"
	"github.com/oonrumail/bearerbox/internal/urltrans"
)

func main() {
	configPath := flag.String("config", "bearerbox.yaml", "Path to configuration file")
	flag.Parse()

	bootstrap := initLogger("info")
	cfg, err := config.Load(*configPath, bootstrap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bearerbox: load config: %v\n", err)
		os.Exit(1)
	}
	bootstrap.Sync()

	logger := initLogger(cfg.Core.LogLevel)
	defer logger.Sync()

	logger.Info("starting bearerbox",
		zap.Int("smsc_connections", len(cfg.SMSCs)),
		zap.Int("sms_services", len(cfg.Services)),
	)

	store, closeStore, err := buildDLRStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize dlr store", zap.Error(err))
	}
	defer closeStore()

	translations, err := cfg.BuildTranslations()
	if err != nil {
		logger.Fatal("failed to assemble translations", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &gateway{
		logger:       logger,
		translations: translations,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}

	conns, err := buildSMSCConns(cfg, store, logger)
	if err != nil {
		logger.Fatal("failed to build smsc connections", zap.Error(err))
	}
	gw.router = smscconn.NewRouter(conns)

	if cfg.Core.SmsboxPort != 0 {
		addr := cfg.Core.SmsboxAddr()
		allow, deny := cfg.SmsboxIPLists()
		filter, err := smsbox.NewIPFilter(allow, deny)
		if err != nil {
			logger.Fatal("failed to build smsbox ip filter", zap.Error(err))
		}
		gw.smsbox = smsbox.NewServer(addr, filter, smsbox.Callbacks{
			Receive:    gw.handleFromSmsbox,
			Disconnect: func(*smsbox.Conn) { metrics.SmsboxConnections.Set(float64(len(gw.smsbox.Conns()))) },
		}, logger)
		if err := gw.smsbox.Listen(); err != nil {
			logger.Fatal("failed to bind smsbox listener", zap.Error(err))
		}
		go func() {
			if err := gw.smsbox.Serve(ctx); err != nil && ctx.Err() == nil {
				logger.Error("smsbox server stopped", zap.Error(err))
			}
		}()
	}

	for _, c := range conns {
		conn := c
		cb := smscconn.Callbacks{
			Sent: func(m *msg.Msg) {
				metrics.MessagesTotal.WithLabelValues(metrics.DirectionMT, metrics.StatusSent).Inc()
			},
			SendFailed: func(m *msg.Msg, reason smscconn.FailReason) {
				metrics.MessagesTotal.WithLabelValues(metrics.DirectionMT, metrics.StatusFailed).Inc()
			},
			Receive: gw.handleMO,
		}
		if err := conn.Open(cb); err != nil {
			logger.Error("failed to open smsc connection", zap.String("smsc_id", conn.ID), zap.Error(err))
		}
	}
	metrics.SMSCConnections.Set(float64(len(conns)))

	adminOpts := []adminapi.Option{adminapi.WithCORSOrigins(cfg.AdminCORSOrigins())}
	if username, hash, ok := cfg.AdminBasicAuth(); ok {
		adminOpts = append(adminOpts, adminapi.WithBasicAuth(username, hash))
	}
	admin := adminapi.NewServer(gw.router, gw.smsboxCount, logger, adminOpts...)
	adminAddr := cfg.Core.AdminAddr()
	adminSrv := &http.Server{Addr: adminAddr, Handler: admin.Router()}
	go func() {
		logger.Info("admin api listening", zap.String("addr", adminAddr))
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin api server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	cancel()
	for _, c := range conns {
		c.Shutdown(true)
	}
	if gw.smsbox != nil {
		gw.smsbox.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin api shutdown error", zap.Error(err))
	}

	logger.Info("bearerbox stopped")
}

// gateway bundles the collaborators handleMO/handleFromSmsbox need. It is
// not exported; cmd/bearerbox is the only caller of any of this.
type gateway struct {
	logger       *zap.Logger
	router       *smscconn.Router
	smsbox       *smsbox.Server
	translations *urltrans.List
	httpClient   *http.Client
}

func (g *gateway) smsboxCount() int {
	if g.smsbox == nil {
		return 0
	}
	return len(g.smsbox.Conns())
}

// handleMO is the smscconn.Callbacks.Receive upcall for every connection:
// an inbound MO is both keyword-routed against the configured sms-service
// translations (the HTTP service invocation core covers, spec.md §4.5) and
// fanned out to any connected smsbox so application-side boxes that want
// every MO still see it, matching a deployment that runs both in parallel.
func (g *gateway) handleMO(m *msg.Msg) {
	metrics.MessagesTotal.WithLabelValues(metrics.DirectionMO, metrics.StatusSent).Inc()

	if g.smsbox != nil {
		g.smsbox.Dispatch(m)
	}

	if m.Type != msg.TypeSMS || m.SMS == nil {
		return
	}
	if m.SMS.SMSType == msg.SMSTypeReport {
		go g.invokeDLR(m)
		return
	}
	if g.translations == nil {
		return
	}
	result, ok := g.translations.Select(m)
	if !ok || result.Translation.Type == urltrans.TypeSendSMS {
		return
	}

	go g.invoke(result.Translation, m)
}

// invokeDLR delivers a report upstream to its dlr_url: the message's own
// one if the submission set it, else the dlr_url of the translation the
// submission's service field named (spec.md §4.5's DLR-time expansion
// rule). It never keyword-routes the receipt text itself.
func (g *gateway) invokeDLR(m *msg.Msg) {
	var t *urltrans.Translation
	if g.translations != nil {
		t, _ = g.translations.FindByService(m.SMS.Service)
	}
	pattern := urltrans.DLRPattern(t, m)
	if pattern == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := urltrans.InvokeDLR(ctx, g.httpClient, pattern, m); err != nil {
		g.logger.Warn("dlr notification failed", zap.String("smsc_id", m.SMS.SMSCID), zap.Error(err))
	}
}

func (g *gateway) invoke(t *urltrans.Translation, m *msg.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := urltrans.Invoke(ctx, g.httpClient, t, m, m.SMS.Service, "bearerbox")
	if err != nil {
		g.logger.Warn("service invocation failed",
			zap.String("keyword", t.Keyword), zap.Error(err))
		return
	}
	if res.Body == "" {
		return
	}

	reply := msg.NewSMS(msg.SMS{
		Sender:   m.SMS.Receiver,
		Receiver: m.SMS.Sender,
		MsgData:  []byte(res.Body),
		SMSCID:   m.SMS.SMSCID,
		SMSType:  msg.SMSTypeMTReply,
		Service:  t.Keyword,
		DLRURL:   t.DLRURL,
	})
	conn, err := g.router.Select(reply.SMS.SMSCID, reply.SMS.Receiver)
	if err != nil {
		g.logger.Warn("no route for service reply", zap.String("keyword", t.Keyword), zap.Error(err))
		return
	}
	if _, err := conn.Send(reply); err != nil {
		g.logger.Warn("failed to send service reply", zap.Error(err))
	}
}

// handleFromSmsbox is the smsbox.Callbacks.Receive upcall: a connected box
// has produced an MT message to deliver to an SMSC.
func (g *gateway) handleFromSmsbox(m *msg.Msg) {
	if m.Type != msg.TypeSMS {
		return
	}
	conn, err := g.router.Select(m.SMS.SMSCID, m.SMS.Receiver)
	if err != nil {
		g.logger.Warn("no route for smsbox message", zap.Error(err))
		return
	}
	if _, err := conn.Send(m); err != nil {
		g.logger.Warn("failed to send smsbox message", zap.Error(err))
	}
}

func buildSMSCConns(cfg *config.Config, store dlrstore.Store, logger *zap.Logger) ([]*smscconn.SMSCConn, error) {
	conns := make([]*smscconn.SMSCConn, 0, len(cfg.SMSCs))
	for _, g := range cfg.SMSCs {
		smppCfg, err := g.ToSMPPConfig()
		if err != nil {
			return nil, fmt.Errorf("smsc %q: %w", g.SMSCID, err)
		}
		filters, err := smscconn.NewFilters(g.ToFilterConfig())
		if err != nil {
			return nil, fmt.Errorf("smsc %q: filters: %w", g.SMSCID, err)
		}
		driver := smpp.New(smppCfg, smpp.Deps{Logger: logger, DLRStore: store})
		conns = append(conns, smscconn.New(g.Name, g.SMSCID, filters, driver, logger))
	}
	return conns, nil
}

func buildDLRStore(cfg *config.Config, logger *zap.Logger) (dlrstore.Store, func(), error) {
	switch cfg.Core.DLRStore {
	case "redis":
		opts, err := redis.ParseURL(cfg.Core.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("dlr-store redis: parse redis-url: %w", err)
		}
		client := redis.NewClient(opts)
		return redisstore.New(client, cfg.Core.RedisTTLDuration()), func() { client.Close() }, nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.Core.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("dlr-store postgres: %w", err)
		}
		return pgstore.New(pool), func() { pool.Close() }, nil
	case "", "memory":
		logger.Info("dlr store: using in-memory backend")
		return dlrstore.NewMemStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown dlr-store %q", cfg.Core.DLRStore)
	}
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic("bearerbox: failed to initialize logger: " + err.Error())
	}
	return logger
}
