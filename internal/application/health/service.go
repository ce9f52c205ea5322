package health

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"estate-backend/internal/middleware"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	StatusOK    = "ok"
	StatusIssue = "issue"

	DepConnected    = "connected"
	DepDisconnected = "disconnected"
	DepError        = "error"
)

// Pinger is one dependency probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// GormPinger pings the SQL pool behind db.
func GormPinger(db *gorm.DB) Pinger {
	if db == nil {
		return nil
	}
	return PingFunc(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

// Report is the body of /health/json.
type Report struct {
	Service      string               `json:"service"`
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

// MemoryInfo is in MiB.
type MemoryInfo struct {
	Alloc    int `json:"alloc"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// Service collects the health report. Database and Storage may be nil; they then report
// "disconnected". Database and Redis must be connected for an "ok" status.
type Service struct {
	Name     string
	Redis    *redis.Client
	Database Pinger
	Storage  Pinger
	Timeout  time.Duration
}

func (s *Service) probe(ctx context.Context, p Pinger) DepStatus {
	if p == nil {
		return DepStatus{Status: DepDisconnected}
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return DepStatus{Status: DepError}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: DepConnected, PingMs: &ms}
}

// Collect gathers dependency pings, Redis traffic counters and runtime stats.
func (s *Service) Collect(ctx context.Context) Report {
	r := Report{Service: s.Name, Dependencies: make(map[string]DepStatus, 3)}
	r.Dependencies["database"] = s.probe(ctx, s.Database)
	r.Dependencies["storage"] = s.probe(ctx, s.Storage)

	var redisPinger Pinger
	if s.Redis != nil {
		redisPinger = PingFunc(func(ctx context.Context) error { return s.Redis.Ping(ctx).Err() })
	}
	r.Dependencies["redis"] = s.probe(ctx, redisPinger)

	startMs := time.Now().UnixMilli()
	r.Traffic = TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	if r.Dependencies["redis"].Status == DepConnected {
		startMs = s.traffic(ctx, &r.Traffic, startMs)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	r.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{Alloc: int(m.Alloc >> 20), HeapUsed: int(m.HeapInuse >> 20)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	r.Status = StatusIssue
	if r.Dependencies["database"].Status == DepConnected && r.Dependencies["redis"].Status == DepConnected {
		r.Status = StatusOK
	}
	return r
}

// traffic fills t from the counters HealthMarker keeps and returns the stats start time.
func (s *Service) traffic(ctx context.Context, t *TrafficInfo, startMs int64) int64 {
	vals, err := s.Redis.MGet(ctx, middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq).Result()
	if err != nil {
		return startMs
	}
	str := func(i int) string {
		v, _ := vals[i].(string)
		return v
	}
	if v := str(4); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			startMs = ms
		}
	} else {
		s.Redis.Set(ctx, middleware.KeyStartTime, startMs, 0)
	}

	t.TotalRequests, _ = strconv.Atoi(str(0))
	t.FailedCount, _ = strconv.Atoi(str(1))
	t.SuccessCount = t.TotalRequests - t.FailedCount
	if t.TotalRequests > 0 {
		t.SuccessRate = strconv.FormatFloat(float64(t.SuccessCount)/float64(t.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	count, _ := strconv.Atoi(str(3))
	if count > 0 {
		t.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if v := str(5); v != "" {
		var last map[string]interface{}
		if json.Unmarshal([]byte(v), &last) == nil {
			t.LastRequest = last
		}
	}
	return startMs
}

// Reset clears the traffic counters and restarts the uptime clock.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.Redis.Del(ctx, middleware.HealthKeys...).Err(); err != nil {
		return err
	}
	return s.Redis.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err()
}

// Errors returns up to the 50 most recent server error entries.
func (s *Service) Errors(ctx context.Context) ([]map[string]interface{}, error) {
	entries, err := s.Redis.LRange(ctx, middleware.KeyErrorLog, 0, 49).Result()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(e), &m) == nil && m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}
