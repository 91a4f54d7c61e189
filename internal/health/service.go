package health

import (
	"context"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional for the health check. If nil, the database is reported
// as disconnected.
type DBPinger interface {
	Ping() error
}

type Snapshot struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64  `json:"uptimeSeconds"`
	HeapMB        int    `json:"heapMB"`
	Platform      string `json:"platform"`
	GoVersion     string `json:"goVersion"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

var startTime = time.Now()

// Collect pings the database and Redis and reports a service snapshot. Status
// is "ok" only when both are reachable.
func Collect(ctx context.Context, rdb *redis.Client, db DBPinger) Snapshot {
	snap := Snapshot{Dependencies: make(map[string]DepStatus)}

	dbStatus := "disconnected"
	var dbPingMs *int64
	if db != nil {
		start := time.Now()
		if err := db.Ping(); err == nil {
			ms := time.Since(start).Milliseconds()
			dbPingMs = &ms
			dbStatus = "connected"
		} else {
			dbStatus = "error"
		}
	}
	snap.Dependencies["database"] = DepStatus{Status: dbStatus, PingMs: dbPingMs}

	redisStatus := "disconnected"
	var redisPingMs *int64
	if rdb != nil {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err == nil {
			ms := time.Since(start).Milliseconds()
			redisPingMs = &ms
			redisStatus = "connected"
		} else {
			redisStatus = "error"
		}
	}
	snap.Dependencies["redis"] = DepStatus{Status: redisStatus, PingMs: redisPingMs}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	snap.Runtime = RuntimeInfo{
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		HeapMB:        int(m.HeapInuse / 1024 / 1024),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	if dbStatus == "connected" && redisStatus == "connected" {
		snap.Status = "ok"
	} else {
		snap.Status = "issue"
	}
	return snap
}
