package workspace

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// save results
const (
	saveRemote   = "remote"
	saveLocal    = "local"
	saveFallback = "fallback"
	saveFailed   = "failed"
)

var (
	savesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studyspace",
		Subsystem: "workspace",
		Name:      "saves_total",
		Help:      "Workspace saves by result: remote, local (anonymous), fallback (remote failed, cached) or failed.",
	}, []string{"result"})

	openSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "studyspace",
		Subsystem: "workspace",
		Name:      "open_sessions",
		Help:      "Workspace sessions currently held in memory.",
	})
)
