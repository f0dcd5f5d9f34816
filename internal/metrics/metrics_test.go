package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/Hara602/gcodeSentry/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	report := reconcile.Report{
		LinksCreated:  2,
		LinksReplaced: 1,
		LinksRemoved:  4,
		DirsRemoved:   1,
		Conflicts:     1,
		Removals:      map[string]reconcile.DirRemoval{"USB2": reconcile.DirNotEmpty},
	}
	m.ObserveCycle(10*time.Millisecond, report, 3, 7, nil)
	m.ObserveCycle(time.Millisecond, reconcile.Report{}, 0, 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.linksCreated))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.linksRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dirsRemoved))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.warnings))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.devicesTracked))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.linksTracked))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCycle(time.Second, reconcile.Report{}, 1, 1, nil)
	})
}
