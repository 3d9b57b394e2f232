package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedger(reg)

	m.Generated(3)
	m.Conflict()
	m.Toggled(true)
	m.Toggled(true)
	m.Toggled(false)
	m.Reassigned()
	m.Deleted()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.generated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.toggles.WithLabelValues("paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toggles.WithLabelValues("unpaid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reassignments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deletions))
}

func TestNilLedgerIsNoop(t *testing.T) {
	var m *Ledger
	assert.NotPanics(t, func() {
		m.Generated(1)
		m.Conflict()
		m.Toggled(true)
		m.Reassigned()
		m.Deleted()
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewLedger(reg).Generated(2)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ledger_payments_generated_total 2"))
}
