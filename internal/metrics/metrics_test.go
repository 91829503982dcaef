package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ExposesPipelineMetrics(t *testing.T) {
	EventsIngested.Inc()
	BatchFlushes.WithLabelValues("ok").Inc()
	Decisions.WithLabelValues("offer_sent").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{
		"churnpipe_events_ingested_total",
		"churnpipe_batch_flushes_total",
		"churnpipe_decisions_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
