package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestExporter_ServesRecordedCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	rec.FileRendered()
	rec.FileRendered()
	rec.FileCopied()
	rec.BuildCompleted(120*time.Millisecond, false)

	exp := NewExporter("127.0.0.1:0", reg)
	require.NoError(t, exp.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, exp.Shutdown(ctx))
	}()

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", exp.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Contains(t, string(body), "site_build_files_rendered_total 2")
	require.Contains(t, string(body), "site_build_files_copied_total 1")
	require.Contains(t, string(body), `site_build_passes_total{outcome="success"} 1`)
}

func TestExporter_StartFailsOnBadAddress(t *testing.T) {
	exp := NewExporter("127.0.0.1:notaport", prometheus.NewRegistry())
	require.Error(t, exp.Start())
}
