// Package metrics provides build observability for coverpack.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so recording costs nothing unless a PrometheusRecorder is injected:
//
//	recorder := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
//	c := composer.New(composer.WithRecorder(recorder))
//
// The CLI has no long-running HTTP endpoint; PrometheusRecorder.WriteTextfile dumps
// the registry for the node_exporter textfile collector instead.
package metrics
