package telemetry

import (
	"context"
	"sort"

	"github.com/grafana/pyroscope-go"
)

// WithProfilingLabels runs fn with pprof labels attached, so CPU samples can
// be filtered per saga or job in Pyroscope. Keep label values low-cardinality:
// saga names yes, order ids no.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, labels[k])
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}
