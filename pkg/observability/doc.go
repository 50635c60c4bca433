/*
Package observability provides lifecycle hooks for monitoring the conversation engine.

Metrics records Prometheus counters and histograms for turns, fired rules,
executed steps and suspensions. LogHooks writes the same events as structured
log lines. Both return domain.LifecycleHooks and can be combined with Merge:

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := metrics.Hooks().Merge(observability.LogHooks(logger))
	bot, _ := botbuilder.New(store, botbuilder.WithLifecycleHooks(hooks))
*/
package observability
