package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then it uses the cinerank defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "cinerank")
				So(manager.subsystem, ShouldEqual, "ranking")
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricsEnabled(false),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.mutations.WithLabelValues("insert").Inc()

			Convey("Then metric names and labels follow them", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_mutations_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options carry empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithRefreshInterval(-time.Second),
				WithCustomLabels(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "cinerank")
				So(manager.subsystem, ShouldEqual, "ranking")
				So(manager.histogramBuckets, ShouldResemble, latencyBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(manager.customLabels, ShouldNotBeNil)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager is reconfigured", t, func() {
		Configure(WithNamespace("cfg"), WithCustomLabels(map[string]string{"env": "ci"}))
		Reset(func() { Configure() })

		Convey("When a metric is recorded", func() {
			RecordMutation("insert")

			Convey("Then the served registry carries the new name and labels", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "cfg_ranking_mutations_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestRankingMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When ranking events are recorded", func() {
			before := testutil.ToFloat64(globalManager.mutations.WithLabelValues("move"))
			RecordMutation("move")
			RecordMutation("move")

			Convey("Then counters move by the recorded amount", func() {
				So(testutil.ToFloat64(globalManager.mutations.WithLabelValues("move")), ShouldEqual, before+2)
			})
		})

		Convey("When resolutions are recorded", func() {
			before := testutil.ToFloat64(globalManager.resolutions.WithLabelValues("tie"))
			RecordResolution("tie", 2)
			So(testutil.ToFloat64(globalManager.resolutions.WithLabelValues("tie")), ShouldEqual, before+1)
		})

		Convey("When gauges are set", func() {
			UpdateRankingSize(42)
			UpdateOpenSessions(3)
			UpdateCacheBuckets(2)
			So(testutil.ToFloat64(globalManager.rankingSize), ShouldEqual, 42)
			So(testutil.ToFloat64(globalManager.openSessions), ShouldEqual, 3)
			So(testutil.ToFloat64(globalManager.cacheBuckets), ShouldEqual, 2)
		})

		Convey("When every recorder is called", func() {
			So(func() {
				RecordComparison("candidate")
				RecordSession("started")
				RecordIdentitySwitch("guest->account")
				RecordHydration("remote", 12.5)
				RecordMigration("ok")
				RecordFlush("failed")
				RecordRemoteRequest("get", "ok", 3)
				RecordSync("stale")
				RecordCacheOp("save", "ok", 0.2)
				RecordMetadataFetch("ok")
				RecordMetadataBatch(40)
				RecordHTTPRequest("/ranking", "GET", "200")
				RecordHTTPRequestDuration("/ranking", "GET", "200", 1)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(1)
				UpdateWorkerCount(1)
				UpdateWorkerActiveCount(1)
				UpdateWorkerIdleCount(0)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordErrorByComponent("cache", "io")
				RecordErrorByEndpoint("/ranking", "GET", "server_error")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})
	})
}

func TestRegistryExposition(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordSync("ok")

		Convey("Then it exposes cinerank metrics only", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(families, ShouldNotBeEmpty)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "cinerank_ranking_"), ShouldBeTrue)
			}
			So(Default(), ShouldEqual, globalManager)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.comparisons.WithLabelValues("existing"))
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordComparison("existing")
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(testutil.ToFloat64(globalManager.comparisons.WithLabelValues("existing")), ShouldEqual, before+1600)
		})
	})
}
