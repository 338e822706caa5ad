package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeSource struct {
	rssi, snr float64
	checksum  uint64
}

func (f fakeSource) LastRSSI() float64       { return f.rssi }
func (f fakeSource) LastSNR() float64        { return f.snr }
func (f fakeSource) ChecksumErrors() uint64  { return f.checksum }

func TestCollectEmitsOneSeriesPerLink(t *testing.T) {
	c := NewLinkCollector(prometheus.Labels{"app": "test"})
	c.Add("uplink", fakeSource{rssi: -72, snr: 8, checksum: 3})
	c.RecordAckRetry("uplink")
	c.RecordAckRetry("uplink")

	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)

	var metrics []prometheus.Metric
	for m := range ch {
		metrics = append(metrics, m)
	}
	if len(metrics) != 6 {
		t.Fatalf("got %d metrics, want 6 (one per described series)", len(metrics))
	}

	var m dto.Metric
	for _, metric := range metrics {
		if metric.Desc().String() == c.ackRetriesDesc.String() {
			if err := metric.Write(&m); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if m.GetCounter().GetValue() != 2 {
				t.Errorf("ack retries = %v, want 2", m.GetCounter().GetValue())
			}
		}
	}
}

func TestRemoveStopsCollecting(t *testing.T) {
	c := NewLinkCollector(nil)
	c.Add("uplink", fakeSource{})
	c.Remove("uplink")

	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)
	for range ch {
		t.Fatal("expected no metrics after Remove")
	}
}
