package metrics

// LinkObserver adapts a LinkCollector plus a fixed link name into the
// datagram.FrameObserver shape (ObserveTXFrame/ObserveRXFrame/
// ObserveAckRetry), so a *datagram.Engine can be constructed with
// datagram.WithObserver(metrics.NewLinkObserver(collector, "uplink"))
// without the datagram package ever importing this one.
type LinkObserver struct {
	collector *LinkCollector
	name      string
}

// NewLinkObserver returns a LinkObserver recording counters for name on
// collector. It does not register a LinkSource; call collector.Add
// separately to expose gauge readings from the same engine.
func NewLinkObserver(collector *LinkCollector, name string) *LinkObserver {
	return &LinkObserver{collector: collector, name: name}
}

func (o *LinkObserver) ObserveTXFrame()  { o.collector.RecordTXFrame(o.name) }
func (o *LinkObserver) ObserveRXFrame()  { o.collector.RecordRXFrame(o.name) }
func (o *LinkObserver) ObserveAckRetry() { o.collector.RecordAckRetry(o.name) }
