package core

// SettlementMetrics records settlement throughput and health
type SettlementMetrics interface {
	// IntentSubmitted counts an accepted intent
	IntentSubmitted(kind, domain string)
	// IntentRejected counts an intent refused because the queue was full
	IntentRejected()
	// IntentTerminal counts an intent reaching completed or failed, with its time since submission
	IntentTerminal(kind, domain, status string, elapsed Duration)
	// QueueDepth reports the number of intents waiting for the worker
	QueueDepth(depth int)
	// ChainEvent counts a reconciled chain event by outcome
	ChainEvent(outcome string)
}

// NoopMetrics discards every observation
type NoopMetrics struct{}

func (NoopMetrics) IntentSubmitted(string, string) {}
func (NoopMetrics) IntentRejected() {}
func (NoopMetrics) IntentTerminal(string, string, string, Duration) {}
func (NoopMetrics) QueueDepth(int) {}
func (NoopMetrics) ChainEvent(string) {}
