package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	CustomersProcessed Counter
	CustomersSkipped   Counter
	IntentsCreated     Counter
	IntentsDuplicate   Counter
	CarryDeferrals     Counter
	FeesSettled        Counter
	FeesArrears        Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		CustomersProcessed: n,
		CustomersSkipped:   n,
		IntentsCreated:     n,
		IntentsDuplicate:   n,
		CarryDeferrals:     n,
		FeesSettled:        n,
		FeesArrears:        n,
	}
}
