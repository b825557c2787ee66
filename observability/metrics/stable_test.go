package metrics

import (
	"errors"
	"testing"
)

func TestStableIsSingleton(t *testing.T) {
	if Stable() != Stable() {
		t.Fatal("Stable must return the same registry")
	}
}

func TestObserversTolerateNilReceiver(t *testing.T) {
	var m *StableMetrics
	m.ObserveOperation("mint", nil)
	m.ObserveLiquidation()
	m.ObserveRejection("state_conflict")
}

func TestObserveOperationRecordsBothResults(t *testing.T) {
	m := Stable()
	m.ObserveOperation("mint", nil)
	m.ObserveOperation("mint", errors.New("boom"))
	m.ObserveLiquidation()
	m.ObserveRejection("state_conflict")
}
