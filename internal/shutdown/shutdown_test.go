package shutdown

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTripIsIdempotent(t *testing.T) {
	l := New()
	l.Trip(errors.New("first"))
	l.Trip(errors.New("second"))

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("latch did not trip")
	}
	assert.EqualError(t, l.Err(), "first")
}

func TestOnErrorTripsLatch(t *testing.T) {
	l := New()
	l.OnError(func() error { return errors.New("boom") })

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("latch did not trip")
	}
	assert.EqualError(t, l.Err(), "boom")
}

func TestOnErrorNilDoesNotTrip(t *testing.T) {
	l := New()
	done := make(chan struct{})
	l.OnError(func() error {
		close(done)
		return nil
	})
	<-done

	select {
	case <-l.Done():
		t.Fatal("latch tripped on nil error")
	case <-time.After(50 * time.Millisecond):
	}
}
