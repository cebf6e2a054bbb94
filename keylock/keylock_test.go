package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLock_SerializesSameKey(t *testing.T) {
	kl := New()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock("tx-1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, kl.Len())
}

func TestLock_IndependentKeys(t *testing.T) {
	kl := New()

	unlockA := kl.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := kl.Lock("b")
		unlockB()
		close(done)
	}()
	<-done

	assert.Equal(t, 1, kl.Len())
	unlockA()
	unlockA()
	assert.Zero(t, kl.Len())
}
