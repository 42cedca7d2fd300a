package util

import (
	"sync"
	"testing"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	var kl KeyLock
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock("doc-1")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50, got %d", counter)
	}
	if kl.Len() != 0 {
		t.Fatalf("expected released keys, got %d", kl.Len())
	}
}

func TestKeyLockIndependentKeys(t *testing.T) {
	var kl KeyLock
	unlockA := kl.Lock("a")
	unlockB := kl.Lock("b")
	if kl.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", kl.Len())
	}
	unlockA()
	unlockB()
}
