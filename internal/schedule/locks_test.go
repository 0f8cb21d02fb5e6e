package schedule

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLocks_SerializesSameKey(t *testing.T) {
	kl := NewKeyLocks()

	const workers = 20
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := kl.Acquire("machine/W1")
			defer release()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, workers, counter)
}

func TestKeyLocks_DuplicateKeysAcquireOnce(t *testing.T) {
	kl := NewKeyLocks()

	// A repeated key must not self-deadlock.
	release := kl.Acquire("owner/12", "machine/W1", "machine/W1")
	release()

	release = kl.Acquire("machine/W1")
	release()
}

func TestKeyLocks_MultiKeyHoldersDoNotDeadlock(t *testing.T) {
	kl := NewKeyLocks()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Opposite declaration orders; sorted acquisition keeps
			// the holders from waiting on each other in a cycle.
			var release func()
			if i%2 == 0 {
				release = kl.Acquire("machine/W1", "machine/W2")
			} else {
				release = kl.Acquire("machine/W2", "machine/W1")
			}
			release()
		}(i)
	}
	wg.Wait()
}
