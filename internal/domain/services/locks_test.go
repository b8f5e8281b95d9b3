package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameLocks_SerializesSameGame(t *testing.T) {
	locks := newGameLocks()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("g1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.size())
}

func TestGameLocks_IndependentGames(t *testing.T) {
	locks := newGameLocks()

	unlockA := locks.lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()

	assert.Equal(t, 0, locks.size())
}
