package dummy

import "sync"

// Killer records kill requests instead of ending the test process.
type Killer struct {
	lock  sync.Mutex
	kills int
	Fired chan struct{}
}

func NewKiller() *Killer {
	return &Killer{Fired: make(chan struct{}, 16)}
}

func (k *Killer) Kill() error {
	k.lock.Lock()
	k.kills++
	k.lock.Unlock()

	select {
	case k.Fired <- struct{}{}:
	default:
	}

	return nil
}

func (k *Killer) Kills() int {
	k.lock.Lock()
	defer k.lock.Unlock()

	return k.kills
}
