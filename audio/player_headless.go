//go:build headless

package audio

import (
	"sync"
	"time"
)

// Player drives a Source in real time without a sound card, for CI and
// machines with no audio device. Output is discarded.
type Player struct {
	sampleRate int
	block      int // frames per pull
	src        Source
	stop       chan struct{}
	done       chan struct{}
	started    bool
	mutex      sync.Mutex
}

func NewPlayer(sampleRate int, bufferSize time.Duration, src Source) (*Player, error) {
	if bufferSize <= 0 {
		bufferSize = 20 * time.Millisecond
	}
	return &Player{
		sampleRate: sampleRate,
		block:      max(int(bufferSize.Seconds()*float64(sampleRate)), 1),
		src:        src,
	}, nil
}

func (p *Player) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.started {
		return
	}
	p.started = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stop, p.done)
}

func (p *Player) run(stop, done chan struct{}) {
	defer close(done)

	buf := make([]float32, p.block*Channels)
	period := time.Duration(float64(p.block) / float64(p.sampleRate) * float64(time.Second))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.src.Process(buf)
		}
	}
}

func (p *Player) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.started {
		return
	}
	close(p.stop)
	<-p.done
	p.started = false
}

func (p *Player) Close() error {
	p.Stop()
	return nil
}

func (p *Player) IsStarted() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.started
}
