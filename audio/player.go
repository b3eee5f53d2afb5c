//go:build !headless

package audio

import (
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player streams a Source to the default output device
type Player struct {
	ctx     *oto.Context
	player  *oto.Player
	src     Source
	scratch []float32 // only touched from Read
	started bool
	mutex   sync.Mutex // only for setup/control operations
}

// NewPlayer opens the output device. bufferSize of 0 lets oto pick.
func NewPlayer(sampleRate int, bufferSize time.Duration, src Source) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	p := &Player{
		ctx:     ctx,
		src:     src,
		scratch: make([]float32, 4096),
	}
	p.player = ctx.NewPlayer(p)
	return p, nil
}

// Read is called by oto on its own goroutine. It is the audio thread.
func (p *Player) Read(buf []byte) (int, error) {
	p.scratch = fill(buf, p.src, p.scratch)
	return len(buf), nil
}

func (p *Player) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.started && p.player != nil {
		p.player.Play()
		p.started = true
	}
}

func (p *Player) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.started && p.player != nil {
		p.player.Pause()
		p.started = false
	}
}

func (p *Player) Close() error {
	p.Stop()
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	return err
}

func (p *Player) IsStarted() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.started
}
