package propagate

import (
	"sync"

	"github.com/san-kum/krotov/internal/quantum"
)

type statePool struct {
	pool sync.Pool
	size int
}

func newStatePool(size int) *statePool {
	return &statePool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				return make(quantum.State, size)
			},
		},
	}
}

func (p *statePool) Get() quantum.State {
	return p.pool.Get().(quantum.State)
}

func (p *statePool) Put(s quantum.State) {
	if len(s) == p.size {
		for i := range s {
			s[i] = 0
		}
		p.pool.Put(s)
	}
}

// pools hands out one statePool per dimension.
type pools struct {
	mu sync.Mutex
	m  map[int]*statePool
}

func (p *pools) forSize(n int) *statePool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[int]*statePool)
	}
	sp, ok := p.m[n]
	if !ok {
		sp = newStatePool(n)
		p.m[n] = sp
	}
	return sp
}
