package world

// LeastRecentlyTouched evicts the chunks that have gone longest without a
// query once the resident count exceeds MaxLoaded. Opt-in: the engine
// default is KeepAll.
type LeastRecentlyTouched struct {
	MaxLoaded int

	clock uint64
	last  map[ChunkKey]uint64
}

func NewLeastRecentlyTouched(maxLoaded int) *LeastRecentlyTouched {
	return &LeastRecentlyTouched{
		MaxLoaded: maxLoaded,
		last:      map[ChunkKey]uint64{},
	}
}

func (p *LeastRecentlyTouched) Touched(k ChunkKey) {
	p.clock++
	p.last[k] = p.clock
}

func (p *LeastRecentlyTouched) Victims(loaded int) []ChunkKey {
	if p.MaxLoaded <= 0 || loaded <= p.MaxLoaded {
		return nil
	}
	var victims []ChunkKey
	for loaded-len(victims) > p.MaxLoaded {
		var (
			oldest   ChunkKey
			oldestAt uint64
			have     bool
		)
		for k, at := range p.last {
			if !have || at < oldestAt {
				oldest, oldestAt, have = k, at, true
			}
		}
		if !have {
			break
		}
		delete(p.last, oldest)
		victims = append(victims, oldest)
	}
	return victims
}
