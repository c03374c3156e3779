// Package indexpool allocates stable, reusable integer indices from a
// growable bitmap: resource.Registry uses it to hand out bindless
// descriptor-table slots. The contract is: take the lowest free index (or
// the lowest free run, for range allocation), release it later, and
// never reuse one still held.
package indexpool

import "unsafe"

// Word is the integer type backing one chunk of a Pool's bitmap.
type Word interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Pool is a growable bitmap of reusable indices, one bit per index.
type Pool[T Word] struct {
	words []T
	free  int
}

func (p *Pool[T]) bitsPerWord() int { return int(unsafe.Sizeof(T(0))) * 8 }

// Len returns the total number of indices the pool can currently hand out.
func (p *Pool[_]) Len() int { return len(p.words) * p.bitsPerWord() }

// Free returns the number of indices not currently taken.
func (p *Pool[_]) Free() int { return p.free }

// Grow appends nplus words' worth of free indices and returns the index
// at which the new extent begins (i.e. p.Len() before growing).
func (p *Pool[T]) Grow(nplus int) (index int) {
	index = p.Len()
	if nplus > 0 {
		p.free += nplus * p.bitsPerWord()
		p.words = append(p.words, make([]T, nplus)...)
	}
	return
}

// Shrink removes the last nminus words from the pool, discarding
// whatever indices they held (callers must ensure none are still taken).
func (p *Pool[T]) Shrink(nminus int) {
	if nminus <= 0 {
		return
	}
	n := len(p.words) - nminus
	if n <= 0 {
		p.words = p.words[:0]
		p.free = 0
		return
	}
	for i := n; i < n+nminus; i++ {
		switch p.words[i] {
		case 0:
			p.free -= p.bitsPerWord()
		case ^T(0):
		default:
			for x := ^p.words[i]; x != 0; x >>= 1 {
				if x&1 == 1 {
					p.free--
				}
			}
		}
	}
	p.words = p.words[:n]
}

// Take marks index as allocated.
func (p *Pool[T]) Take(index int) {
	n := p.bitsPerWord()
	i := index / n
	b := T(1) << (index & (n - 1))
	if p.words[i]&b == 0 {
		p.words[i] |= b
		p.free--
	}
}

// Release returns index to the free pool.
func (p *Pool[T]) Release(index int) {
	n := p.bitsPerWord()
	i := index / n
	b := T(1) << (index & (n - 1))
	if p.words[i]&b != 0 {
		p.words[i] &^= b
		p.free++
	}
}

// Taken reports whether index is currently allocated.
func (p *Pool[T]) Taken(index int) bool {
	n := p.bitsPerWord()
	i := index / n
	b := T(1) << (index & (n - 1))
	return p.words[i]&b != 0
}

// FindFree locates a free index. ok is false only when p.Free() == 0.
func (p *Pool[T]) FindFree() (index int, ok bool) {
	if p.Free() == 0 {
		return
	}
	for i, w := range p.words {
		if w == ^T(0) {
			continue
		}
		var b int
		for ; w&(1<<b) != 0; b++ {
		}
		index = i*p.bitsPerWord() + b
		ok = true
		break
	}
	return
}

// FindFreeRange locates a contiguous run of n free indices. If ok is
// true, every value in [index, index+n) is free. It calls FindFree if
// n <= 1.
func (p *Pool[T]) FindFreeRange(n int) (index int, ok bool) {
	if n <= 1 {
		return p.FindFree()
	}
	if p.Free() < n {
		return
	}
	nb := p.bitsPerWord()
	var cnt, idx, bit, i int
	for {
		if p.words[i] == ^T(0) {
			cnt, bit = 0, 0
			i++
			for ; i < len(p.words); i++ {
				if p.words[i] != ^T(0) {
					break
				}
			}
			idx = i
		}
		if cnt+nb*(len(p.words)-i) < n {
			return
		}
		if p.words[i] == 0 {
			cnt += nb
			i++
			for j := 0; j < (n-cnt)/nb; j++ {
				if p.words[i+j] != 0 {
					cnt += j * nb
					i += j
					break
				}
			}
			if cnt >= n {
				index = idx*nb + bit
				ok = true
				break
			}
		}
		for j := 0; j < nb; j++ {
			if p.words[i]&(1<<j) == 0 {
				cnt++
				if cnt >= n {
					index = idx*nb + bit
					ok = true
					return
				}
				continue
			}
			cnt = 0
			if j < nb-1 {
				idx = i
				bit = j + 1
			} else {
				idx = i + 1
				bit = 0
			}
		}
		i++
		if i == len(p.words) {
			break
		}
	}
	return
}

// Reset releases every index in the pool.
func (p *Pool[T]) Reset() {
	n := p.Len()
	if n == p.Free() {
		return
	}
	clear(p.words)
	p.free = n
}
