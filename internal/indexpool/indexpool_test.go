package indexpool

import (
	"testing"
	"unsafe"
)

func TestBitsPerWord(t *testing.T) {
	for _, x := range [...][2]int{
		{int(unsafe.Sizeof(uint(0))) * 8, (&Pool[uint]{}).bitsPerWord()},
		{int(unsafe.Sizeof(uint8(0))) * 8, (&Pool[uint8]{}).bitsPerWord()},
		{int(unsafe.Sizeof(uint16(0))) * 8, (&Pool[uint16]{}).bitsPerWord()},
		{int(unsafe.Sizeof(uint32(0))) * 8, (&Pool[uint32]{}).bitsPerWord()},
		{int(unsafe.Sizeof(uint64(0))) * 8, (&Pool[uint64]{}).bitsPerWord()},
		{int(unsafe.Sizeof(uintptr(0))) * 8, (&Pool[uintptr]{}).bitsPerWord()},
	} {
		if x[0] != x[1] {
			t.Fatalf("Pool[T].bitsPerWord:\nhave %d\nwant %d", x[1], x[0])
		}
	}
}

func TestZero(t *testing.T) {
	var p Pool[uint16]
	if p.words != nil {
		t.Fatalf("p.words:\nhave %v\nwant nil", p.words)
	}
	if p.free != 0 {
		t.Fatalf("p.free:\nhave %d\nwant 0", p.free)
	}
	if n := p.Len(); n != 0 {
		t.Fatalf("p.Len:\nhave %d\nwant 0", n)
	}
	if n := p.Free(); n != 0 {
		t.Fatalf("p.Free:\nhave %d\nwant 0", n)
	}
}

func TestGrow(t *testing.T) {
	var p Pool[uint32]
	for _, x := range [...]struct {
		nplus, wantLen int
	}{
		{1, 32},
		{2, 96},
		{3, 192},
		{0, 192},
		{16, 704},
		{17, 1248},
		{32, 2272},
		{99, 5440},
	} {
		p.Grow(x.nplus)
		if n := p.Len(); n != x.wantLen {
			t.Fatalf("p.Grow: Len:\nhave %d\nwant %d", n, x.wantLen)
		}
		if n := p.Free(); n != x.wantLen {
			t.Fatalf("p.Grow: Free:\nhave %d\nwant %d", n, x.wantLen)
		}
		for i, w := range p.words {
			if w != 0 {
				t.Fatalf("p.words[%d]:\nhave %d\nwant 0", i, w)
			}
		}
	}
}

// check represents an expected Pool.words[index] value.
type check[T Word] struct {
	index int
	want  T
}

func (p *Pool[T]) checkState(v []check[T], t *testing.T) {
	for _, x := range v {
		if y := p.words[x.index]; y != x.want {
			t.Fatalf("p.words[%d]:\nhave 0x%x\nwant 0x%x", x.index, y, x.want)
		}
	}
}

func (p *Pool[T]) checkFree(t *testing.T) {
	want := p.Len()
	n := p.bitsPerWord()
	for _, w := range p.words {
		for i := 0; i < n; i++ {
			if w&(1<<i) != 0 {
				want--
			}
		}
	}
	if r := p.Free(); r != want {
		t.Fatalf("p.Free:\nhave %d\nwant %d", r, want)
	}
}

func TestTakeRelease(t *testing.T) {
	var p Pool[uint8]
	p.Grow(1)
	p.Take(6)
	p.checkState([]check[uint8]{{0, 0x40}}, t)
	p.Take(1)
	p.checkState([]check[uint8]{{0, 0x42}}, t)
	p.checkFree(t)
	p.Release(6)
	p.checkState([]check[uint8]{{0, 0x02}}, t)
	p.checkFree(t)
	p.Take(6)
	p.checkState([]check[uint8]{{0, 0x42}}, t)
	p.Grow(2)
	p.checkState([]check[uint8]{{0, 0x42}, {1, 0}, {2, 0}}, t)
	p.Take(10)
	p.checkState([]check[uint8]{{0, 0x42}, {1, 0x04}, {2, 0}}, t)
	p.Release(1)
	p.checkState([]check[uint8]{{0, 0x40}, {1, 0x04}, {2, 0}}, t)
	p.Take(21)
	p.checkState([]check[uint8]{{0, 0x40}, {1, 0x04}, {2, 0x20}}, t)
	p.Take(21)
	p.Release(23)
	p.Release(0)
	p.checkState([]check[uint8]{{0, 0x40}, {1, 0x04}, {2, 0x20}}, t)
	p.checkFree(t)
	p.Take(4)
	p.Take(14)
	p.Take(16)
	p.checkState([]check[uint8]{{0, 0x50}, {1, 0x44}, {2, 0x21}}, t)
	for i := 0; i < p.Len(); i++ {
		if i&3 == 0 {
			p.Take(i)
		} else {
			p.Release(i)
		}
	}
	p.checkState([]check[uint8]{{0, 0x11}, {1, 0x11}, {2, 0x11}}, t)
	p.checkFree(t)
}

func TestTaken(t *testing.T) {
	var p Pool[uint64]
	p.Grow(2)
	checkFree := func(start, end int) {
		for i := start; i < end; i++ {
			if p.Taken(i) {
				t.Fatalf("p.Taken: %d:\nhave true\nwant false", i)
			}
		}
	}
	checkTaken := func(start, end int) {
		for i := start; i < end; i++ {
			if !p.Taken(i) {
				t.Fatalf("p.Taken: %d:\nhave false\nwant true", i)
			}
		}
	}
	checkFree(0, p.Len())
	p.Take(0)
	checkTaken(0, 1)
	checkFree(1, p.Len())
	p.Take(1)
	checkTaken(0, 2)
	p.Release(0)
	checkFree(0, 1)
	checkTaken(1, 2)
	p.Take(p.Len() - 1)
	checkTaken(p.Len()-1, p.Len())
	for i := 0; i < p.Len(); i++ {
		p.Release(i)
	}
	checkFree(0, p.Len())
	for i := 0; i < p.Len(); i++ {
		p.Take(i)
	}
	checkTaken(0, p.Len())
}

func (p *Pool[_]) checkFindFree(want int, t *testing.T) {
	index, ok := p.FindFree()
	if want < 0 {
		if ok {
			t.Fatalf("p.FindFree: \nhave %d, true\nwant _, false", index)
		}
	} else {
		if !ok {
			t.Fatalf("p.FindFree: \nhave _, false\nwant %d, true", want)
		}
		if index != want {
			t.Fatalf("p.FindFree: index:\nhave %d\nwant %d", index, want)
		}
	}
}

func TestFindFree(t *testing.T) {
	var p Pool[uint32]
	p.checkFindFree(-1, t)
	p.Grow(12)
	p.checkFindFree(0, t)
	p.Take(0)
	p.checkFindFree(1, t)
	p.Take(1)
	p.checkFindFree(2, t)
	p.Take(3)
	p.checkFindFree(2, t)
	p.Release(1)
	p.checkFindFree(1, t)
	p.Release(0)
	p.checkFindFree(0, t)
	for i := 0; i < p.bitsPerWord()*2; i++ {
		p.Take(i)
	}
	p.checkFindFree(64, t)
	for i := 64; i < p.Len(); i++ {
		p.Take(i)
	}
	p.checkFindFree(-1, t)
	p.Release(120)
	p.checkFindFree(120, t)
}

func (p *Pool[_]) checkFindFreeRange(n, want int, t *testing.T) {
	index, ok := p.FindFreeRange(n)
	if want < 0 {
		if ok {
			t.Fatalf("p.FindFreeRange: \nhave %d, true\nwant _, false", index)
		}
	} else {
		if !ok {
			t.Fatalf("p.FindFreeRange: \nhave _, false\nwant %d, true", want)
		}
		if index != want {
			t.Fatalf("p.FindFreeRange: index:\nhave %d\nwant %d", index, want)
		}
	}
}

func TestFindFreeRange(t *testing.T) {
	var p Pool[uint16]
	takeRange := func(start, end int) {
		for i := start; i < end; i++ {
			p.Take(i)
		}
	}
	p.checkFindFreeRange(3, -1, t)
	p.Grow(4)
	p.checkFindFreeRange(3, 0, t)
	takeRange(0, 3)
	p.checkFindFreeRange(3, 3, t)
	takeRange(3, 6)
	p.checkFindFreeRange(3, 6, t)
	takeRange(6, 9)
	p.checkFindFreeRange(1, 9, t)
	p.Take(9)
	p.checkFindFreeRange(2, 10, t)
	takeRange(10, 12)
	p.Release(1)
	p.checkFindFreeRange(2, 12, t)
	p.checkFindFreeRange(1, 1, t)
	p.Release(2)
	p.checkFindFreeRange(2, 1, t)
	p.checkFindFreeRange(1, 1, t)
	p.checkFindFreeRange(6, 12, t)
	takeRange(12, 18)
	p.checkFindFreeRange(13, 18, t)
	takeRange(19, 32)
	p.Take(35)
	p.Take(46)
	p.checkFindFreeRange(4, 36, t)
	p.checkFindFreeRange(3, 32, t)
	p.checkFindFreeRange(10, 36, t)
	p.checkFindFreeRange(11, 47, t)
	p.checkFindFreeRange(20, -1, t)
	p.Grow(1)
	p.checkFindFreeRange(20, 47, t)
	p.checkFindFreeRange(31, 47, t)
	p.checkFindFreeRange(33, 47, t)
	p.checkFindFreeRange(34, -1, t)
	p.Take(76)
	p.checkFindFreeRange(20, 47, t)
	p.checkFindFreeRange(31, -1, t)
	p.checkFindFreeRange(33, -1, t)
	p.checkFindFreeRange(34, -1, t)
	p.Grow(5)
	p.checkFindFreeRange(80, 77, t)
	p.Take(79)
	p.checkFindFreeRange(80, 80, t)
	p.Take(80)
	p.checkFindFreeRange(80, -1, t)
	p.checkFindFreeRange(79, 81, t)
}

func TestReset(t *testing.T) {
	var p Pool[uint]
	checkReset := func() {
		if p.Len() != p.Free() {
			t.Fatal("p.Reset: Len == Free\nhave false\nwant true")
		}
		for i, w := range p.words {
			if w != 0 {
				t.Fatalf("p.words[%d]\nhave %d\nwant 0", i, w)
			}
		}
	}
	checkReset()
	p.Grow(1)
	checkReset()
	for i := 0; i < p.Len(); i++ {
		p.Take(i)
	}
	p.Reset()
	checkReset()
	p.Grow(9)
	checkReset()
	for i := 0; i < p.Len(); i++ {
		p.Take(i)
	}
	p.Reset()
	checkReset()
	for i := p.bitsPerWord(); i < p.Len(); i += 3 {
		p.Take(i)
	}
	p.Reset()
	checkReset()
	for i := p.bitsPerWord(); i < p.Len()-p.bitsPerWord(); i++ {
		p.Take(i)
	}
	p.Reset()
	checkReset()
}
