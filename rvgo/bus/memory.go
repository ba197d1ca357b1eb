package bus

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Note: 2**12 = 4 KiB, the page size assumed by most RISC-V software.
const (
	PageAddrSize = 12
	PageSize     = 1 << PageAddrSize
	PageAddrMask = PageSize - 1
)

type Page [PageSize]byte

func (p *Page) MarshalText() ([]byte, error) {
	return hexutil.Bytes(p[:]).MarshalText()
}

func (p *Page) UnmarshalText(dat []byte) error {
	var b hexutil.Bytes
	if err := b.UnmarshalText(dat); err != nil {
		return err
	}
	if len(b) != PageSize {
		return fmt.Errorf("expected %d bytes of page data, got %d", PageSize, len(b))
	}
	copy(p[:], b)
	return nil
}

// Memory is byte-addressable main memory. Pages are allocated on first write,
// so a large capacity costs nothing until it is used. Unwritten memory reads as zero.
type Memory struct {
	size  uint64
	pages map[uint64]*Page

	// two caches: we often read instructions from one page, and do memory things with another page.
	// this prevents map lookups each instruction
	lastPageKeys [2]uint64
	lastPage     [2]*Page
}

func NewMemory(size uint64) *Memory {
	return &Memory{
		size:         size,
		pages:        make(map[uint64]*Page),
		lastPageKeys: [2]uint64{^uint64(0), ^uint64(0)}, // default to invalid keys, to not match any pages
	}
}

// Size is the capacity of the memory in bytes.
func (m *Memory) Size() uint64 {
	return m.size
}

func (m *Memory) PageCount() int {
	return len(m.pages)
}

func (m *Memory) ForEachPage(fn func(pageIndex uint64, page *Page) error) error {
	for pageIndex, page := range m.pages {
		if err := fn(pageIndex, page); err != nil {
			return err
		}
	}
	return nil
}

// SortedPageIndices returns the indices of all allocated pages in ascending order.
func (m *Memory) SortedPageIndices() []uint64 {
	out := make([]uint64, 0, len(m.pages))
	for k := range m.pages {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Memory) PageAt(pageIndex uint64) (*Page, bool) {
	return m.pageLookup(pageIndex)
}

func (m *Memory) pageLookup(pageIndex uint64) (*Page, bool) {
	// hit caches
	if pageIndex == m.lastPageKeys[0] {
		return m.lastPage[0], true
	}
	if pageIndex == m.lastPageKeys[1] {
		return m.lastPage[1], true
	}
	p, ok := m.pages[pageIndex]

	// only cache existing pages.
	if ok {
		m.lastPageKeys[1] = m.lastPageKeys[0]
		m.lastPage[1] = m.lastPage[0]
		m.lastPageKeys[0] = pageIndex
		m.lastPage[0] = p
	}

	return p, ok
}

func (m *Memory) allocPage(pageIndex uint64) *Page {
	p := new(Page)
	m.pages[pageIndex] = p
	return p
}

func (m *Memory) inBounds(addr uint64, n uint64) bool {
	return n <= m.size && addr <= m.size-n
}

func (m *Memory) Read(offset uint64, w Width) (uint64, error) {
	n := w.Bytes()
	if !m.inBounds(offset, n) {
		return 0, ErrOutOfBounds
	}
	var buf [8]byte
	m.getBytes(offset, buf[:n])
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (m *Memory) Write(offset uint64, value uint64, w Width) error {
	n := w.Bytes()
	if !m.inBounds(offset, n) {
		return ErrOutOfBounds
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	m.setBytes(offset, buf[:n])
	return nil
}

// setBytes writes up to a page worth of data, spanning at most two pages.
func (m *Memory) setBytes(addr uint64, dat []byte) {
	for len(dat) > 0 {
		pageIndex := addr >> PageAddrSize
		pageAddr := addr & PageAddrMask
		p, ok := m.pageLookup(pageIndex)
		if !ok {
			// allocate the page if we have not already.
			p = m.allocPage(pageIndex)
		}
		d := copy(p[pageAddr:], dat)
		dat = dat[d:]
		addr += uint64(d)
	}
}

func (m *Memory) getBytes(addr uint64, dest []byte) {
	for len(dest) > 0 {
		pageIndex := addr >> PageAddrSize
		pageAddr := addr & PageAddrMask
		var d int
		if p, ok := m.pageLookup(pageIndex); ok {
			d = copy(dest, p[pageAddr:])
		} else {
			l := PageSize - pageAddr
			if l > uint64(len(dest)) {
				l = uint64(len(dest))
			}
			clear(dest[:l])
			d = int(l)
		}
		dest = dest[d:]
		addr += uint64(d)
	}
}

// Load copies data into memory starting at offset 0.
func (m *Memory) Load(data []byte) error {
	if uint64(len(data)) > m.size {
		return fmt.Errorf("image of %d bytes exceeds memory capacity of %d bytes", len(data), m.size)
	}
	m.setBytes(0, data)
	return nil
}

// SetRange copies everything from r into memory starting at addr.
func (m *Memory) SetRange(addr uint64, r io.Reader) error {
	for {
		if addr >= m.size {
			// anything left in the reader does not fit
			var probe [1]byte
			if n, _ := r.Read(probe[:]); n > 0 {
				return fmt.Errorf("data exceeds memory capacity at offset 0x%x", addr)
			}
			return nil
		}
		pageIndex := addr >> PageAddrSize
		pageAddr := addr & PageAddrMask
		p, ok := m.pageLookup(pageIndex)
		if !ok {
			p = m.allocPage(pageIndex)
		}
		end := uint64(PageSize)
		if rem := m.size - (addr - pageAddr); rem < end {
			end = rem
		}
		n, err := r.Read(p[pageAddr:end])
		addr += uint64(n)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

type memReader struct {
	m     *Memory
	addr  uint64
	count uint64
}

func (r *memReader) Read(dest []byte) (n int, err error) {
	if r.count == 0 {
		return 0, io.EOF
	}
	if uint64(len(dest)) > r.count {
		dest = dest[:r.count]
	}
	// stay within a single page per read call
	if rem := PageSize - (r.addr & PageAddrMask); uint64(len(dest)) > rem {
		dest = dest[:rem]
	}
	r.m.getBytes(r.addr, dest)
	n = len(dest)
	r.addr += uint64(n)
	r.count -= uint64(n)
	return n, nil
}

// ReadRange returns a reader over count bytes of memory starting at addr.
func (m *Memory) ReadRange(addr uint64, count uint64) io.Reader {
	return &memReader{m: m, addr: addr, count: count}
}

func (m *Memory) Usage() string {
	total := uint64(len(m.pages)) * PageSize
	const unit = 1024
	if total < unit {
		return fmt.Sprintf("%d B", total)
	}
	div, exp := uint64(unit), 0
	for n := total / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	// KiB, MiB, GiB, TiB, ...
	return fmt.Sprintf("%.1f %ciB", float64(total)/float64(div), "KMGTPE"[exp])
}

type pageEntry struct {
	Index uint64 `json:"index"`
	Data  *Page  `json:"data"`
}

type memoryJSON struct {
	Size  hexutil.Uint64 `json:"size"`
	Pages []pageEntry    `json:"pages"`
}

func (m *Memory) MarshalJSON() ([]byte, error) {
	out := memoryJSON{Size: hexutil.Uint64(m.size), Pages: make([]pageEntry, 0, len(m.pages))}
	for _, k := range m.SortedPageIndices() {
		out.Pages = append(out.Pages, pageEntry{Index: k, Data: m.pages[k]})
	}
	return json.Marshal(out)
}

func (m *Memory) UnmarshalJSON(data []byte) error {
	var in memoryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.size = uint64(in.Size)
	m.pages = make(map[uint64]*Page)
	m.lastPageKeys = [2]uint64{^uint64(0), ^uint64(0)}
	m.lastPage = [2]*Page{nil, nil}
	for i, p := range in.Pages {
		if _, ok := m.pages[p.Index]; ok {
			return fmt.Errorf("cannot load duplicate page, entry %d, page index %d", i, p.Index)
		}
		if p.Index<<PageAddrSize >= m.size {
			return fmt.Errorf("page %d at entry %d is outside of memory of %d bytes", p.Index, i, m.size)
		}
		if p.Data == nil {
			p.Data = new(Page)
		}
		m.pages[p.Index] = p.Data
	}
	return nil
}
