package idealmemcontroller

const pageSize = 4096

// storage is a sparse byte store. Pages are allocated on first write.
type storage struct {
	pages map[uint64][]byte
}

func newStorage() *storage {
	return &storage{pages: make(map[uint64][]byte)}
}

func (s *storage) read(addr, size uint64) []byte {
	out := make([]byte, size)

	for i := uint64(0); i < size; i++ {
		a := addr + i
		if page, ok := s.pages[a/pageSize]; ok {
			out[i] = page[a%pageSize]
		}
	}

	return out
}

func (s *storage) write(addr uint64, data []byte) {
	for i, b := range data {
		a := addr + uint64(i)

		page, ok := s.pages[a/pageSize]
		if !ok {
			page = make([]byte, pageSize)
			s.pages[a/pageSize] = page
		}

		page[a%pageSize] = b
	}
}
