package sim

import (
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/xid"
)

var _ = Describe("IDGenerator", func() {
	AfterEach(func() {
		UseSequentialIDGenerator()
	})

	It("should generate increasing numbers by default", func() {
		a, err := strconv.ParseUint(GetIDGenerator().Generate(), 10, 64)
		Expect(err).ToNot(HaveOccurred())

		b, err := strconv.ParseUint(GetIDGenerator().Generate(), 10, 64)
		Expect(err).ToNot(HaveOccurred())

		Expect(b).To(Equal(a + 1))
	})

	It("should generate xids in parallel mode", func() {
		UseParallelIDGenerator()

		id := GetIDGenerator().Generate()

		_, err := strconv.ParseUint(id, 10, 64)
		Expect(err).To(HaveOccurred())

		_, err = xid.FromString(id)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should not repeat sequential IDs across switches", func() {
		before := GetIDGenerator().Generate()

		UseParallelIDGenerator()
		GetIDGenerator().Generate()
		UseSequentialIDGenerator()

		after := GetIDGenerator().Generate()

		Expect(mustParse(after)).To(BeNumerically(">", mustParse(before)))
	})
})

func mustParse(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	Expect(err).ToNot(HaveOccurred())

	return n
}
