package trace

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/coresim/emu"
	"github.com/sarchlab/coresim/timing/config"
	"github.com/sarchlab/coresim/timing/core"
	"github.com/sarchlab/coresim/timing/lsu"
)

func sampleTransactions() []Transaction {
	return []Transaction{
		{ID: "a", Where: "Core", Bus: core.DataBus, Addr: 0x1000, Write: true,
			BE: 0b1000, WData: 0xDD000000, Issue: 0, Grant: 0, Valid: 1},
		{ID: "b", Where: "Core", Bus: core.DataBus, Addr: 0x1004, Write: true,
			BE: 0b0111, WData: 0x00AABBCC, Issue: 1, Grant: 1, Valid: 2},
		{ID: "c", Where: "Core", Bus: core.FetchBus, Addr: 0x0, BE: 0b1111,
			RData: 0x13, Err: true, Issue: 0, Grant: 0, Valid: 1},
	}
}

var _ = Describe("CSVWriter", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	readRows := func(path string) [][]string {
		f, err := os.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		return rows
	}

	It("should write a header and one row per transaction", func() {
		path := filepath.Join(dir, "trace.csv")
		w := NewCSVWriter(path)
		Expect(w.Init()).To(Succeed())

		for _, tx := range sampleTransactions() {
			Expect(w.Write(tx)).To(Succeed())
		}
		Expect(w.Close()).To(Succeed())
		Expect(w.Close()).To(Succeed())

		rows := readRows(path)
		Expect(rows).To(HaveLen(4))
		Expect(rows[0]).To(Equal(csvHeader))
		Expect(rows[1]).To(Equal([]string{
			"a", "Core", "data", "0x00001000", "true", "1000",
			"0xdd000000", "0x00000000", "false", "0", "0", "1",
		}))
		Expect(rows[3][8]).To(Equal("true"))
	})

	It("should refuse to overwrite a file", func() {
		path := filepath.Join(dir, "trace.csv")
		Expect(os.WriteFile(path, nil, 0644)).To(Succeed())

		Expect(NewCSVWriter(path).Init()).To(MatchError(ContainSubstring("failed to create")))
	})

	It("should trace every data transaction of a core", func() {
		path := filepath.Join(dir, "core.csv")
		w := NewCSVWriter(path)
		Expect(w.Init()).To(Succeed())

		c, err := core.NewCore("Core", sim.NewSerialEngine(), config.Default(), emu.NewMemory())
		Expect(err).NotTo(HaveOccurred())

		tracer := NewBusTracer(w)
		c.AcceptHook(tracer)
		c.SetWorkload(core.Workload{Ops: []lsu.Access{
			{Write: true, Type: lsu.Word, Addr: 0x1003, WData: 0xAABBCCDD},
			{Type: lsu.Word, Addr: 0x1003},
			{Type: lsu.Byte, Addr: 0x20},
		}})
		Expect(c.Run()).To(Succeed())
		Expect(tracer.Flush()).To(Succeed())
		Expect(w.Close()).To(Succeed())

		rows := readRows(path)[1:]
		Expect(rows).To(HaveLen(int(c.Stats().DataTransactions)))
		Expect(rows).To(HaveLen(5))

		// Both halves of the split store carry the same rotated data.
		Expect(rows[0][3:7]).To(Equal([]string{"0x00001000", "true", "1000", "0xddaabbcc"}))
		Expect(rows[1][3:7]).To(Equal([]string{"0x00001004", "true", "0111", "0xddaabbcc"}))
		Expect(rows[2][7]).To(Equal("0xdd000000"))
		Expect(rows[3][7]).To(Equal("0x00aabbcc"))
	})
})

var _ = Describe("SQLiteWriter", func() {
	It("should insert all transactions on flush", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace.sqlite3")
		w := NewSQLiteWriter(path)
		Expect(w.Init()).To(Succeed())

		for _, tx := range sampleTransactions() {
			Expect(w.Write(tx)).To(Succeed())
		}
		Expect(w.Close()).To(Succeed())

		db, err := sql.Open("sqlite3", path)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		var count, writes, errs int
		err = db.QueryRow(
			`select count(*), sum(is_write), sum(is_error) from bus_trace`,
		).Scan(&count, &writes, &errs)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(3))
		Expect(writes).To(Equal(2))
		Expect(errs).To(Equal(1))

		var addr uint32
		var valid uint64
		err = db.QueryRow(
			`select addr, valid_cycle from bus_trace where id = 'b'`,
		).Scan(&addr, &valid)
		Expect(err).NotTo(HaveOccurred())
		Expect(addr).To(Equal(uint32(0x1004)))
		Expect(valid).To(Equal(uint64(2)))
	})

	It("should flush by itself when a batch is full", func() {
		path := filepath.Join(GinkgoT().TempDir(), "batch.sqlite3")
		w := NewSQLiteWriter(path)
		w.batchSize = 2
		Expect(w.Init()).To(Succeed())

		for _, tx := range sampleTransactions() {
			Expect(w.Write(tx)).To(Succeed())
		}
		Expect(w.buffer).To(HaveLen(1))
		Expect(w.Close()).To(Succeed())
	})

	It("should refuse an existing database file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "old.sqlite3")
		Expect(os.WriteFile(path, nil, 0644)).To(Succeed())

		Expect(NewSQLiteWriter(path).Init()).To(MatchError(ContainSubstring("already exists")))
	})
})
