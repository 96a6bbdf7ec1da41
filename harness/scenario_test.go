package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/sarchlab/backendtb/backend"
	"github.com/sarchlab/backendtb/config"
	"github.com/sarchlab/backendtb/program"
	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/trace"
	"github.com/sarchlab/backendtb/unit"
	"github.com/sarchlab/backendtb/uop"
)

var _ = Describe("Backend scenarios", func() {
	var (
		out       *bytes.Buffer
		collector *WritebackCollector
	)

	build := func(m *backend.Model, p *program.Program, reset, budget int) *Harness {
		enc, err := uop.NewEncoder(p.Mode, uop.DefaultSettleLatency)
		Expect(err).NotTo(HaveOccurred())

		return MakeBuilder().
			WithUnit(m).
			WithEncoder(enc).
			WithResetWidth(reset).
			WithBudget(budget).
			WithProgram(p.Entries...).
			WithHook(NewWritebackPrinter(out)).
			WithHook(collector).
			Build("harness")
	}

	BeforeEach(func() {
		out = new(bytes.Buffer)
		collector = &WritebackCollector{}
	})

	It("should write back 0x1e for ADD and finish within the budget", func() {
		m := backend.MakeBuilder().Build("backend")
		h := build(m, program.AddHalt(), 4, 20)

		res, err := h.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(OutcomeFinished))
		Expect(res.RunSteps).To(BeNumerically("<", 20))

		add, ok := collector.Last(2)
		Expect(ok).To(BeTrue())
		Expect(add.Valid).To(BeTrue())
		Expect(add.Data).To(Equal(uint32(0x1e)))
		Expect(add.Phase).To(Equal(PhaseRunning))
		Expect(out.String()).To(ContainSubstring("ALU wrote back: 1e\n"))
		Expect(m.Reg(2)).To(Equal(uint32(0x1e)))
	})

	It("should wrap around when subtracting below zero", func() {
		m := backend.MakeBuilder().Build("backend")
		h := build(m, program.SubFlags(), 4, 20)

		res, err := h.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(OutcomeBudgetExhausted))
		Expect(res.RunSteps).To(Equal(20))

		Expect(m.Reg(2)).To(Equal(uint32(0xFFFFFFF2)))
		Expect(m.Reg(3)).To(Equal(uint32(0xFFFFFFE3)))
		Expect(m.Flags() & backend.FlagN).NotTo(BeZero())
		Expect(m.Flags() & backend.FlagC).NotTo(BeZero())

		x3, ok := collector.Last(3)
		Expect(ok).To(BeTrue())
		Expect(x3.Data).To(Equal(uint32(0xFFFFFFE3)))
	})

	It("should issue every entry once with the backend's settle latency", func() {
		m := backend.MakeBuilder().Build("backend")
		h := build(m, program.SubFlags(), 4, 20)

		res, err := h.Run()
		Expect(err).NotTo(HaveOccurred())

		var dests []uint8
		for _, o := range res.Observations {
			dests = append(dests, o.DestReg)
		}
		Expect(dests).To(Equal([]uint8{1, 2, 3}))
	})

	DescribeTable("should refuse settle latencies that are not whole clock periods",
		func(settle int) {
			_, err := uop.NewEncoder(uop.ModeScalarPort, settle)
			Expect(errors.Is(err, uop.ErrInvalidSettleLatency)).To(BeTrue())

			cfg := config.Default()
			cfg.SettleLatency = settle
			Expect(errors.Is(cfg.Validate(), config.ErrInvalidConfig)).To(BeTrue())
		},
		Entry("one step", 1),
		Entry("three steps", 3),
	)

	It("should keep the backend's fault as the cause of an aborted run", func() {
		m := backend.MakeBuilder().Build("backend")
		p := &program.Program{
			Name: "illegal",
			Mode: uop.ModeScalarPort,
			Entries: []uop.Entry{
				uop.ScalarEntry(uop.Scalar{Opcode: uop.Opcode(0x7e), DestReg: 1}),
			},
		}
		h := build(m, p, 4, 20)

		_, err := h.Run()

		Expect(unit.IsEvalFault(err)).To(BeTrue())
		Expect(errors.Cause(err)).To(Equal(backend.ErrIllegalOpcode))
		Expect(h.Phase()).To(Equal(PhaseDone))
	})

	It("should issue queue slots in order and finish", func() {
		m := backend.MakeBuilder().WithMode(uop.ModeQueueSlot).Build("backend")
		h := build(m, program.QueueAddHalt(), 10, 1000)

		res, err := h.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(OutcomeFinished))

		var dests []uint8
		for _, o := range res.Observations {
			dests = append(dests, o.DestReg)
		}
		Expect(dests).To(Equal([]uint8{1, 2}))
		Expect(res.Observations[1].Data).To(Equal(uint32(0x1e)))
	})

	It("should hold each entry's values on the unit after its settle window", func() {
		m := backend.MakeBuilder().Build("backend")
		h := build(m, program.AddHalt(), 4, 0)
		enc := h.Encoder()

		Expect(h.Start()).To(Succeed())
		Expect(h.Reset(4)).To(Succeed())

		for _, e := range program.AddHalt().Entries {
			Expect(h.Drive([]uop.Entry{e})).To(Succeed())

			assignments, err := enc.Encode(e)
			Expect(err).NotTo(HaveOccurred())

			for _, a := range assignments {
				v, err := m.Value(a.Port)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(a.Value), fmt.Sprintf("%s after %s", a.Port, e))
			}
		}

		Expect(h.Finish()).To(Succeed())
	})

	It("should trace every step with consecutive timestamps", func() {
		m := backend.MakeBuilder().Build("backend")
		path := filepath.Join(GinkgoT().TempDir(), "backend.vcd")

		enc, err := uop.NewEncoder(uop.ModeScalarPort, uop.DefaultSettleLatency)
		Expect(err).NotTo(HaveOccurred())

		h := MakeBuilder().
			WithUnit(m).
			WithEncoder(enc).
			WithSink(trace.NewVCDSink(m), path).
			WithResetWidth(4).
			WithBudget(20).
			WithProgram(program.AddHalt().Entries...).
			Build("harness")

		res, err := h.Run()
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		var stamps []timing.VTimeInStep
		for _, line := range strings.Split(string(data), "\n") {
			var t timing.VTimeInStep
			if _, err := fmt.Sscanf(line, "#%d", &t); err == nil {
				stamps = append(stamps, t)
			}
		}

		Expect(stamps).To(HaveLen(int(res.Steps)))
		for i, t := range stamps {
			Expect(t).To(Equal(timing.VTimeInStep(i)))
		}

		Expect(res.EndTime).To(Equal(timing.VTimeInStep(res.Steps)))
	})
})
