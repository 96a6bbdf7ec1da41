package unit

import (
	"github.com/pkg/errors"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/backendtb/uop"
)

var _ = Describe("Adapter", func() {
	var (
		mockCtrl *gomock.Controller
		u        *MockUnit
		a        *Adapter
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		u = NewMockUnit(mockCtrl)
		a = NewAdapter(u)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should mask values to the declared port width", func() {
		u.EXPECT().SetInput(uop.PortDestReg, uint64(0x1f)).Return(nil)

		Expect(a.SetInput(uop.PortDestReg, 0xff)).To(Succeed())

		v, ok := a.Input(uop.PortDestReg)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0x1f)))
	})

	It("should pass ports without a declared width through", func() {
		u.EXPECT().SetInput("debug_bus", uint64(0x1234)).Return(nil)

		Expect(a.SetInput("debug_bus", 0x1234)).To(Succeed())
	})

	It("should wrap unknown port errors", func() {
		u.EXPECT().SetInput("nope", uint64(1)).Return(ErrUnknownPort)

		err := a.SetInput("nope", 1)

		Expect(errors.Cause(err)).To(Equal(ErrUnknownPort))
		Expect(err.Error()).To(ContainSubstring("nope"))
		_, ok := a.Input("nope")
		Expect(ok).To(BeFalse())
	})

	It("should apply assignments in order and stop at the first failure", func() {
		gomock.InOrder(
			u.EXPECT().SetInput(uop.PortOpcode, uint64(0x10)).Return(nil),
			u.EXPECT().SetInput("bad", uint64(2)).Return(ErrUnknownPort),
		)

		err := a.Apply([]uop.Assignment{
			{Port: uop.PortOpcode, Value: 0x10},
			{Port: "bad", Value: 2},
			{Port: uop.PortPC, Value: 3},
		})

		Expect(errors.Cause(err)).To(Equal(ErrUnknownPort))
	})

	It("should turn eval failures into evaluation faults", func() {
		u.EXPECT().Eval().Return(nil)
		cause := errors.New("x propagation")
		u.EXPECT().Eval().Return(errors.Wrap(cause, "stage ex"))

		Expect(a.EvalStep()).To(Succeed())
		err := a.EvalStep()

		Expect(IsEvalFault(err)).To(BeTrue())
		Expect(errors.Is(err, ErrEvalFault)).To(BeTrue())
		Expect(errors.Cause(err)).To(Equal(cause))
		Expect(err.Error()).To(ContainSubstring("eval #2"))
		Expect(err.Error()).To(ContainSubstring("x propagation"))
		Expect(a.Evals()).To(Equal(uint64(2)))
	})

	It("should sample the writeback announcement", func() {
		u.EXPECT().ReadOutput(uop.PortWritebackValid).Return(uint64(1), nil)
		u.EXPECT().ReadOutput(uop.PortWritebackDest).Return(uint64(2), nil)
		u.EXPECT().ReadOutput(uop.PortWritebackData).Return(uint64(0x1e), nil)

		wb, err := a.Writeback()

		Expect(err).NotTo(HaveOccurred())
		Expect(wb).To(Equal(Writeback{Valid: true, DestReg: 2, Data: 0x1e}))
	})

	It("should report read failures", func() {
		u.EXPECT().ReadOutput(uop.PortWritebackValid).Return(uint64(0), ErrUnknownPort)

		_, err := a.Writeback()

		Expect(errors.Cause(err)).To(Equal(ErrUnknownPort))
	})

	It("should forward the finish flag", func() {
		u.EXPECT().Finished().Return(true)

		Expect(a.IsFinished()).To(BeTrue())
	})

	It("should refuse a nil unit", func() {
		Expect(func() { NewAdapter(nil) }).To(Panic())
	})
})
