package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/backendtb/backend"
	"github.com/sarchlab/backendtb/harness"
	"github.com/sarchlab/backendtb/hooking"
	"github.com/sarchlab/backendtb/program"
)

type barSpy struct {
	m    *Monitor
	bars *[]*ProgressBar
}

func (s *barSpy) Func(ctx hooking.HookCtx) {
	if ctx.Pos != harness.HookPosAfterStep || s.m.runBar == nil {
		return
	}

	n := len(*s.bars)
	if n == 0 || (*s.bars)[n-1] != s.m.runBar {
		*s.bars = append(*s.bars, s.m.runBar)
	}
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		model  *backend.Model
		h      *harness.Harness
		server *httptest.Server
	)

	get := func(path string) (int, string) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())

		return rsp.StatusCode, string(body)
	}

	snapshot := func() Snapshot {
		_, body := get("/api/snapshot")

		var s Snapshot
		Expect(json.Unmarshal([]byte(body), &s)).To(Succeed())

		return s
	}

	BeforeEach(func() {
		model = backend.MakeBuilder().Build("backend")
		h = harness.MakeBuilder().
			WithUnit(model).
			WithResetWidth(4).
			WithBudget(20).
			WithProgram(program.AddHalt().Entries...).
			Build("harness")

		m = NewMonitor()
		m.RegisterHarness(h, model)

		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		m.Continue()
		server.Close()
	})

	It("should refuse privileged port numbers", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(Equal(0))
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should serve the snapshot after a run", func() {
		_, err := h.Run()
		Expect(err).NotTo(HaveOccurred())

		s := snapshot()
		Expect(s.Name).To(Equal("harness"))
		Expect(s.Phase).To(Equal("DONE"))
		Expect(s.Time).To(Equal(h.Steps()))
		Expect(s.Writebacks).To(Equal(2))
		Expect(s.LastWriteback).NotTo(BeNil())
		Expect(s.LastWriteback.Data).To(Equal(uint32(0x1e)))
		Expect(s.Signals).To(HaveLen(len(model.Signals())))
	})

	It("should serve single signals", func() {
		_, err := h.Run()
		Expect(err).NotTo(HaveOccurred())

		code, body := get("/api/signal/regs.x2")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(Equal(`{"name":"regs.x2","value":30}`))

		code, _ = get("/api/signal/nothing")
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("should serve the time and the phase", func() {
		code, body := get("/api/now")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(Equal(`{"now":0,"cycle":0}`))

		_, body = get("/api/phase")
		Expect(body).To(Equal(`{"phase":"INIT","paused":false}`))
	})

	It("should serve fields of the snapshot", func() {
		_, err := h.Run()
		Expect(err).NotTo(HaveOccurred())

		code, body := get("/api/field/LastWriteback")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).NotTo(BeEmpty())
	})

	It("should hold the harness while paused", func() {
		_, _ = get("/api/pause")

		done := make(chan error)
		go func() {
			_, err := h.Run()
			done <- err
		}()

		Eventually(func() string { return snapshot().Phase }).
			Should(Equal("RESETTING"))
		Consistently(func() uint64 { return snapshot().Steps }).
			Should(Equal(uint64(0)))

		_, body := get("/api/phase")
		Expect(body).To(ContainSubstring(`"paused":true`))

		_, _ = get("/api/continue")

		Eventually(done).Should(Receive(BeNil()))
		Expect(snapshot().Phase).To(Equal("DONE"))
	})

	It("should track the run loop with a progress bar", func() {
		var bars []*ProgressBar

		h.AcceptHook(&barSpy{m: m, bars: &bars})

		_, err := h.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(bars).NotTo(BeEmpty())
		Expect(bars[len(bars)-1].Total).To(Equal(uint64(20)))
		Expect(bars[len(bars)-1].Finished).To(BeNumerically(">", 0))

		_, body := get("/api/progress")
		Expect(body).To(Equal("[]"))
	})

	It("should report resource usage", func() {
		code, body := get("/api/resource")
		Expect(code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal([]byte(body), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the web page", func() {
		code, body := get("/")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("backendtb monitor"))

		rsp, err := http.Get(server.URL + "/index.html")
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.Header.Get("Cache-Control")).To(Equal("no-store"))
	})
})
