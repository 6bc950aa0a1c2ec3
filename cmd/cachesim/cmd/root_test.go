package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/config"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/tracefile"
)

const sampleTrace = `0x00000000 I
0x00000008 I
0x00000000 I
0x00000010 I
0x00000008 I
0x00000004 I
0x00000000 R
0x00000004 R
0x00000020 W
0x00000000 R
0x00000008 W
0x0000000c W
0x00000028 R
`

var _ = Describe("Root command", func() {
	var (
		dir    string
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	)

	writeTrace := func(content string) string {
		path := filepath.Join(dir, "trace.txt")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())

		return path
	}

	execute := func(args ...string) error {
		c := NewRootCommand()
		c.SetOut(stdout)
		c.SetErr(stderr)
		c.SetArgs(append(args, "--env-file", filepath.Join(dir, ".env")))

		return c.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)

		for _, key := range []string{
			EnvInstructionCache, EnvDataCaches, EnvSeed,
		} {
			if v, ok := os.LookupEnv(key); ok {
				Expect(os.Unsetenv(key)).To(Succeed())
				DeferCleanup(os.Setenv, key, v)
			}
		}
	})

	It("should print the statistics of every cache", func() {
		err := execute("-I", "4:1:2:L", "-D", "1:4:2:1:L:B:A",
			writeTrace(sampleTrace))

		Expect(err).NotTo(HaveOccurred())
		out := stdout.String()
		Expect(out).To(ContainSubstring("I-cache Stats:"))
		Expect(out).To(ContainSubstring("L1 D-cache Stats:"))
		Expect(out).To(ContainSubstring(
			"Number of Words Read:                        10\n"))
		Expect(out).To(ContainSubstring(
			"Number of Words Written:                      4\n"))
		Expect(out).To(ContainSubstring("Memory Stats:"))
	})

	It("should run with only an instruction cache", func() {
		err := execute("-I", "4:1:2:R", writeTrace(sampleTrace))

		Expect(err).NotTo(HaveOccurred())
		Expect(stdout.String()).To(ContainSubstring("I-cache Stats:"))
		Expect(stdout.String()).NotTo(ContainSubstring("D-cache"))
		Expect(stdout.String()).NotTo(ContainSubstring("Memory Stats:"))
	})

	It("should require an instruction cache", func() {
		err := execute(writeTrace(sampleTrace))

		Expect(err).To(MatchError("no I-cache parameters specified"))
	})

	It("should reject a second instruction cache", func() {
		err := execute("-I", "4:1:1:L", "-I", "8:1:1:L",
			writeTrace(sampleTrace))

		Expect(err).To(MatchError("duplicate I-cache parameters"))
		Expect(stdout.String()).To(BeEmpty())
	})

	It("should complete the progress bar of the trace", func() {
		m := monitoring.NewMonitor()
		f, err := os.Open(writeTrace(sampleTrace))
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		src, finish, err := trackProgress(m, f)
		Expect(err).NotTo(HaveOccurred())

		_, err = io.Copy(io.Discard, src)
		Expect(err).NotTo(HaveOccurred())

		bars := m.ProgressBars()
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Percent()).To(BeNumerically("~", 100.0))

		finish()

		Expect(m.ProgressBars()).To(BeEmpty())
	})

	It("should run with a monitor", func() {
		err := execute("-I", "4:1:2:L", "--monitor", writeTrace(sampleTrace))

		Expect(err).NotTo(HaveOccurred())
		Expect(stdout.String()).To(ContainSubstring("I-cache Stats:"))
	})

	It("should require a trace file", func() {
		err := execute("-I", "4:1:2:L")

		Expect(err).To(HaveOccurred())
	})

	It("should fail on a missing trace file", func() {
		err := execute("-I", "4:1:2:L", filepath.Join(dir, "missing.txt"))

		Expect(err).To(MatchError(ContainSubstring("could not open trace file")))
	})

	It("should report malformed parameters", func() {
		err := execute("-I", "4:1:2:L", "-D", "5:4:2:1:L:B:A",
			writeTrace(sampleTrace))

		var parseErr *config.ParseError
		Expect(errors.As(err, &parseErr)).To(BeTrue())
	})

	It("should not report after an unknown access kind", func() {
		err := execute("-I", "4:1:2:L", "-D", "1:4:2:1:L:B:A",
			writeTrace("0x00 R\n0x04 Q\n"))

		var kindErr *tracefile.KindError
		Expect(errors.As(err, &kindErr)).To(BeTrue())
		Expect(stdout.String()).To(BeEmpty())
	})

	It("should take the caches from the environment", func() {
		Expect(os.WriteFile(filepath.Join(dir, ".env"), []byte(
			EnvInstructionCache+"=4:1:2:L\n"+
				EnvDataCaches+"=1:4:2:1:L:B:A;2:16:2:1:L:B:A\n"),
			0o600)).To(Succeed())
		DeferCleanup(os.Unsetenv, EnvInstructionCache)
		DeferCleanup(os.Unsetenv, EnvDataCaches)

		err := execute(writeTrace(sampleTrace))

		Expect(err).NotTo(HaveOccurred())
		Expect(stdout.String()).To(ContainSubstring("L2 D-cache Stats:"))
	})

	It("should reject a bad seed from the environment", func() {
		Expect(os.Setenv(EnvSeed, "abc")).To(Succeed())
		DeferCleanup(os.Unsetenv, EnvSeed)

		err := execute("-I", "4:1:2:R", writeTrace(sampleTrace))

		Expect(err).To(MatchError(ContainSubstring(EnvSeed)))
	})

	It("should log accesses when verbose", func() {
		err := execute("-I", "4:1:2:L", "-D", "1:4:2:1:L:B:A", "-v",
			writeTrace("0x00 I\nbad line\n0x20 W\n"))

		Expect(err).NotTo(HaveOccurred())
		Expect(stderr.String()).To(ContainSubstring("Instruction cache:"))
		Expect(stderr.String()).To(ContainSubstring(
			"I-cache, I, 0x00000000, set 0, way 0, compulsory miss"))
		Expect(stderr.String()).To(ContainSubstring("skipping line 2"))
		Expect(stderr.String()).To(ContainSubstring("memory, R, 0x00000020"))
	})

	It("should record into a database", func() {
		path := filepath.Join(dir, "run.sqlite3")

		err := execute("-I", "4:1:2:L", "--record="+path,
			writeTrace(sampleTrace))

		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(BeAnExistingFile())
	})
})
