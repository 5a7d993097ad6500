package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/blobnet/internal/config"
	"github.com/born-ml/blobnet/internal/net"
	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
	"github.com/born-ml/blobnet/internal/weights"
)

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(out, "blobnet %s\n", version)
		return nil
	case "summary":
		return summaryCmd(args[1:], out)
	case "run":
		return runCmd(args[1:], out)
	case "export":
		return exportCmd(args[1:], out)
	default:
		printUsage()
		return errors.Errorf("unknown command %q", args[0])
	}
}

// stageList collects repeated -stage flags.
type stageList []string

func (s *stageList) String() string { return strings.Join(*s, ",") }

func (s *stageList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// commonFlags are shared by every command that builds a network.
type commonFlags struct {
	configPath string
	netPath    string
	weights    string
	phase      string
	level      int
	stages     stageList
	logLevel   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to run config YAML file")
	fs.StringVar(&c.netPath, "net", "", "Path to network YAML (overrides config)")
	fs.StringVar(&c.weights, "weights", "", "Path to .caffemodel or .born weights (overrides config)")
	fs.StringVar(&c.phase, "phase", "", "Run phase: train or test (overrides config)")
	fs.IntVar(&c.level, "level", 0, "Run level (used with -phase)")
	fs.Var(&c.stages, "stage", "Run stage, may be repeated (used with -phase)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (overrides config)")
}

// resolve merges the config file with flag overrides and configures logging.
func (c *commonFlags) resolve() (*config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		loaded, err := config.Load(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.netPath != "" {
		cfg.Net = c.netPath
	}
	if c.weights != "" {
		cfg.Weights = c.weights
	}
	if c.phase != "" {
		cfg.State = &config.StateConf{Phase: c.phase, Level: c.level, Stages: c.stages}
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if cfg.Net == "" {
		return nil, errors.New("no network given: use -net or a config file")
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(level)
	return cfg, nil
}

func buildNet(cfg *config.Config) (*net.Net, error) {
	spec, err := netspec.LoadFile(cfg.Net)
	if err != nil {
		return nil, err
	}
	state, err := cfg.RunState()
	if err != nil {
		return nil, err
	}
	opts := net.DefaultOptions()
	opts.State = state
	opts.Parallel = cfg.ParallelConfig()

	n, err := net.New(spec, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s", cfg.Net)
	}
	if cfg.Weights != "" {
		if err := n.CopyTrainedLayersFrom(cfg.Weights); err != nil {
			return nil, errors.Wrapf(err, "load %s", cfg.Weights)
		}
	}
	return n, nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(header)
	return table
}

func idList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func summaryCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.resolve()
	if err != nil {
		return err
	}
	n, err := buildNet(cfg)
	if err != nil {
		return err
	}
	printSummary(n, out)
	return nil
}

func printSummary(n *net.Net, out io.Writer) {
	fmt.Fprintf(out, "Network %q (%s): %d layers, %d buffers, %d params, %d bytes of activations\n",
		n.Name(), n.Phase(), n.LayerCount(), len(n.Buffers()), len(n.Params()), n.MemoryUsed())

	layers := newTable(out, "ID", "Layer", "Type", "Bottoms", "Tops", "Params", "Grad")
	for _, l := range n.Layers() {
		layers.Append([]string{
			strconv.Itoa(l.ID), l.Name, l.Type,
			idList(l.Bottoms), idList(l.Tops), idList(l.Params),
			strconv.FormatBool(l.NeedsGrad),
		})
	}
	layers.Render()

	inputs := make(map[int]bool)
	for _, id := range n.InputIDs() {
		inputs[id] = true
	}
	outputs := make(map[int]bool)
	for _, id := range n.OutputIDs() {
		outputs[id] = true
	}
	buffers := newTable(out, "ID", "Buffer", "Shape", "Role", "Loss weight")
	for _, b := range n.Buffers() {
		var role []string
		if inputs[b.ID] {
			role = append(role, "input")
		}
		if outputs[b.ID] {
			role = append(role, "output")
		}
		buffers.Append([]string{
			strconv.Itoa(b.ID), b.Name, b.Data.ShapeString(), strings.Join(role, "+"),
			strconv.FormatFloat(float64(b.LossWeight), 'g', -1, 32),
		})
	}
	buffers.Render()

	if len(n.Params()) == 0 {
		return
	}
	params := newTable(out, "ID", "Layer", "Param", "Shape", "Owner", "lr_mult", "decay_mult")
	for _, p := range n.Params() {
		layer := n.Layers()[p.LayerID]
		l := n.Learnables()[p.Learnable]
		params.Append([]string{
			strconv.Itoa(p.ID), layer.Name, p.DisplayName,
			layer.Layer.Blobs()[p.Index].ShapeString(), strconv.Itoa(p.Owner),
			strconv.FormatFloat(float64(l.LRMult), 'g', -1, 32),
			strconv.FormatFloat(float64(l.DecayMult), 'g', -1, 32),
		})
	}
	params.Render()
}

func runCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	fill := fs.Float64("fill", 0, "Constant written to every input (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.resolve()
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "fill" {
			cfg.Fill = float32(*fill)
		}
	})

	n, err := buildNet(cfg)
	if err != nil {
		return err
	}
	for name, shape := range cfg.Inputs {
		buf, ok := n.BufferByName(name)
		if !ok {
			return errors.Errorf("config names unknown input %q", name)
		}
		if err := buf.Data.Reshape(tensor.Shape(shape)); err != nil {
			return errors.Wrapf(err, "input %q", name)
		}
	}
	if err := n.ReshapeAll(); err != nil {
		return err
	}
	for _, in := range n.Inputs() {
		in.Data.Fill(cfg.Fill)
	}

	outputs, loss, err := n.RunAll()
	if err != nil {
		return err
	}
	table := newTable(out, "Output", "Shape", "First values")
	for _, b := range outputs {
		table.Append([]string{b.Name, b.Data.ShapeString(), preview(b.Data.AsFloat32(), 6)})
	}
	table.Render()
	fmt.Fprintf(out, "Loss: %g\n", loss)
	return nil
}

func preview(values []float32, limit int) string {
	parts := make([]string, 0, min(len(values), limit)+1)
	for i, v := range values {
		if i == limit {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, strconv.FormatFloat(float64(v), 'g', 4, 32))
	}
	return strings.Join(parts, " ")
}

func exportCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	outPath := fs.String("out", "", "Destination weights file (.caffemodel or .born)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		return errors.New("export needs -out")
	}
	cfg, err := common.resolve()
	if err != nil {
		return err
	}
	n, err := buildNet(cfg)
	if err != nil {
		return err
	}
	exported := n.ExportWeights()
	if err := weights.WriteFile(*outPath, n.Name(), exported); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d layers to %s (%s)\n", len(exported), *outPath, weights.FormatForPath(*outPath))
	return nil
}
