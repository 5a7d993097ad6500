package layers

import (
	"fmt"

	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// detectionRowWidth is [image_id, label, confidence, xmin, ymin, xmax, ymax].
const detectionRowWidth = 7

// DetectionOutputLayer takes location predictions, confidence predictions and
// prior boxes and emits one row per kept detection. Only parameter validation
// and shape inference are implemented; Forward emits a single empty row.
type DetectionOutputLayer struct {
	base
	numClasses    int
	shareLocation bool
	numLocClasses int
	nmsThreshold  float32
	eta           float32
	topK          int
	numPriors     int
}

func newDetectionOutput(ctx *Context, spec *netspec.LayerSpec) (Layer, error) {
	if !spec.HasAttr("num_classes") {
		return nil, fmt.Errorf("must specify num_classes")
	}
	l := &DetectionOutputLayer{
		base:          newBase(ctx, spec),
		numClasses:    spec.AttrInt("num_classes", 0),
		shareLocation: spec.AttrBool("share_location", true),
		nmsThreshold:  spec.AttrFloat("nms_threshold", 0.3),
		eta:           spec.AttrFloat("eta", 1),
		topK:          spec.AttrInt("top_k", -1),
	}
	if l.numClasses <= 0 {
		return nil, fmt.Errorf("num_classes must be positive, got %d", l.numClasses)
	}
	if l.nmsThreshold < 0 {
		return nil, fmt.Errorf("nms_threshold must be non negative, got %g", l.nmsThreshold)
	}
	if l.eta <= 0 || l.eta > 1 {
		return nil, fmt.Errorf("eta must be in (0, 1], got %g", l.eta)
	}
	l.numLocClasses = 1
	if !l.shareLocation {
		l.numLocClasses = l.numClasses
	}
	return l, nil
}

// Setup checks arity and sizes the top.
func (l *DetectionOutputLayer) Setup(bottom, top []*tensor.RawTensor) error {
	if err := l.checkCounts(bottom, top, 3, 1); err != nil {
		return err
	}
	return l.Reshape(bottom, top)
}

// Reshape checks prediction counts against the number of priors.
func (l *DetectionOutputLayer) Reshape(bottom, top []*tensor.RawTensor) error {
	loc, conf, prior := bottom[0].Shape(), bottom[1].Shape(), bottom[2].Shape()
	if loc.LegacyDim(0) != conf.LegacyDim(0) {
		return fmt.Errorf("detection output layer %q: location batch %d != confidence batch %d",
			l.spec.Name, loc.LegacyDim(0), conf.LegacyDim(0))
	}
	l.numPriors = prior.LegacyDim(2) / 4
	if l.numPriors*l.numLocClasses*4 != loc.LegacyDim(1) {
		return fmt.Errorf("detection output layer %q: number of priors must match number of location predictions", l.spec.Name)
	}
	if l.numPriors*l.numClasses != conf.LegacyDim(1) {
		return fmt.Errorf("detection output layer %q: number of priors must match number of confidence predictions", l.spec.Name)
	}
	// The number of kept boxes is unknown before decoding, so one row is reserved.
	return top[0].Reshape(tensor.Shape{1, 1, 1, detectionRowWidth})
}

// Forward writes a placeholder row with every field set to -1.
func (l *DetectionOutputLayer) Forward(_, top []*tensor.RawTensor) (float32, error) {
	top[0].Fill(-1)
	return 0, nil
}
