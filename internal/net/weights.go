package net

import (
	"fmt"

	"github.com/born-ml/blobnet/internal/tensor"
	"github.com/born-ml/blobnet/internal/weights"
)

// CopyTrainedLayers copies parameter blobs from src into the layers of the
// same name. Source layers missing from the graph are skipped.
//
// Every source layer is validated before anything is copied, so a failed
// load leaves the graph untouched.
func (n *Net) CopyTrainedLayers(src []weights.LayerBlobs) error {
	type copyOp struct {
		dst *tensor.RawTensor
		src *tensor.RawTensor
	}
	var ops []copyOp

	for _, source := range src {
		id, ok := n.layerIndex[source.Name]
		if !ok {
			n.log.Infof("Ignoring source layer %s", source.Name)
			continue
		}
		n.log.Debugf("Copying source layer %s", source.Name)
		target := n.layers[id].Layer.Blobs()
		if len(target) != len(source.Blobs) {
			return &LoadError{
				Kind:    KindWeightCountMismatch,
				Layer:   source.Name,
				Index:   -1,
				Details: fmt.Sprintf("target has %d blobs, source has %d", len(target), len(source.Blobs)),
			}
		}
		for j, blob := range source.Blobs {
			if !blobShapeMatches(target[j].Shape(), blob.Shape(), source.LegacyShapes) {
				return &LoadError{
					Kind:  KindWeightShapeMismatch,
					Layer: source.Name,
					Index: j,
					Details: fmt.Sprintf("source param shape is %s; target param shape is %s",
						blob.ShapeString(), target[j].ShapeString()),
				}
			}
			if blob.DType() != target[j].DType() {
				converted, err := blob.ToFloat32()
				if err != nil || converted.DType() != target[j].DType() {
					return &LoadError{
						Kind:    KindWeightShapeMismatch,
						Layer:   source.Name,
						Index:   j,
						Details: fmt.Sprintf("cannot load %s data into %s param", blob.DType(), target[j].DType()),
					}
				}
				blob = converted
			}
			ops = append(ops, copyOp{dst: target[j], src: blob})
		}
	}

	for _, op := range ops {
		// Shapes were checked above; counts match even for legacy 4-D sources.
		if err := op.dst.CopyFrom(op.src, false); err != nil {
			return err
		}
	}
	return nil
}

// blobShapeMatches compares a target param shape with a source blob shape.
// Legacy sources always carry four dimensions and match a target whose
// trailing dimensions agree once it is padded to 4-D with leading ones.
func blobShapeMatches(target, source tensor.Shape, legacy bool) bool {
	if !legacy || len(source) != 4 || len(target) > 4 {
		return target.Equal(source)
	}
	for i := 0; i < 4; i++ {
		if target.LegacyDim(len(target)-4+i) != source[i] {
			return false
		}
	}
	return true
}

// CopyTrainedLayersFrom loads a .caffemodel or .born file and copies it into
// the graph.
func (n *Net) CopyTrainedLayersFrom(path string) error {
	src, err := weights.ReadFile(path)
	if err != nil {
		return err
	}
	return n.CopyTrainedLayers(src)
}

// ExportWeights returns the parameter blobs of every layer that has any.
// The tensors are the graph's live storage, not copies.
func (n *Net) ExportWeights() []weights.LayerBlobs {
	var out []weights.LayerBlobs
	for _, node := range n.layers {
		blobs := node.Layer.Blobs()
		if len(blobs) == 0 {
			continue
		}
		out = append(out, weights.LayerBlobs{Name: node.Name, Type: node.Type, Blobs: blobs})
	}
	return out
}
