package netspec

import "fmt"

// SplitType is the layer type inserted by InsertSplits.
const SplitType = "Split"

// SplitLayerName names the Split layer that fans out top topIdx of layer.
func SplitLayerName(layer, blob string, topIdx int) string {
	return fmt.Sprintf("%s_%s_%d_split", blob, layer, topIdx)
}

// SplitBlobName names output splitIdx of the Split layer for top topIdx of layer.
func SplitBlobName(layer, blob string, topIdx, splitIdx int) string {
	return fmt.Sprintf("%s_%s_%d_split_%d", blob, layer, topIdx, splitIdx)
}

// blobRef identifies one slot (bottom or top) of one layer.
type blobRef struct {
	layer, slot int
}

// InsertSplits returns a copy of spec in which every produced blob is read by
// at most one layer.
//
// A top that feeds several bottoms (or one bottom plus a non-zero loss weight)
// gets a Split layer right after its producer with one output per consumer,
// and each consumer is renamed to read its own output. Bottoms that name no
// earlier top are left untouched so that graph construction reports them.
func InsertSplits(spec *NetSpec) *NetSpec {
	lastTop := make(map[string]blobRef)
	source := make(map[blobRef]blobRef)
	consumers := make(map[blobRef]int)
	lossWeight := make(map[blobRef]float32)

	for i := range spec.Layers {
		layer := &spec.Layers[i]
		for j, name := range layer.Bottoms {
			top, ok := lastTop[name]
			if !ok {
				continue
			}
			source[blobRef{i, j}] = top
			consumers[top]++
		}
		for j, name := range layer.Tops {
			lastTop[name] = blobRef{i, j}
		}
		for j := 0; j < len(layer.LossWeight) && j < len(layer.Tops); j++ {
			w := layer.LossWeight[j]
			lossWeight[blobRef{i, j}] = w
			if w != 0 {
				consumers[blobRef{i, j}]++
			}
		}
	}

	out := &NetSpec{Name: spec.Name, State: spec.State}
	out.State.Stages = append([]string(nil), spec.State.Stages...)
	nextSplit := make(map[blobRef]int)

	for i := range spec.Layers {
		layer := spec.Layers[i].Clone()
		for j := range layer.Bottoms {
			top, ok := source[blobRef{i, j}]
			if !ok || consumers[top] <= 1 {
				continue
			}
			producer := spec.Layers[top.layer].Name
			layer.Bottoms[j] = SplitBlobName(producer, layer.Bottoms[j], top.slot, nextSplit[top])
			nextSplit[top]++
		}
		out.Layers = append(out.Layers, layer)
		producerIdx := len(out.Layers) - 1

		for j, name := range layer.Tops {
			ref := blobRef{i, j}
			count := consumers[ref]
			if count <= 1 {
				continue
			}
			w := lossWeight[ref]
			out.Layers = append(out.Layers, splitLayer(layer.Name, name, j, count, w))
			if w != 0 {
				// The Split layer's first output carries the loss instead.
				out.Layers[producerIdx].LossWeight[j] = 0
				nextSplit[ref]++
			}
		}
	}
	return out
}

func splitLayer(layer, blob string, topIdx, count int, lossWeight float32) LayerSpec {
	split := LayerSpec{
		Name:    SplitLayerName(layer, blob, topIdx),
		Type:    SplitType,
		Bottoms: []string{blob},
		Tops:    make([]string, count),
	}
	for k := 0; k < count; k++ {
		split.Tops[k] = SplitBlobName(layer, blob, topIdx, k)
	}
	if lossWeight != 0 {
		split.LossWeight = make([]float32, count)
		split.LossWeight[0] = lossWeight
	}
	return split
}
