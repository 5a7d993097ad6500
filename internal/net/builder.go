package net

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/blobnet/internal/layers"
	"github.com/born-ml/blobnet/internal/netspec"
	"github.com/born-ml/blobnet/internal/tensor"
)

// inputLayerType marks layers whose tops are fed by the caller.
const inputLayerType = "Input"

// builder holds the state of one construction pass.
type builder struct {
	net       *Net
	opts      Options
	ctx       *layers.Context
	available map[string]bool
}

func build(spec *netspec.NetSpec, o Options) (*Net, error) {
	n := &Net{
		name:            spec.Name,
		phase:           spec.State.Phase,
		log:             o.Logger,
		bufferIndex:     make(map[string]int),
		layerIndex:      make(map[string]int),
		paramNamesIndex: make(map[string]int),
	}
	b := &builder{
		net:       n,
		opts:      o,
		ctx:       &layers.Context{Phase: spec.State.Phase, Parallel: o.Parallel},
		available: make(map[string]bool),
	}

	for i := range spec.Layers {
		if err := b.appendLayer(&spec.Layers[i]); err != nil {
			return nil, err
		}
	}
	n.resolveNeedsGrad()

	// Remaining available names are outputs, in buffer creation order.
	for _, buf := range n.buffers {
		if b.available[buf.Name] {
			n.log.Infof("This network produces output %s", buf.Name)
			n.outputs = append(n.outputs, buf.ID)
		}
	}
	n.log.Info("Network initialization done")
	return n, nil
}

func (b *builder) appendLayer(spec *netspec.LayerSpec) error {
	n := b.net
	log := n.log.WithField("layer", spec.Name)

	layer, err := b.opts.Registry.Create(b.ctx, spec)
	if err != nil {
		return &BuildError{Kind: KindLayerCreate, Layer: spec.Name, Err: err}
	}
	node := &LayerNode{
		ID:    len(n.layers),
		Name:  spec.Name,
		Type:  spec.Type,
		Layer: layer,
	}
	n.layers = append(n.layers, node)
	n.layerIndex[spec.Name] = node.ID
	log.Infof("Creating layer %s", spec.Name)

	if len(spec.Propagate) > 0 && len(spec.Propagate) != len(spec.Bottoms) {
		return &BuildError{
			Kind:    KindPropagateCountMismatch,
			Layer:   spec.Name,
			Details: fmt.Sprintf("%d propagate_down values for %d bottoms", len(spec.Propagate), len(spec.Bottoms)),
		}
	}

	node.propagate = append([]bool(nil), spec.Propagate...)
	for i := range spec.Bottoms {
		if _, err := b.appendBottom(node, spec, i); err != nil {
			return err
		}
	}
	for i := range spec.Tops {
		id, err := b.appendTop(node, spec, i)
		if err != nil {
			return err
		}
		if spec.Type == inputLayerType {
			n.inputs = append(n.inputs, id)
		}
	}

	if err := layer.Setup(node.bottom, node.top); err != nil {
		return &BuildError{Kind: KindLayerSetup, Layer: spec.Name, Err: err}
	}
	log.Infof("Setting up %s", spec.Name)

	var lossWeights []float32
	if lw, ok := layer.(layers.LossWeighter); ok {
		lossWeights = lw.LossWeights()
	} else {
		lossWeights = spec.LossWeight
	}
	for i, id := range node.Tops {
		buf := n.buffers[id]
		if i < len(lossWeights) {
			buf.LossWeight = lossWeights[i]
		}
		log.Infof("Top shape: %s", buf.Data.ShapeString())
		if buf.LossWeight != 0 {
			log.Infof("    with loss weight %g", buf.LossWeight)
		}
		n.memoryUsed += int64(buf.Data.ByteSize())
	}
	log.Debugf("Memory required for data: %d", n.memoryUsed)

	numBlobs := len(layer.Blobs())
	if len(spec.Params) > numBlobs {
		return &BuildError{
			Kind:    KindParamCountMismatch,
			Layer:   spec.Name,
			Details: fmt.Sprintf("%d param specs for %d parameter blobs", len(spec.Params), numBlobs),
		}
	}
	for i := 0; i < numBlobs; i++ {
		if err := b.appendParam(node, spec, i); err != nil {
			return err
		}
	}
	return nil
}

// resolveNeedsGrad computes gradient requirements once every layer is wired.
// A later sharer can still change a learnable's lr_mult, so the pass reads
// only the merged multipliers.
func (n *Net) resolveNeedsGrad() {
	for _, buf := range n.buffers {
		buf.NeedsGrad = false
	}
	for _, node := range n.layers {
		needsGrad := false
		node.BottomNeedsGrad = node.BottomNeedsGrad[:0]
		for i, id := range node.Bottoms {
			bufGrad := n.buffers[id].NeedsGrad
			needsGrad = needsGrad || bufGrad
			if len(node.propagate) > 0 {
				bufGrad = node.propagate[i]
			}
			node.BottomNeedsGrad = append(node.BottomNeedsGrad, bufGrad)
		}
		for _, slot := range node.Params {
			if n.learnables[n.params[slot].Learnable].LRMult != 0 {
				needsGrad = true
			}
		}
		node.NeedsGrad = needsGrad
		if needsGrad {
			for _, id := range node.Tops {
				n.buffers[id].NeedsGrad = true
			}
		}
	}
}

// appendBottom wires bottom i of node and removes its name from availability.
func (b *builder) appendBottom(node *LayerNode, spec *netspec.LayerSpec, i int) (int, error) {
	n := b.net
	name := spec.Bottoms[i]
	if !b.available[name] {
		return 0, &BuildError{
			Kind:    KindUnknownInputBuffer,
			Layer:   spec.Name,
			Blob:    name,
			Details: fmt.Sprintf("bottom index %d", i),
		}
	}
	id := n.bufferIndex[name]
	buf := n.buffers[id]
	n.log.Debugf("%s <- %s", spec.Name, name)

	node.Bottoms = append(node.Bottoms, id)
	node.bottom = append(node.bottom, buf.Data)
	delete(b.available, name)
	return id, nil
}

// appendTop wires top i of node, aliasing bottom i when the names match.
func (b *builder) appendTop(node *LayerNode, spec *netspec.LayerSpec, i int) (int, error) {
	n := b.net
	name := spec.Tops[i]

	var id int
	switch existing, seen := n.bufferIndex[name]; {
	case i < len(spec.Bottoms) && name == spec.Bottoms[i]:
		n.log.Debugf("%s -> %s (in-place)", spec.Name, name)
		id = existing
	case seen:
		return 0, &BuildError{Kind: KindDuplicateOutputBuffer, Layer: spec.Name, Blob: name}
	default:
		n.log.Debugf("%s -> %s", spec.Name, name)
		id = len(n.buffers)
		n.buffers = append(n.buffers, &Buffer{ID: id, Name: name, Data: tensor.New(tensor.Float32)})
		n.bufferIndex[name] = id
	}

	node.Tops = append(node.Tops, id)
	node.top = append(node.top, n.buffers[id].Data)
	b.available[name] = true
	return id, nil
}

// appendParam registers parameter blob i of node as an owner or as a sharer
// of an earlier slot with the same name.
func (b *builder) appendParam(node *LayerNode, spec *netspec.LayerSpec, i int) error {
	n := b.net
	var ps netspec.ParamSpec
	if i < len(spec.Params) {
		ps = spec.Params[i]
	}
	display := ps.Name
	if display == "" {
		display = strconv.Itoa(i)
	}
	blob := node.Layer.Blobs()[i]
	slot := &ParamSlot{
		ID:          len(n.params),
		DisplayName: display,
		LayerID:     node.ID,
		Index:       i,
	}
	slot.Owner = slot.ID

	ownerID, shared := n.paramNamesIndex[ps.Name]
	if ps.Name == "" || !shared {
		if ps.Name != "" {
			n.paramNamesIndex[ps.Name] = slot.ID
		}
		l := &Learnable{ID: len(n.learnables), Data: blob, LRMult: 1, DecayMult: 1}
		if ps.LRMult != nil {
			l.LRMult, l.HasLRMult = *ps.LRMult, true
		}
		if ps.DecayMult != nil {
			l.DecayMult, l.HasDecayMult = *ps.DecayMult, true
		}
		n.learnables = append(n.learnables, l)
		slot.Learnable = l.ID
		n.params = append(n.params, slot)
		node.Params = append(node.Params, slot.ID)
		return nil
	}

	owner := n.params[ownerID]
	ownerLayer := n.layers[owner.LayerID]
	ownerBlob := ownerLayer.Layer.Blobs()[owner.Index]
	n.log.WithFields(logrus.Fields{
		"param":       ps.Name,
		"owner_layer": ownerLayer.Name,
		"owner_index": owner.Index,
	}).Infof("Sharing parameters '%s' owned by layer '%s', param index %d", ps.Name, ownerLayer.Name, owner.Index)

	if ps.ShareMode == netspec.SharePermissive {
		if blob.NumElements() != ownerBlob.NumElements() {
			return &BuildError{
				Kind:  KindParamShapeMismatch,
				Layer: spec.Name,
				Blob:  ps.Name,
				Details: fmt.Sprintf("count mismatch with layer %q: owner shape is %s; sharing layer shape is %s",
					ownerLayer.Name, ownerBlob.ShapeString(), blob.ShapeString()),
			}
		}
	} else if !blob.Shape().Equal(ownerBlob.Shape()) {
		return &BuildError{
			Kind:  KindParamShapeMismatch,
			Layer: spec.Name,
			Blob:  ps.Name,
			Details: fmt.Sprintf("shape mismatch with layer %q: owner shape is %s; sharing layer expects shape %s",
				ownerLayer.Name, ownerBlob.ShapeString(), blob.ShapeString()),
		}
	}
	if err := blob.ShareData(ownerBlob); err != nil {
		return &BuildError{Kind: KindParamShapeMismatch, Layer: spec.Name, Blob: ps.Name, Err: err}
	}

	l := n.learnables[owner.Learnable]
	if ps.LRMult != nil {
		if l.HasLRMult && l.LRMult != *ps.LRMult {
			return &BuildError{
				Kind:    KindParamMultiplierConflict,
				Layer:   spec.Name,
				Blob:    ps.Name,
				Details: fmt.Sprintf("lr_mult %g conflicts with owner's %g", *ps.LRMult, l.LRMult),
			}
		}
		l.LRMult, l.HasLRMult = *ps.LRMult, true
	}
	if ps.DecayMult != nil {
		if l.HasDecayMult && l.DecayMult != *ps.DecayMult {
			return &BuildError{
				Kind:    KindParamMultiplierConflict,
				Layer:   spec.Name,
				Blob:    ps.Name,
				Details: fmt.Sprintf("decay_mult %g conflicts with owner's %g", *ps.DecayMult, l.DecayMult),
			}
		}
		l.DecayMult, l.HasDecayMult = *ps.DecayMult, true
	}

	slot.Owner = ownerID
	slot.Learnable = owner.Learnable
	n.params = append(n.params, slot)
	node.Params = append(node.Params, slot.ID)
	return nil
}
