package net

// LayerCount returns the number of wired layers.
func (n *Net) LayerCount() int {
	return len(n.layers)
}

// Buffers returns all buffers in creation order.
func (n *Net) Buffers() []*Buffer {
	return n.buffers
}

// Layers returns all layers in execution order.
func (n *Net) Layers() []*LayerNode {
	return n.layers
}

// Params returns all parameter slots.
func (n *Net) Params() []*ParamSlot {
	return n.params
}

// Learnables returns the distinct trainable tensors.
func (n *Net) Learnables() []*Learnable {
	return n.learnables
}

// InputIDs returns the buffer ids produced by Input layers.
func (n *Net) InputIDs() []int {
	return n.inputs
}

// OutputIDs returns the ids of buffers produced but never consumed.
func (n *Net) OutputIDs() []int {
	return n.outputs
}

// Inputs returns the graph input buffers.
func (n *Net) Inputs() []*Buffer {
	return n.byID(n.inputs)
}

// Outputs returns the graph output buffers in creation order.
func (n *Net) Outputs() []*Buffer {
	return n.byID(n.outputs)
}

func (n *Net) byID(ids []int) []*Buffer {
	out := make([]*Buffer, len(ids))
	for i, id := range ids {
		out[i] = n.buffers[id]
	}
	return out
}

// BottomIDs returns the input buffer ids of layer i.
func (n *Net) BottomIDs(i int) []int {
	return n.layers[i].Bottoms
}

// TopIDs returns the output buffer ids of layer i.
func (n *Net) TopIDs(i int) []int {
	return n.layers[i].Tops
}

// ParamNamesIndex maps each named parameter to its owning slot id.
func (n *Net) ParamNamesIndex() map[string]int {
	out := make(map[string]int, len(n.paramNamesIndex))
	for k, v := range n.paramNamesIndex {
		out[k] = v
	}
	return out
}

// MemoryUsed returns the bytes held by layer outputs at construction time.
func (n *Net) MemoryUsed() int64 {
	return n.memoryUsed
}

// HasBuffer reports whether a buffer with the given name exists.
func (n *Net) HasBuffer(name string) bool {
	_, ok := n.bufferIndex[name]
	return ok
}

// HasLayer reports whether a layer with the given name exists.
func (n *Net) HasLayer(name string) bool {
	_, ok := n.layerIndex[name]
	return ok
}

// BufferByName looks up a buffer. A miss is logged and reported, not an error.
func (n *Net) BufferByName(name string) (*Buffer, bool) {
	id, ok := n.bufferIndex[name]
	if !ok {
		n.log.Warnf("Unknown blob name %s", name)
		return nil, false
	}
	return n.buffers[id], true
}

// LayerByName looks up a layer. A miss is logged and reported, not an error.
func (n *Net) LayerByName(name string) (*LayerNode, bool) {
	id, ok := n.layerIndex[name]
	if !ok {
		n.log.Warnf("Unknown layer name %s", name)
		return nil, false
	}
	return n.layers[id], true
}
