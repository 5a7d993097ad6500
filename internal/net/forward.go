package net

import "fmt"

// RunRange runs layers start through end inclusive, in construction order,
// and returns the objective: each layer's own contribution plus, for every
// top with a non-zero loss weight, the weighted sum of that top's values.
//
// Bounds outside [0, LayerCount()) are a caller bug and panic.
func (n *Net) RunRange(start, end int) (float32, error) {
	if start < 0 {
		panic(fmt.Sprintf("net: RunRange start %d < 0", start))
	}
	if end >= len(n.layers) {
		panic(fmt.Sprintf("net: RunRange end %d >= layer count %d", end, len(n.layers)))
	}
	var loss float32
	for i := start; i <= end; i++ {
		node := n.layers[i]
		contribution, err := node.Layer.Forward(node.bottom, node.top)
		if err != nil {
			return loss, fmt.Errorf("forward %s layer %q: %w", node.Type, node.Name, err)
		}
		loss += contribution + n.weightedTops(node)
	}
	return loss, nil
}

// weightedTops returns Σ LossWeight·sum(top) over the loss-weighted tops of node.
func (n *Net) weightedTops(node *LayerNode) float32 {
	var total float32
	for _, id := range node.Tops {
		buf := n.buffers[id]
		if buf.LossWeight == 0 {
			continue
		}
		var sum float32
		for _, v := range buf.Data.AsFloat32() {
			sum += v
		}
		total += buf.LossWeight * sum
	}
	return total
}

// RunFrom runs layers start through the last one.
func (n *Net) RunFrom(start int) (float32, error) {
	return n.RunRange(start, len(n.layers)-1)
}

// RunTo runs layers 0 through end.
func (n *Net) RunTo(end int) (float32, error) {
	return n.RunRange(0, end)
}

// RunAll runs every layer and returns the output buffers and the total loss.
func (n *Net) RunAll() ([]*Buffer, float32, error) {
	loss, err := n.RunRange(0, len(n.layers)-1)
	if err != nil {
		return nil, loss, err
	}
	return n.Outputs(), loss, nil
}

// ReshapeAll re-derives every top shape from the current bottom shapes
// without running compute. Call it after resizing an input buffer.
func (n *Net) ReshapeAll() error {
	for _, node := range n.layers {
		if err := node.Layer.Reshape(node.bottom, node.top); err != nil {
			return fmt.Errorf("reshape %s layer %q: %w", node.Type, node.Name, err)
		}
	}
	return nil
}
