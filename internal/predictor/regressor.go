package predictor

import (
	"errors"
	"fmt"
)

type regressor interface {
	predict(x []float64) (float64, error)
}

func newRegressor(spec RegressorSpec, width int) (regressor, error) {
	switch spec.Kind {
	case RegressorLinear:
		if len(spec.Coefficients) != width {
			return nil, fmt.Errorf("linear: %d coefficients for %d features", len(spec.Coefficients), width)
		}
		return &linearRegressor{intercept: spec.Intercept, coef: spec.Coefficients}, nil
	case RegressorTree:
		if err := checkTree(spec.Nodes, width); err != nil {
			return nil, err
		}
		return &treeRegressor{nodes: spec.Nodes}, nil
	case RegressorGBRT:
		if len(spec.Trees) == 0 {
			return nil, errors.New("gbrt: no trees")
		}
		lr := spec.LearningRate
		if lr == 0 {
			lr = 1
		}
		trees := make([]treeRegressor, len(spec.Trees))
		for i, nodes := range spec.Trees {
			if err := checkTree(nodes, width); err != nil {
				return nil, fmt.Errorf("gbrt tree %d: %w", i, err)
			}
			trees[i] = treeRegressor{nodes: nodes}
		}
		return &gbrtRegressor{base: spec.BaseScore, rate: lr, trees: trees}, nil
	}
	return nil, fmt.Errorf("unknown kind %q", spec.Kind)
}

// checkTree rejects trees that could index out of range or loop.
func checkTree(nodes []TreeNode, width int) error {
	if len(nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, n := range nodes {
		if n.IsLeaf {
			continue
		}
		if n.FeatureIdx < 0 || n.FeatureIdx >= width {
			return fmt.Errorf("node %d: feature index %d out of range [0,%d)", i, n.FeatureIdx, width)
		}
		if n.LeftChild <= i || n.LeftChild >= len(nodes) || n.RightChild <= i || n.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.LeftChild, n.RightChild)
		}
	}
	return nil
}

type linearRegressor struct {
	intercept float64
	coef      []float64
}

func (r *linearRegressor) predict(x []float64) (float64, error) {
	if len(x) != len(r.coef) {
		return 0, fmt.Errorf("linear: got %d features, want %d", len(x), len(r.coef))
	}
	y := r.intercept
	for i, c := range r.coef {
		y += c * x[i]
	}
	return y, nil
}

type treeRegressor struct {
	nodes []TreeNode
}

func (r *treeRegressor) predict(x []float64) (float64, error) {
	idx := 0
	for {
		node := r.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx >= len(x) {
			return 0, errors.New("feature index out of range")
		}
		if x[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

type gbrtRegressor struct {
	base  float64
	rate  float64
	trees []treeRegressor
}

func (r *gbrtRegressor) predict(x []float64) (float64, error) {
	y := r.base
	for i := range r.trees {
		v, err := r.trees[i].predict(x)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		y += r.rate * v
	}
	return y, nil
}
