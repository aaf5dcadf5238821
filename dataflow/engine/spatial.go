package engine

import (
	"fmt"
	"math"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/plan"
)

// replicatedRow is one point's appearance in one grid cell. ghost rows
// are epsilon-boundary copies padded into adjacent cells.
type replicatedRow struct {
	id    interface{}
	x, y  float64
	ghost bool
}

// evalSpatialJoin runs the two-stage replication join: replicate
// near-boundary points into adjacent cells as ghost rows, then join
// locally within each cell. This bounds the work to cell-local pairs
// instead of the quadratic full cross-product, and the ghost padding
// guarantees cross-boundary pairs within epsilon are still found.
func (ev *evaluator) evalSpatialJoin(node *plan.SpatialJoin) (*Relation, error) {
	input, err := ev.eval(node.Input)
	if err != nil {
		return nil, err
	}
	if node.CellSize <= 0 {
		return nil, fmt.Errorf("spatial join cell size must be positive, got %v", node.CellSize)
	}
	if node.Epsilon < 0 {
		return nil, fmt.Errorf("spatial join epsilon must be non-negative, got %v", node.Epsilon)
	}

	schema := input.Schema()
	idIdx := schema.IndexOf(node.ID)
	xIdx := schema.IndexOf(node.X)
	yIdx := schema.IndexOf(node.Y)
	if idIdx < 0 || xIdx < 0 || yIdx < 0 {
		return nil, fmt.Errorf("spatial join attributes (%s, %s, %s) not all in schema %s",
			node.ID, node.X, node.Y, schema)
	}

	// Stage 1: replication. Each point lands in its true cell with
	// ghost=0. For every non-zero neighbor offset, shifting the point by
	// epsilon decides whether it sits close enough to that boundary to
	// need a ghost copy in the adjacent cell; points far from any
	// boundary replicate nowhere.
	cells := make(map[[2]int64][]replicatedRow)
	for _, t := range input.Tuples() {
		x, ok := dataflow.AsFloat64(t[xIdx])
		if !ok {
			return nil, fmt.Errorf("spatial join attribute %q has non-numeric value %v", node.X, t[xIdx])
		}
		y, ok := dataflow.AsFloat64(t[yIdx])
		if !ok {
			return nil, fmt.Errorf("spatial join attribute %q has non-numeric value %v", node.Y, t[yIdx])
		}

		trueCell := [2]int64{cellOf(x, node.CellSize), cellOf(y, node.CellSize)}
		cells[trueCell] = append(cells[trueCell], replicatedRow{id: t[idIdx], x: x, y: y, ghost: false})

		emitted := map[[2]int64]bool{trueCell: true}
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				shifted := [2]int64{
					cellOf(x+float64(dx)*node.Epsilon, node.CellSize),
					cellOf(y+float64(dy)*node.Epsilon, node.CellSize),
				}
				if shifted == trueCell || emitted[shifted] {
					continue
				}
				emitted[shifted] = true
				cells[shifted] = append(cells[shifted], replicatedRow{id: t[idIdx], x: x, y: y, ghost: true})
			}
		}
	}

	// Stage 2: local join. Within each cell, unique unordered pairs by
	// id < id1; the smaller-id record must be native (ghost=0) so every
	// surviving pair appears exactly once, in the smaller id's true
	// cell; the true distance test discards grid-coarsening false
	// positives.
	outSchema := plan.NewSchema(
		plan.Attr("id", schema[idIdx].Type),
		plan.Attr("id1", schema[idIdx].Type),
		plan.Attr("dist", dataflow.TypeFloat),
	)

	var result []plan.Tuple
	for _, rows := range cells {
		for i, a := range rows {
			for j, b := range rows {
				if i == j {
					continue
				}
				if dataflow.CompareValues(a.id, b.id) >= 0 {
					continue
				}
				if a.ghost {
					continue
				}
				dist := math.Hypot(a.x-b.x, a.y-b.y)
				if dist <= node.Epsilon {
					result = append(result, plan.Tuple{a.id, b.id, dist})
				}
			}
		}
	}

	return newRelationUnchecked("", outSchema, result), nil
}

// cellOf maps a coordinate to its grid cell index.
func cellOf(v, cellSize float64) int64 {
	return int64(math.Floor(v / cellSize))
}
