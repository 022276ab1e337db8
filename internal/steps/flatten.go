package steps

import (
	"iter"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// Flatten yields every step of the tree in document order: a parent before
// the steps of its branches, branches in array order. The sequence is lazy
// and can be ranged over any number of times.
func Flatten(list []schema.Step) iter.Seq[schema.Step] {
	return func(yield func(schema.Step) bool) {
		walk(list, nil, func(_ schema.StepAddress, s schema.Step) bool {
			return yield(s)
		})
	}
}

// FlattenWithAddress is Flatten that also yields the address of each step.
func FlattenWithAddress(list []schema.Step) iter.Seq2[schema.StepAddress, schema.Step] {
	return func(yield func(schema.StepAddress, schema.Step) bool) {
		walk(list, nil, yield)
	}
}

func walk(list []schema.Step, path schema.Path, fn func(schema.StepAddress, schema.Step) bool) bool {
	for i := range list {
		if !fn(schema.StepAddress{Path: path, Index: i}, list[i]) {
			return false
		}
		for bi := range list[i].Branches {
			if !walk(list[i].Branches[bi].Steps, path.Child(i, bi), fn) {
				return false
			}
		}
	}
	return true
}

// FindIndexWithUUID returns the top-level index of the step with uuid, or -1.
func FindIndexWithUUID(uuid string, list []schema.Step) int {
	for i := range list {
		if list[i].UUID == uuid {
			return i
		}
	}
	return -1
}

// FindFlatIndexWithUUID returns the position of uuid in Flatten order, or -1.
func FindFlatIndexWithUUID(uuid string, list []schema.Step) int {
	idx := 0
	for s := range Flatten(list) {
		if s.UUID == uuid {
			return idx
		}
		idx++
	}
	return -1
}

// Locate returns the address of the first step with uuid at any depth.
func Locate(uuid string, list []schema.Step) (schema.StepAddress, bool) {
	for addr, s := range FlattenWithAddress(list) {
		if s.UUID == uuid {
			return addr, true
		}
	}
	return schema.StepAddress{}, false
}

// ListAt returns the step list reached by path.
func ListAt(list []schema.Step, path schema.Path) ([]schema.Step, bool) {
	for _, seg := range path {
		if seg.StepIndex < 0 || seg.StepIndex >= len(list) {
			return nil, false
		}
		branches := list[seg.StepIndex].Branches
		if seg.BranchIndex < 0 || seg.BranchIndex >= len(branches) {
			return nil, false
		}
		list = branches[seg.BranchIndex].Steps
	}
	return list, true
}

// StepAt returns the step at addr.
func StepAt(list []schema.Step, addr schema.StepAddress) (schema.Step, bool) {
	target, ok := ListAt(list, addr.Path)
	if !ok || addr.Index < 0 || addr.Index >= len(target) {
		return schema.Step{}, false
	}
	return target[addr.Index], true
}

// Count returns the number of steps in the tree.
func Count(list []schema.Step) int {
	n := 0
	for range Flatten(list) {
		n++
	}
	return n
}
