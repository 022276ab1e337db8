package steps

import (
	"slices"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// The functions below never modify their input. They copy the step lists
// and branch slices along the path and share everything else.

// ReplaceAt returns a new tree with the step at addr replaced by step.
func ReplaceAt(list []schema.Step, addr schema.StepAddress, step schema.Step) ([]schema.Step, error) {
	return updateList(list, addr.Path, func(target []schema.Step) ([]schema.Step, error) {
		if addr.Index < 0 || addr.Index >= len(target) {
			return nil, addressNotFound(addr)
		}
		out := slices.Clone(target)
		out[addr.Index] = step
		return out, nil
	})
}

// InsertAt returns a new tree with step inserted before addr.Index.
// addr.Index may equal the list length to append.
func InsertAt(list []schema.Step, addr schema.StepAddress, step schema.Step) ([]schema.Step, error) {
	return updateList(list, addr.Path, func(target []schema.Step) ([]schema.Step, error) {
		if addr.Index < 0 || addr.Index > len(target) {
			return nil, addressNotFound(addr)
		}
		out := make([]schema.Step, 0, len(target)+1)
		out = append(out, target[:addr.Index]...)
		out = append(out, step)
		return append(out, target[addr.Index:]...), nil
	})
}

// DeleteAt returns a new tree without the step at addr.
func DeleteAt(list []schema.Step, addr schema.StepAddress) ([]schema.Step, error) {
	return updateList(list, addr.Path, func(target []schema.Step) ([]schema.Step, error) {
		if addr.Index < 0 || addr.Index >= len(target) {
			return nil, addressNotFound(addr)
		}
		out := make([]schema.Step, 0, len(target)-1)
		out = append(out, target[:addr.Index]...)
		return append(out, target[addr.Index+1:]...), nil
	})
}

// UpdateAt returns a new tree where the step at addr is replaced by fn(step).
func UpdateAt(list []schema.Step, addr schema.StepAddress, fn func(schema.Step) (schema.Step, error)) ([]schema.Step, error) {
	current, ok := StepAt(list, addr)
	if !ok {
		return nil, addressNotFound(addr)
	}
	next, err := fn(Clone(current))
	if err != nil {
		return nil, err
	}
	return ReplaceAt(list, addr, next)
}

func updateList(list []schema.Step, path schema.Path, fn func([]schema.Step) ([]schema.Step, error)) ([]schema.Step, error) {
	if len(path) == 0 {
		return fn(list)
	}

	seg := path[0]
	if seg.StepIndex < 0 || seg.StepIndex >= len(list) {
		return nil, pathNotFound(path)
	}
	parent := list[seg.StepIndex]
	if seg.BranchIndex < 0 || seg.BranchIndex >= len(parent.Branches) {
		return nil, pathNotFound(path)
	}

	child, err := updateList(parent.Branches[seg.BranchIndex].Steps, path[1:], fn)
	if err != nil {
		return nil, err
	}

	parent.Branches = slices.Clone(parent.Branches)
	parent.Branches[seg.BranchIndex].Steps = child

	out := slices.Clone(list)
	out[seg.StepIndex] = parent
	return out, nil
}

func addressNotFound(addr schema.StepAddress) error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "no step at %s", addr.String())
}

func pathNotFound(path schema.Path) error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "no branch at %s", path.String())
}
