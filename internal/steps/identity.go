package steps

import (
	"strconv"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// RegenerateIdentities returns a copy of list in which every top-level step
// has UUID = name + index. Nested branch steps are renamed too, as
// parentUUID|branchIndex|name+index, so node ids stay unique at any depth.
// The input is not modified.
func RegenerateIdentities(list []schema.Step) []schema.Step {
	out := CloneSteps(list)
	assignIdentities(out, "")
	return out
}

func assignIdentities(list []schema.Step, parent string) {
	for i := range list {
		list[i].UUID = nestedUUID(parent, list[i].Name, i)
		for bi := range list[i].Branches {
			assignIdentities(list[i].Branches[bi].Steps, list[i].UUID+"|"+strconv.Itoa(bi))
		}
	}
}

// UUIDFor returns the identity a top-level step named name receives at index.
func UUIDFor(name string, index int) string {
	return nestedUUID("", name, index)
}

func nestedUUID(parent, name string, index int) string {
	own := name + strconv.Itoa(index)
	if parent == "" {
		return own
	}
	return parent + "|" + own
}
