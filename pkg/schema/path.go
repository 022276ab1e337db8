package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// PathSegment selects branch BranchIndex of the step at StepIndex.
type PathSegment struct {
	StepIndex   int `json:"stepIndex"`
	BranchIndex int `json:"branchIndex"`
}

// Path addresses a branch step list at any depth. The empty path is the root list.
type Path []PathSegment

// String renders the path as "steps[2].branches[0]", one pair per segment.
func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, seg := range p {
		parts = append(parts, fmt.Sprintf("steps[%d].branches[%d]", seg.StepIndex, seg.BranchIndex))
	}
	return strings.Join(parts, ".")
}

// Child returns a new path extended by one segment. p is not modified.
func (p Path) Child(stepIndex, branchIndex int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, PathSegment{StepIndex: stepIndex, BranchIndex: branchIndex})
}

// Equal reports whether both paths address the same list.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// StepAddress locates one step: the list reached by Path, then Index in it.
type StepAddress struct {
	Path  Path `json:"path"`
	Index int  `json:"index"`
}

// IsRoot reports whether the address points into the top-level step list.
func (a StepAddress) IsRoot() bool {
	return len(a.Path) == 0
}

// String renders the address as "steps[2].branches[0].steps[1]".
func (a StepAddress) String() string {
	leaf := fmt.Sprintf("steps[%d]", a.Index)
	if len(a.Path) == 0 {
		return leaf
	}
	return a.Path.String() + "." + leaf
}

// ParsePath parses the String form of a Path. The empty string is the root path.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	tokens := strings.Split(s, ".")
	if len(tokens)%2 != 0 {
		return nil, NewErrorf(ErrCodeValidation, "malformed path %q", s)
	}
	path := make(Path, 0, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		stepIdx, err := parseIndexed(tokens[i], "steps")
		if err != nil {
			return nil, NewErrorf(ErrCodeValidation, "malformed path %q", s).WithCause(err)
		}
		branchIdx, err := parseIndexed(tokens[i+1], "branches")
		if err != nil {
			return nil, NewErrorf(ErrCodeValidation, "malformed path %q", s).WithCause(err)
		}
		path = append(path, PathSegment{StepIndex: stepIdx, BranchIndex: branchIdx})
	}
	return path, nil
}

// ParseAddress parses the String form of a StepAddress.
func ParseAddress(s string) (StepAddress, error) {
	cut := strings.LastIndex(s, ".")
	leaf, prefix := s, ""
	if cut >= 0 {
		prefix, leaf = s[:cut], s[cut+1:]
	}
	idx, err := parseIndexed(leaf, "steps")
	if err != nil {
		return StepAddress{}, NewErrorf(ErrCodeValidation, "malformed step address %q", s).WithCause(err)
	}
	path, err := ParsePath(prefix)
	if err != nil {
		return StepAddress{}, err
	}
	return StepAddress{Path: path, Index: idx}, nil
}

// parseIndexed parses "name[N]" and returns N.
func parseIndexed(token, name string) (int, error) {
	if !strings.HasPrefix(token, name+"[") || !strings.HasSuffix(token, "]") {
		return 0, fmt.Errorf("expected %s[N], got %q", name, token)
	}
	n, err := strconv.Atoi(token[len(name)+1 : len(token)-1])
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative index in %q", token)
	}
	return n, nil
}
